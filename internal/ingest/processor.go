package ingest

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/websage/backend/internal/cache/redis"
	"github.com/websage/backend/internal/document"
	"github.com/websage/backend/internal/extract"
	"github.com/websage/backend/internal/index"
	"github.com/websage/backend/internal/metrics"
	"github.com/websage/backend/internal/session"
	"github.com/websage/backend/internal/storage/models"
	"github.com/websage/backend/internal/storage/sqlite"
	"github.com/websage/backend/pkg/logger"
)

// Processor runs one extraction request end to end: orchestrated
// extraction, document building, chunking, index build, and the wholesale
// session replacement. Extraction failures stay inside the report; indexing
// failures propagate, since there is no automatic recovery for them.
type Processor struct {
	orchestrator *extract.Orchestrator
	splitter     *document.Splitter
	builder      *index.Builder
	db           *sqlite.Client
	cache        *redis.Client
}

// Report is the user-facing outcome of one extraction request. Partial
// success is success; zero usable URLs is an empty report with suggestions,
// not an error.
type Report struct {
	BatchID      string
	Strategy     string
	Method       string
	Processed    []string
	Failures     map[string]string
	SegmentCount int
	Indexed      bool
	Suggestions  []string
}

func NewProcessor(orchestrator *extract.Orchestrator, splitter *document.Splitter, builder *index.Builder, db *sqlite.Client, cache *redis.Client) *Processor {
	return &Processor{
		orchestrator: orchestrator,
		splitter:     splitter,
		builder:      builder,
		db:           db,
		cache:        cache,
	}
}

func (p *Processor) Process(ctx context.Context, sess *session.Session, rawURLs []string, strategy extract.Strategy) (*Report, error) {
	start := time.Now()
	batchID := uuid.New().String()

	logger.Info("Processing extraction request",
		zap.String("batch_id", batchID),
		zap.String("session_id", sess.ID),
		zap.Int("urls", len(rawURLs)),
		zap.String("strategy", string(strategy)),
	)

	urls := extract.NormalizeURLs(rawURLs)

	cached, pending := p.fromCache(ctx, urls)

	res := &extract.Result{
		Contents: cached,
		Failures: map[string]string{},
		Method:   "cache",
	}
	if len(pending) > 0 {
		fetched := p.orchestrator.Run(ctx, pending, strategy)
		for url, content := range fetched.Contents {
			res.Contents[url] = content
		}
		res.Failures = fetched.Failures
		if fetched.Method != "" {
			res.Method = fetched.Method
		}
		p.toCache(ctx, fetched.Contents)
	}

	report := &Report{
		BatchID:   batchID,
		Strategy:  string(strategy),
		Method:    res.Method,
		Processed: sortedKeys(res.Contents),
		Failures:  res.Failures,
	}

	docs := document.FromContents(res.Contents)
	segments := p.splitter.SegmentAll(docs)
	report.SegmentCount = len(segments)

	var indexErr error
	if len(segments) > 0 {
		snap, err := p.builder.Build(ctx, sess.ID, sess.NextGeneration(), segments)
		if err != nil {
			indexErr = err
			logger.Error("Index build failed", zap.String("batch_id", batchID), zap.Error(err))
		} else {
			sess.Replace(res.Contents, res.Failures, snap)
			report.Indexed = true
			metrics.SegmentsIndexed.Set(float64(len(segments)))
		}
	} else {
		// A batch with no usable content never replaces a working
		// index; the previous one stays answerable.
		report.Suggestions = suggestions(strategy)
	}

	p.record(batchID, sess.ID, report, res)

	status := "ok"
	if len(res.Contents) == 0 {
		status = "empty"
	}
	metrics.ExtractionTotal.WithLabelValues(string(strategy), status).Inc()
	metrics.ExtractionDuration.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
	if res.Method != "" && res.Method != "cache" {
		metrics.FallbackTotal.WithLabelValues(res.Method).Inc()
	}

	logger.Info("Extraction request finished",
		zap.String("batch_id", batchID),
		zap.Int("extracted", len(res.Contents)),
		zap.Int("failed", len(res.Failures)),
		zap.Int("segments", report.SegmentCount),
		zap.Bool("indexed", report.Indexed),
	)

	return report, indexErr
}

func (p *Processor) fromCache(ctx context.Context, urls []string) (map[string]string, []string) {
	cached := make(map[string]string)
	if p.cache == nil {
		return cached, urls
	}

	pending := make([]string, 0, len(urls))
	for _, url := range urls {
		content, ok, err := p.cache.GetPage(ctx, url)
		if err != nil {
			logger.Warn("Page cache lookup failed", zap.String("url", url), zap.Error(err))
		}
		if ok {
			cached[url] = content
			continue
		}
		pending = append(pending, url)
	}

	return cached, pending
}

func (p *Processor) toCache(ctx context.Context, contents map[string]string) {
	if p.cache == nil {
		return
	}
	for url, content := range contents {
		if err := p.cache.SetPage(ctx, url, content); err != nil {
			logger.Warn("Failed to cache page", zap.String("url", url), zap.Error(err))
		}
	}
}

func (p *Processor) record(batchID, sessionID string, report *Report, res *extract.Result) {
	if p.db == nil {
		return
	}

	batch := &models.ExtractionBatch{
		ID:           batchID,
		SessionID:    sessionID,
		Strategy:     report.Strategy,
		Method:       report.Method,
		URLCount:     len(res.Contents) + len(res.Failures),
		SuccessCount: len(res.Contents),
		SegmentCount: report.SegmentCount,
		CreatedAt:    time.Now(),
	}

	urls := make([]models.BatchURL, 0, batch.URLCount)
	for _, url := range report.Processed {
		urls = append(urls, models.BatchURL{BatchID: batchID, URL: url, Status: "ok"})
	}
	for url, reason := range res.Failures {
		urls = append(urls, models.BatchURL{BatchID: batchID, URL: url, Status: "failed", Error: reason})
	}

	if err := p.db.InsertBatch(batch, urls); err != nil {
		logger.Warn("Failed to record extraction batch", zap.Error(err))
	}
}

func suggestions(strategy extract.Strategy) []string {
	out := []string{
		"Verify the URLs are correct and publicly reachable",
		"Some sites block automated scraping; try different pages",
	}
	if strategy == extract.StrategySimple {
		out = append(out, "Try the structured extraction strategy")
	} else {
		out = append(out, "Try the simple extraction strategy")
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
