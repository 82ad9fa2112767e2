package extract

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/websage/backend/pkg/logger"
)

// Strategy selects which extraction path the orchestrator starts from.
type Strategy string

const (
	// StrategySimple goes straight to the single-page extractor.
	StrategySimple Strategy = "simple"
	// StrategyStructured starts with the structure-preserving batch path
	// and falls back through the cascade.
	StrategyStructured Strategy = "structured"
	// StrategyAuto runs the full fallback cascade unconditionally.
	StrategyAuto Strategy = "auto"
)

// ParseStrategy maps user input to a Strategy, defaulting to structured.
func ParseStrategy(s string) Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple", "fast":
		return StrategySimple
	case "auto", "all":
		return StrategyAuto
	default:
		return StrategyStructured
	}
}

// PageExtractor extracts one URL at a time.
type PageExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// BatchExtractor extracts a whole URL list in one call.
type BatchExtractor interface {
	ExtractAll(ctx context.Context, urls []string) (map[string]string, map[string]string, error)
}

// Result is the reconciled outcome of one extraction request. A URL appears
// in Contents or Failures, never both. An empty Contents map is a valid
// outcome, not an error.
type Result struct {
	Contents map[string]string
	Failures map[string]string
	// Method names the cascade stage that produced the contents.
	Method string
}

// Orchestrator runs the fallback cascade: batch markdown extraction first,
// then per-URL readability, then the per-URL simple extractor. A stage is
// accepted as soon as it yields usable content for at least one URL; any
// stage error counts as "no usable content" and triggers the next stage.
type Orchestrator struct {
	batch   BatchExtractor
	article PageExtractor
	simple  PageExtractor
}

func NewOrchestrator(batch BatchExtractor, article, simple PageExtractor) *Orchestrator {
	return &Orchestrator{
		batch:   batch,
		article: article,
		simple:  simple,
	}
}

// NormalizeURLs trims whitespace, drops blank entries, and prefixes https://
// to anything lacking a scheme. Normalization always happens before any
// fetch attempt.
func NormalizeURLs(raw []string) []string {
	urls := make([]string, 0, len(raw))
	for _, url := range raw {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			url = "https://" + url
		}
		urls = append(urls, url)
	}
	return urls
}

type stage struct {
	name string
	run  func(ctx context.Context, urls []string) (map[string]string, map[string]string)
}

func (o *Orchestrator) Run(ctx context.Context, rawURLs []string, strategy Strategy) *Result {
	res := &Result{
		Contents: make(map[string]string),
		Failures: make(map[string]string),
	}

	urls := NormalizeURLs(rawURLs)
	if len(urls) == 0 {
		return res
	}

	logger.Info("Processing URLs",
		zap.Int("count", len(urls)),
		zap.String("strategy", string(strategy)),
	)

	for _, st := range o.stages(strategy) {
		contents, failures := st.run(ctx, urls)
		for url, reason := range failures {
			res.Failures[url] = reason
		}
		if len(contents) > 0 {
			res.Contents = contents
			res.Method = st.name
			break
		}
		logger.Info("Extraction stage produced no usable content, falling back",
			zap.String("stage", st.name),
		)
	}

	o.reconcile(res)

	if len(res.Contents) == 0 {
		logger.Error("Failed to extract valid content from any URL")
	} else {
		logger.Info("Extraction complete",
			zap.Int("extracted", len(res.Contents)),
			zap.Int("failed", len(res.Failures)),
			zap.String("method", res.Method),
		)
	}

	return res
}

func (o *Orchestrator) stages(strategy Strategy) []stage {
	simple := stage{name: "simple", run: func(ctx context.Context, urls []string) (map[string]string, map[string]string) {
		return o.runPerURL(ctx, o.simple, urls)
	}}

	if strategy == StrategySimple {
		return []stage{simple}
	}

	return []stage{
		{name: "markdown-batch", run: o.runBatch},
		{name: "article", run: func(ctx context.Context, urls []string) (map[string]string, map[string]string) {
			return o.runPerURL(ctx, o.article, urls)
		}},
		simple,
	}
}

func (o *Orchestrator) runBatch(ctx context.Context, urls []string) (map[string]string, map[string]string) {
	contents, failures, err := o.batch.ExtractAll(ctx, urls)
	if err != nil {
		// Batch-level errors, ErrEmptyBatch included, mean no usable
		// content; the per-URL failure log still counts.
		logger.Warn("Batch extraction failed", zap.Error(err))
		if failures == nil {
			failures = map[string]string{}
		}
		return nil, failures
	}
	return contents, failures
}

func (o *Orchestrator) runPerURL(ctx context.Context, ex PageExtractor, urls []string) (map[string]string, map[string]string) {
	contents := make(map[string]string)
	failures := make(map[string]string)

	for _, url := range urls {
		text, err := ex.Extract(ctx, url)
		if err != nil {
			failures[url] = err.Error()
			continue
		}
		contents[url] = text
	}

	return contents, failures
}

// reconcile drops entries that slipped through with empty content and keeps
// the success map and failure log disjoint.
func (o *Orchestrator) reconcile(res *Result) {
	for url, content := range res.Contents {
		if strings.TrimSpace(content) == "" {
			delete(res.Contents, url)
			res.Failures[url] = ErrEmptyContent.Error()
		}
	}
	for url := range res.Contents {
		delete(res.Failures, url)
	}
}
