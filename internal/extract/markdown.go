package extract

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"go.uber.org/zap"

	"github.com/websage/backend/pkg/logger"
)

var excessiveBlankLines = regexp.MustCompile(`\n{3,}`)

// Markdown is the batch structure-preserving extractor: fetches all URLs
// concurrently and converts each page to markdown-flavored text, keeping
// heading and paragraph boundaries. Fetch failures are isolated per URL.
type Markdown struct {
	client    *http.Client
	converter *md.Converter
	userAgent string
	minLength int
	workers   int
}

func NewMarkdown(timeout time.Duration, userAgent string, minLength, workers int) *Markdown {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	if workers <= 0 {
		workers = 5
	}

	return &Markdown{
		client:    &http.Client{Timeout: timeout},
		converter: converter,
		userAgent: userAgent,
		minLength: minLength,
		workers:   workers,
	}
}

// ExtractAll fetches every URL and returns the usable contents plus a
// per-URL failure log. When nothing survives validation it returns
// ErrEmptyBatch so the caller can trigger the next fallback.
func (m *Markdown) ExtractAll(ctx context.Context, urls []string) (map[string]string, map[string]string, error) {
	logger.Info("Extracting batch", zap.Int("urls", len(urls)), zap.String("method", "markdown"))

	contents := make(map[string]string)
	failures := make(map[string]string)

	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan string, len(urls))

	for i := 0; i < m.workers; i++ {
		go func() {
			for url := range jobs {
				text, err := m.extractOne(ctx, url)

				mu.Lock()
				if err != nil {
					failures[url] = err.Error()
				} else {
					contents[url] = text
				}
				mu.Unlock()
				wg.Done()
			}
		}()
	}

	for _, url := range urls {
		wg.Add(1)
		jobs <- url
	}

	wg.Wait()
	close(jobs)

	if len(contents) == 0 {
		logger.Warn("No valid documents in batch", zap.Int("urls", len(urls)))
		return nil, failures, ErrEmptyBatch
	}

	logger.Info("Batch extracted",
		zap.Int("ok", len(contents)),
		zap.Int("failed", len(failures)),
	)

	return contents, failures, nil
}

func (m *Markdown) extractOne(ctx context.Context, url string) (string, error) {
	html, err := fetchHTML(ctx, m.client, url, m.userAgent)
	if err != nil {
		logger.Warn("Batch fetch failed", zap.String("url", url), zap.Error(err))
		return "", err
	}

	text, err := m.converter.ConvertString(html)
	if err != nil {
		logger.Warn("Markdown conversion failed", zap.String("url", url), zap.Error(err))
		return "", err
	}

	text = excessiveBlankLines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if len(text) < m.minLength {
		logger.Warn("Document has insufficient content", zap.String("url", url))
		return "", ErrEmptyContent
	}

	return text, nil
}
