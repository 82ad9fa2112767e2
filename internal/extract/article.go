package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/websage/backend/pkg/logger"
)

// Article extracts a single page through readability, which keeps article
// structure (headings, paragraphs) that the simple extractor flattens away.
// The orchestrator uses it as the per-URL retry of the structured path when
// the batch extractor came back empty.
type Article struct {
	timeout   time.Duration
	minLength int
}

func NewArticle(timeout time.Duration, minLength int) *Article {
	return &Article{
		timeout:   timeout,
		minLength: minLength,
	}
}

func (a *Article) Extract(ctx context.Context, url string) (string, error) {
	logger.Debug("Extracting content", zap.String("url", url), zap.String("method", "article"))

	art, err := readability.FromURL(url, a.timeout)
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("readability extraction failed: %w", err)}
	}

	text := strings.TrimSpace(art.TextContent)
	if len(text) < a.minLength {
		logger.Warn("Readability produced empty or too short content", zap.String("url", url))
		return "", fmt.Errorf("%s: %w", url, ErrEmptyContent)
	}

	logger.Info("Content extracted",
		zap.String("url", url),
		zap.String("method", "article"),
		zap.Int("chars", len(text)),
	)

	return text, nil
}
