package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/websage/backend/pkg/logger"
)

// Simple is the fast single-page extractor: one GET, strip non-content
// elements, flatten to plain text. It is the last resort of the fallback
// cascade and the whole of the "simple" strategy.
type Simple struct {
	client    *http.Client
	userAgent string
	minLength int
}

func NewSimple(timeout time.Duration, userAgent string, minLength int) *Simple {
	return &Simple{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		minLength: minLength,
	}
}

func (s *Simple) Extract(ctx context.Context, url string) (string, error) {
	logger.Debug("Extracting content", zap.String("url", url), zap.String("method", "simple"))

	html, err := fetchHTML(ctx, s.client, url, s.userAgent)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}

	doc.Find("script, style, header, footer, nav, noscript").Remove()

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	text = flattenText(text)

	if len(strings.TrimSpace(text)) < s.minLength {
		logger.Warn("Extracted content is empty or too short", zap.String("url", url))
		return "", fmt.Errorf("%s: %w", url, ErrEmptyContent)
	}

	logger.Info("Content extracted",
		zap.String("url", url),
		zap.String("method", "simple"),
		zap.Int("chars", len(text)),
	)

	return text, nil
}

// flattenText collapses runs of whitespace inside lines and drops blank
// lines, keeping one extracted phrase per line.
func flattenText(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			phrase = strings.TrimSpace(phrase)
			if phrase != "" {
				out = append(out, phrase)
			}
		}
	}
	return strings.Join(out, "\n")
}
