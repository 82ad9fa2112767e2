package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websage/backend/internal/document"
	"github.com/websage/backend/internal/embedding"
	"github.com/websage/backend/internal/extract"
	"github.com/websage/backend/internal/index"
	"github.com/websage/backend/internal/session"
)

type stubPage struct {
	pages map[string]string
}

func (s *stubPage) Extract(ctx context.Context, url string) (string, error) {
	if text, ok := s.pages[url]; ok {
		return text, nil
	}
	return "", extract.ErrEmptyContent
}

type stubBatch struct{}

func (stubBatch) ExtractAll(ctx context.Context, urls []string) (map[string]string, map[string]string, error) {
	return nil, nil, extract.ErrEmptyBatch
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 2, 3}
	}
	return vectors, nil
}

func (stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

type stubStore struct {
	replaceCalls int
}

func (s *stubStore) Replace(ctx context.Context, sessionID string, generation int64, items []index.SegmentVector) error {
	s.replaceCalls++
	return nil
}

func (s *stubStore) Search(ctx context.Context, sessionID string, generation int64, vector []float32, topK int) ([]index.Match, error) {
	return nil, nil
}

func newTestProcessor(pages map[string]string, builder *index.Builder) *Processor {
	orch := extract.NewOrchestrator(stubBatch{}, &stubPage{}, &stubPage{pages: pages})
	splitter := document.NewSplitter(1000, 200)
	return NewProcessor(orch, splitter, builder, nil, nil)
}

func TestProcessor_Process_IndexesExtractedContent(t *testing.T) {
	store := &stubStore{}
	p := newTestProcessor(map[string]string{
		"https://example.com/a": strings.Repeat("Useful article text. ", 20),
	}, index.NewBuilder(stubEmbedder{}, store))
	sess := session.NewManager().Get("s1")

	report, err := p.Process(context.Background(), sess, []string{"example.com/a"}, extract.StrategySimple)

	require.NoError(t, err)
	assert.True(t, report.Indexed)
	assert.Equal(t, []string{"https://example.com/a"}, report.Processed)
	assert.Greater(t, report.SegmentCount, 0)
	assert.Equal(t, 1, store.replaceCalls)

	_, ok := sess.Snapshot()
	assert.True(t, ok)
}

func TestProcessor_Process_EmptyBatchKeepsWorkingIndex(t *testing.T) {
	store := &stubStore{}
	builder := index.NewBuilder(stubEmbedder{}, store)
	sess := session.NewManager().Get("s1")

	p := newTestProcessor(map[string]string{
		"https://example.com/a": strings.Repeat("Useful article text. ", 20),
	}, builder)
	_, err := p.Process(context.Background(), sess, []string{"example.com/a"}, extract.StrategySimple)
	require.NoError(t, err)
	before, ok := sess.Snapshot()
	require.True(t, ok)

	// Second batch where every URL fails.
	p2 := newTestProcessor(nil, builder)
	report, err := p2.Process(context.Background(), sess, []string{"example.com/broken"}, extract.StrategySimple)

	require.NoError(t, err)
	assert.False(t, report.Indexed)
	assert.Zero(t, report.SegmentCount)
	assert.NotEmpty(t, report.Suggestions)
	assert.Contains(t, report.Failures, "https://example.com/broken")

	after, ok := sess.Snapshot()
	require.True(t, ok)
	assert.Same(t, before, after, "a failed batch must leave the previous index answerable")
}

func TestProcessor_Process_IndexingDisabled(t *testing.T) {
	p := newTestProcessor(map[string]string{
		"https://example.com/a": strings.Repeat("Useful article text. ", 20),
	}, index.NewBuilder(nil, &stubStore{}))
	sess := session.NewManager().Get("s1")

	report, err := p.Process(context.Background(), sess, []string{"example.com/a"}, extract.StrategySimple)

	require.Error(t, err)
	assert.True(t, errors.Is(err, embedding.ErrNotConfigured))
	assert.False(t, report.Indexed)
	assert.Equal(t, []string{"https://example.com/a"}, report.Processed, "extraction results survive an index failure")

	_, ok := sess.Snapshot()
	assert.False(t, ok)
}

func TestProcessor_Process_SuggestsAlternateStrategy(t *testing.T) {
	assert.Contains(t, suggestions(extract.StrategySimple), "Try the structured extraction strategy")
	assert.Contains(t, suggestions(extract.StrategyStructured), "Try the simple extraction strategy")
}
