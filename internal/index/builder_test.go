package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websage/backend/internal/document"
	"github.com/websage/backend/internal/embedding"
)

type fakeEmbedder struct {
	embedCalls int
	queryCalls int
	dim        int
	err        error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.embedCalls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, f.dim)
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, f.dim), nil
}

type fakeStore struct {
	replaceCalls int
	searchCalls  int
	sessionID    string
	generation   int64
	items        []SegmentVector
	matches      []Match
	topK         int
	err          error
}

func (f *fakeStore) Replace(ctx context.Context, sessionID string, generation int64, items []SegmentVector) error {
	f.replaceCalls++
	f.sessionID = sessionID
	f.generation = generation
	f.items = items
	return f.err
}

func (f *fakeStore) Search(ctx context.Context, sessionID string, generation int64, vector []float32, topK int) ([]Match, error) {
	f.searchCalls++
	f.sessionID = sessionID
	f.generation = generation
	f.topK = topK
	return f.matches, f.err
}

func someSegments(n int) []document.Segment {
	segments := make([]document.Segment, n)
	for i := range segments {
		segments[i] = document.Segment{
			ID:      "doc_seg_0",
			Source:  "https://example.com",
			Index:   i,
			Content: "segment content",
		}
	}
	return segments
}

func TestBuilder_Build_NoEmbedder(t *testing.T) {
	store := &fakeStore{}
	b := NewBuilder(nil, store)

	snap, err := b.Build(context.Background(), "default", 1, someSegments(2))

	require.Error(t, err)
	assert.True(t, errors.Is(err, embedding.ErrNotConfigured))
	assert.Nil(t, snap)
	assert.Zero(t, store.replaceCalls, "store must not be touched without an embedder")
}

func TestBuilder_Build_ZeroSegments(t *testing.T) {
	b := NewBuilder(&fakeEmbedder{dim: 3}, &fakeStore{})

	snap, err := b.Build(context.Background(), "default", 1, nil)

	require.Error(t, err)
	assert.Nil(t, snap)
}

func TestBuilder_Build_EmbedFailure(t *testing.T) {
	embErr := errors.New("rate limited")
	store := &fakeStore{}
	b := NewBuilder(&fakeEmbedder{err: embErr}, store)

	snap, err := b.Build(context.Background(), "default", 1, someSegments(2))

	require.Error(t, err)
	assert.True(t, errors.Is(err, embErr))
	assert.Nil(t, snap)
	assert.Zero(t, store.replaceCalls, "a failed embedding batch must not replace the index")
}

func TestBuilder_Build_InstallsGeneration(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3}
	store := &fakeStore{}
	b := NewBuilder(embedder, store)

	snap, err := b.Build(context.Background(), "sess-1", 7, someSegments(3))

	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, int64(7), snap.Generation())
	assert.Equal(t, 1, embedder.embedCalls)
	assert.Equal(t, 1, store.replaceCalls)
	assert.Equal(t, "sess-1", store.sessionID)
	assert.Equal(t, int64(7), store.generation)
	assert.Len(t, store.items, 3)
}

func TestSnapshot_Query_PinsGeneration(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3}
	store := &fakeStore{matches: []Match{
		{Segment: document.Segment{ID: "a_seg_0"}, Score: 0.1},
	}}
	b := NewBuilder(embedder, store)

	snap, err := b.Build(context.Background(), "sess-1", 2, someSegments(1))
	require.NoError(t, err)

	matches, err := snap.Query(context.Background(), "what is this about?", 0)

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, embedder.queryCalls)
	assert.Equal(t, int64(2), store.generation, "queries must target the snapshot's generation")
	assert.Equal(t, DefaultTopK, store.topK, "zero topK falls back to the default")
}
