package session

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websage/backend/internal/document"
	"github.com/websage/backend/internal/index"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0, 0, 0}
	}
	return vectors, nil
}

func (stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{0, 0, 0}, nil
}

type stubStore struct{}

func (stubStore) Replace(ctx context.Context, sessionID string, generation int64, items []index.SegmentVector) error {
	return nil
}

func (stubStore) Search(ctx context.Context, sessionID string, generation int64, vector []float32, topK int) ([]index.Match, error) {
	return nil, nil
}

func buildSnapshot(t *testing.T, generation int64) *index.Snapshot {
	t.Helper()
	b := index.NewBuilder(stubEmbedder{}, stubStore{})
	snap, err := b.Build(context.Background(), "test", generation, []document.Segment{
		{ID: "x_seg_0", Source: "https://example.com", Content: "text"},
	})
	require.NoError(t, err)
	return snap
}

func TestManager_Get_DefaultsAndReuses(t *testing.T) {
	m := NewManager()

	def := m.Get("")
	assert.Equal(t, DefaultID, def.ID)
	assert.Same(t, def, m.Get(DefaultID))
	assert.Same(t, def, m.Get(""))

	other := m.Get("user-2")
	assert.NotSame(t, def, other)
	assert.Same(t, other, m.Get("user-2"))
}

func TestManager_Get_RejectsMalformedIDs(t *testing.T) {
	m := NewManager()
	def := m.Get("")

	// IDs end up inside vector store filter expressions, so anything
	// outside the safe charset collapses to the default session.
	for _, id := range []string{
		`x" || generation >= 0 || session_id == "`,
		"spaces are bad",
		"tab\tseparated",
		strings.Repeat("a", 65),
		`quote"inside`,
		`back\slash`,
	} {
		assert.Same(t, def, m.Get(id), "id %q should map to the default session", id)
	}

	assert.Equal(t, "3b1f8a2c-9d4e-4f6a-8b7c-2a1d0e9f8c7b", m.Get("3b1f8a2c-9d4e-4f6a-8b7c-2a1d0e9f8c7b").ID)
	assert.Equal(t, "user_42", m.Get("user_42").ID)
	assert.Equal(t, strings.Repeat("a", 64), m.Get(strings.Repeat("a", 64)).ID)
}

func TestSession_NextGeneration_Monotonic(t *testing.T) {
	s := NewManager().Get("a")

	assert.Equal(t, int64(1), s.NextGeneration())
	assert.Equal(t, int64(2), s.NextGeneration())
	assert.Equal(t, int64(3), s.NextGeneration())
}

func TestSession_Snapshot_EmptyBeforeFirstBatch(t *testing.T) {
	s := NewManager().Get("a")

	snap, ok := s.Snapshot()
	assert.False(t, ok)
	assert.Nil(t, snap)
}

func TestSession_Replace_InstallsSnapshot(t *testing.T) {
	s := NewManager().Get("a")
	snap := buildSnapshot(t, s.NextGeneration())

	s.Replace(
		map[string]string{"https://example.com": "text"},
		map[string]string{"https://broken.example.com": "status 500"},
		snap,
	)

	got, ok := s.Snapshot()
	require.True(t, ok)
	assert.Same(t, snap, got)
	assert.Equal(t, []string{"https://example.com"}, s.ProcessedURLs())
	assert.Equal(t, map[string]string{"https://broken.example.com": "status 500"}, s.Failures())
}

func TestSession_Replace_DiscardsStaleGeneration(t *testing.T) {
	s := NewManager().Get("a")

	gen1 := s.NextGeneration()
	gen2 := s.NextGeneration()
	older := buildSnapshot(t, gen1)
	newer := buildSnapshot(t, gen2)

	s.Replace(map[string]string{"https://example.com/new": "text"}, nil, newer)
	s.Replace(map[string]string{"https://example.com/old": "text"}, nil, older)

	got, ok := s.Snapshot()
	require.True(t, ok)
	assert.Same(t, newer, got, "an older build finishing late must not clobber the current index")
	assert.Equal(t, []string{"https://example.com/new"}, s.ProcessedURLs())
}

func TestSession_Replace_NilSnapshotKeepsIndex(t *testing.T) {
	s := NewManager().Get("a")
	snap := buildSnapshot(t, s.NextGeneration())

	s.Replace(map[string]string{"https://example.com": "text"}, nil, snap)
	s.Replace(nil, map[string]string{"https://example.com/b": "unreachable"}, nil)

	got, ok := s.Snapshot()
	require.True(t, ok)
	assert.Same(t, snap, got, "a batch with nothing indexed keeps the working index")
	assert.Empty(t, s.ProcessedURLs())
	assert.Equal(t, map[string]string{"https://example.com/b": "unreachable"}, s.Failures())
}

func TestSession_Failures_ReturnsCopy(t *testing.T) {
	s := NewManager().Get("a")
	s.Replace(nil, map[string]string{"https://example.com": "bad"}, nil)

	got := s.Failures()
	got["https://example.com"] = "mutated"

	assert.Equal(t, map[string]string{"https://example.com": "bad"}, s.Failures())
}
