package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/websage/backend/internal/document"
	"github.com/websage/backend/internal/embedding"
	"github.com/websage/backend/pkg/logger"
)

// DefaultTopK is how many segments a query retrieves as grounding context.
const DefaultTopK = 4

// SegmentVector pairs a segment with its embedding.
type SegmentVector struct {
	Segment document.Segment
	Vector  []float32
}

// Match is one retrieved segment with its similarity score.
type Match struct {
	Segment document.Segment
	Score   float32
}

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store holds segment vectors per session and generation and answers
// nearest-neighbor queries. Replace swaps a session's contents wholesale.
type Store interface {
	Replace(ctx context.Context, sessionID string, generation int64, items []SegmentVector) error
	Search(ctx context.Context, sessionID string, generation int64, vector []float32, topK int) ([]Match, error)
}

// Builder embeds segments and installs them into the store, producing a
// Snapshot pinned to one generation.
type Builder struct {
	embedder Embedder
	store    Store
}

func NewBuilder(embedder Embedder, store Store) *Builder {
	return &Builder{
		embedder: embedder,
		store:    store,
	}
}

func (b *Builder) Build(ctx context.Context, sessionID string, generation int64, segments []document.Segment) (*Snapshot, error) {
	if b.embedder == nil {
		return nil, fmt.Errorf("cannot build index: %w", embedding.ErrNotConfigured)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("cannot build index from zero segments")
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Content
	}

	vectors, err := b.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed segments: %w", err)
	}
	if len(vectors) != len(segments) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(segments))
	}

	items := make([]SegmentVector, len(segments))
	for i := range segments {
		items[i] = SegmentVector{Segment: segments[i], Vector: vectors[i]}
	}

	if err := b.store.Replace(ctx, sessionID, generation, items); err != nil {
		return nil, fmt.Errorf("failed to replace index: %w", err)
	}

	logger.Info("Index built",
		zap.String("session_id", sessionID),
		zap.Int64("generation", generation),
		zap.Int("segments", len(segments)),
	)

	return &Snapshot{
		store:      b.store,
		embedder:   b.embedder,
		sessionID:  sessionID,
		generation: generation,
	}, nil
}

// Snapshot is a fixed view of one built index generation. Queries against a
// snapshot never observe a half-replaced index.
type Snapshot struct {
	store      Store
	embedder   Embedder
	sessionID  string
	generation int64
}

func (s *Snapshot) Generation() int64 {
	return s.generation
}

// Query embeds the question and returns the top-k nearest segments.
func (s *Snapshot) Query(ctx context.Context, text string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.store.Search(ctx, s.sessionID, s.generation, vector, topK)
}
