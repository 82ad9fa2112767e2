package index

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/websage/backend/internal/document"
	"github.com/websage/backend/pkg/logger"
)

// Milvus implements Store on a Milvus collection. Rows are tagged with
// session and generation; replacing a session's index inserts the new
// generation and deletes everything older.
type Milvus struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewMilvus(endpoint, collectionName string, vectorDim int) (*Milvus, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Milvus{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Milvus) Close() error {
	return m.client.Close()
}

func (m *Milvus) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Web page segment embeddings",
		Fields: []*entity.Field{
			{
				Name:       "segment_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
			{
				Name:     "source_url",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "session_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "generation",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

func (m *Milvus) Replace(ctx context.Context, sessionID string, generation int64, items []SegmentVector) error {
	if len(items) == 0 {
		return nil
	}

	segmentIDs := make([]string, len(items))
	embeddings := make([][]float32, len(items))
	contents := make([]string, len(items))
	sourceURLs := make([]string, len(items))
	chunkIndexes := make([]int64, len(items))
	sessionIDs := make([]string, len(items))
	generations := make([]int64, len(items))

	for i, item := range items {
		segmentIDs[i] = fmt.Sprintf("%s_g%d", item.Segment.ID, generation)
		embeddings[i] = item.Vector
		contents[i] = item.Segment.Content
		sourceURLs[i] = item.Segment.Source
		chunkIndexes[i] = int64(item.Segment.Index)
		sessionIDs[i] = sessionID
		generations[i] = generation
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("segment_id", segmentIDs),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("source_url", sourceURLs),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("session_id", sessionIDs),
		entity.NewColumnInt64("generation", generations),
	)
	if err != nil {
		return fmt.Errorf("failed to insert segments: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	// Older generations stay queryable by in-flight snapshots until this
	// delete lands; new snapshots already point at the new generation.
	// Session IDs contain only [A-Za-z0-9_-] (enforced by session.Manager),
	// never quotes, so they can appear inside the expression.
	expr := fmt.Sprintf(`session_id == "%s" && generation < %d`, sessionID, generation)
	err = m.client.Delete(ctx, m.collectionName, "", expr)
	if err != nil {
		logger.Warn("Failed to delete previous index generations",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	logger.Info("Segments inserted into vector store",
		zap.Int("count", len(items)),
		zap.Int64("generation", generation),
	)

	return nil
}

func (m *Milvus) Search(ctx context.Context, sessionID string, generation int64, vector []float32, topK int) ([]Match, error) {
	expr := fmt.Sprintf(`session_id == "%s" && generation == %d`, sessionID, generation)

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"segment_id", "content", "source_url", "chunk_index"},
		[]entity.Vector{entity.FloatVector(vector)},
		"embedding",
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]Match, 0, topK)
	for _, sr := range searchResult {
		idCol := sr.Fields.GetColumn("segment_id")
		contentCol := sr.Fields.GetColumn("content")
		sourceCol := sr.Fields.GetColumn("source_url")
		indexCol := sr.Fields.GetColumn("chunk_index")

		for i := 0; i < sr.ResultCount; i++ {
			segmentID, _ := idCol.Get(i)
			content, _ := contentCol.Get(i)
			source, _ := sourceCol.Get(i)
			chunkIndex, _ := indexCol.Get(i)

			results = append(results, Match{
				Segment: document.Segment{
					ID:      segmentID.(string),
					Source:  source.(string),
					Index:   int(chunkIndex.(int64)),
					Content: content.(string),
				},
				Score: sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(results)),
	)

	return results, nil
}
