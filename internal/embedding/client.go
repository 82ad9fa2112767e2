package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/websage/backend/pkg/circuitbreaker"
	"github.com/websage/backend/pkg/logger"
	"github.com/websage/backend/pkg/retry"
)

// ErrNotConfigured is returned before any network call when no embedding
// credential is present. Callers check it eagerly at index-build time.
var ErrNotConfigured = errors.New("no embedding credential configured")

const batchSize = 100

type Client struct {
	api         *openai.Client
	model       string
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding client: %w", ErrNotConfigured)
	}

	cb := circuitbreaker.NewCircuitBreaker("embedding", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	logger.Info("Embedding client initialized", zap.String("model", model))

	return &Client{
		api:         openai.NewClient(apiKey),
		model:       model,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

// Embed turns each text into a fixed-dimension vector, batching requests.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var embeddings [][]float32

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]

		err := c.cb.Execute(ctx, func() error {
			return retry.Do(ctx, c.retryConfig, func() error {
				resp, err := c.api.CreateEmbeddings(
					ctx,
					openai.EmbeddingRequest{
						Input: batch,
						Model: openai.EmbeddingModel(c.model),
					},
				)

				if err != nil {
					return fmt.Errorf("failed to generate embeddings: %w", err)
				}

				for _, data := range resp.Data {
					embedding := make([]float32, len(data.Embedding))
					copy(embedding, data.Embedding)
					embeddings = append(embeddings, embedding)
				}

				return nil
			})
		})

		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

// EmbedQuery embeds a single query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var embedding []float32

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.api.CreateEmbeddings(
				ctx,
				openai.EmbeddingRequest{
					Input: []string{text},
					Model: openai.EmbeddingModel(c.model),
				},
			)

			if err != nil {
				return fmt.Errorf("failed to generate query embedding: %w", err)
			}
			if len(resp.Data) == 0 {
				return fmt.Errorf("embedding response contained no data")
			}

			embedding = make([]float32, len(resp.Data[0].Embedding))
			copy(embedding, resp.Data[0].Embedding)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return embedding, nil
}
