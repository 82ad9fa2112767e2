package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/websage/backend/pkg/circuitbreaker"
	"github.com/websage/backend/pkg/config"
	"github.com/websage/backend/pkg/logger"
	"github.com/websage/backend/pkg/retry"
)

// ErrNotConfigured means no chat backend credential is present; answering
// is disabled but extraction still works.
var ErrNotConfigured = errors.New("no language model credential configured")

// BackendKind identifies which hosted chat backend is active. It is
// resolved once at startup from the configured credentials.
type BackendKind int

const (
	BackendNone BackendKind = iota
	BackendOpenAI
	BackendAzure
)

func (k BackendKind) String() string {
	switch k {
	case BackendOpenAI:
		return "openai"
	case BackendAzure:
		return "azure"
	default:
		return "none"
	}
}

// ResolveBackend picks the active backend. The Azure gateway wins only when
// all of its key, endpoint, and deployment name are present; otherwise the
// direct API key is used if set; otherwise answering is unavailable.
func ResolveBackend(cfg config.LLMConfig) BackendKind {
	if cfg.AzureAPIKey != "" && cfg.AzureEndpoint != "" && cfg.AzureDeployment != "" {
		return BackendAzure
	}
	if cfg.APIKey != "" {
		return BackendOpenAI
	}
	return BackendNone
}

type Client struct {
	api         *openai.Client
	backend     BackendKind
	model       string
	temperature float32
	maxTokens   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(cfg config.LLMConfig) (*Client, error) {
	backend := ResolveBackend(cfg)

	var api *openai.Client
	var model string

	switch backend {
	case BackendAzure:
		azureCfg := openai.DefaultAzureConfig(cfg.AzureAPIKey, cfg.AzureEndpoint)
		if cfg.AzureAPIVersion != "" {
			azureCfg.APIVersion = cfg.AzureAPIVersion
		}
		api = openai.NewClientWithConfig(azureCfg)
		model = cfg.AzureDeployment
	case BackendOpenAI:
		api = openai.NewClient(cfg.APIKey)
		model = cfg.Model
	default:
		return nil, ErrNotConfigured
	}

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	logger.Info("LLM client initialized",
		zap.String("backend", backend.String()),
		zap.String("model", model),
	)

	return &Client{
		api:         api,
		backend:     backend,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *Client) Backend() BackendKind {
	return c.backend
}

// Complete runs one system+user exchange at the configured temperature.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// go-openai omits a zero temperature from the request, which would
	// fall back to the provider default; send the smallest representable
	// value instead to keep repeated answers stable.
	temperature := c.temperature
	if temperature == 0 {
		temperature = 1e-8
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: userPrompt,
		},
	}

	var content string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.api.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: temperature,
					MaxTokens:   c.maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			logger.Debug("Completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content

			return nil
		})
	})

	if err != nil {
		return "", err
	}

	return content, nil
}
