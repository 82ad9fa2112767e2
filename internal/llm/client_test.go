package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/websage/backend/pkg/config"
)

func TestResolveBackend_AzureNeedsAllThree(t *testing.T) {
	full := config.LLMConfig{
		AzureAPIKey:     "key",
		AzureEndpoint:   "https://example.openai.azure.com",
		AzureDeployment: "gpt-4o",
	}
	assert.Equal(t, BackendAzure, ResolveBackend(full))

	missingEndpoint := full
	missingEndpoint.AzureEndpoint = ""
	assert.Equal(t, BackendNone, ResolveBackend(missingEndpoint))

	missingDeployment := full
	missingDeployment.AzureDeployment = ""
	assert.Equal(t, BackendNone, ResolveBackend(missingDeployment))
}

func TestResolveBackend_AzureWinsOverOpenAI(t *testing.T) {
	cfg := config.LLMConfig{
		APIKey:          "sk-direct",
		AzureAPIKey:     "key",
		AzureEndpoint:   "https://example.openai.azure.com",
		AzureDeployment: "gpt-4o",
	}
	assert.Equal(t, BackendAzure, ResolveBackend(cfg))
}

func TestResolveBackend_FallsBackToOpenAI(t *testing.T) {
	cfg := config.LLMConfig{
		APIKey:      "sk-direct",
		AzureAPIKey: "key",
	}
	assert.Equal(t, BackendOpenAI, ResolveBackend(cfg))
}

func TestResolveBackend_None(t *testing.T) {
	assert.Equal(t, BackendNone, ResolveBackend(config.LLMConfig{}))
}

func TestNewClient_NotConfigured(t *testing.T) {
	c, err := NewClient(config.LLMConfig{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.Nil(t, c)
}

func TestNewClient_UsesDeploymentAsModel(t *testing.T) {
	c, err := NewClient(config.LLMConfig{
		AzureAPIKey:     "key",
		AzureEndpoint:   "https://example.openai.azure.com",
		AzureDeployment: "my-deployment",
	})

	require.NoError(t, err)
	assert.Equal(t, BackendAzure, c.Backend())
	assert.Equal(t, "my-deployment", c.model)
}

func TestBackendKind_String(t *testing.T) {
	assert.Equal(t, "none", BackendNone.String())
	assert.Equal(t, "openai", BackendOpenAI.String())
	assert.Equal(t, "azure", BackendAzure.String())
}
