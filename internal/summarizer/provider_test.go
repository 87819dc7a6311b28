package summarizer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/reposum/internal/summarizer"
)

func TestConfigResolveDefaults(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", " secret ")
	resolved, err := summarizer.Config{}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, summarizer.ProviderMistral, resolved.Provider)
	assert.Equal(t, "mistral-large-latest", resolved.Model)
	assert.Equal(t, "MISTRAL_API_KEY", resolved.APIKeyEnv)
	assert.Equal(t, "secret", resolved.APIKey)
	assert.Equal(t, summarizer.DefaultMistralURL, resolved.BaseURL)
}

func TestConfigResolveKeepsExplicitValues(t *testing.T) {
	t.Setenv("CUSTOM_KEY", "from-env")
	resolved, err := summarizer.Config{
		Provider:  "OpenAI",
		Model:     "gpt-4o",
		APIKeyEnv: "CUSTOM_KEY",
		BaseURL:   "https://proxy.example.com/v1",
	}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, summarizer.ProviderOpenAI, resolved.Provider)
	assert.Equal(t, "gpt-4o", resolved.Model)
	assert.Equal(t, "from-env", resolved.APIKey)
	assert.Equal(t, "https://proxy.example.com/v1", resolved.BaseURL)
}

func TestConfigResolveOllamaNeedsNoKey(t *testing.T) {
	resolved, err := summarizer.Config{Provider: summarizer.ProviderOllama}.Resolve()
	require.NoError(t, err)
	assert.Empty(t, resolved.APIKeyEnv)
	assert.Equal(t, summarizer.DefaultOllamaURL, resolved.BaseURL)
}

func TestConfigResolveRejectsUnknownProvider(t *testing.T) {
	_, err := summarizer.Config{Provider: "bedrock"}.Resolve()
	assert.ErrorIs(t, err, summarizer.ErrUnsupportedProvider)
}

func TestNewChatModelRequiresAPIKey(t *testing.T) {
	for _, provider := range []string{summarizer.ProviderMistral, summarizer.ProviderOpenAI, summarizer.ProviderAnthropic, summarizer.ProviderGemini} {
		t.Run(provider, func(t *testing.T) {
			_, err := summarizer.NewChatModel(context.Background(), summarizer.Config{
				Provider:  provider,
				APIKeyEnv: summarizer.DefaultAPIKeyEnvironment(provider),
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), summarizer.DefaultAPIKeyEnvironment(provider))
		})
	}
}

func TestNewBuildsOfflineProviders(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	for _, provider := range []string{summarizer.ProviderOpenAI, summarizer.ProviderOllama} {
		t.Run(provider, func(t *testing.T) {
			chatSummarizer, err := summarizer.New(context.Background(), summarizer.Config{Provider: provider, RequestTimeout: time.Second})
			require.NoError(t, err)
			assert.Equal(t, provider, chatSummarizer.Provider())
			assert.Equal(t, summarizer.DefaultModelForProvider(provider), chatSummarizer.Model())
		})
	}
}
