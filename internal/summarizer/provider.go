package summarizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// Supported providers.
const (
	ProviderMistral   = "mistral"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	// DefaultProvider is used when no provider is configured.
	DefaultProvider = ProviderMistral

	// DefaultMistralURL is the OpenAI-compatible endpoint of the Mistral platform.
	DefaultMistralURL = "https://api.mistral.ai/v1"
	// DefaultOllamaURL is the default URL for a local Ollama server.
	DefaultOllamaURL  = "http://localhost:11434"

	defaultAnthropicMaxTokens = 4096

	errorMissingAPIKeyFormat       = "%s API key is required (set %s)"
	errorUnsupportedProviderFormat = "unsupported summarizer provider: %s (supported: mistral, openai, ollama, anthropic, gemini)"
	errorCreateGeminiClientFormat  = "create gemini client: %w"
)

var (
	defaultModels = map[string]string{
		ProviderMistral:   "mistral-large-latest",
		ProviderOpenAI:    "gpt-4o-mini",
		ProviderOllama:    "llama3.1",
		ProviderAnthropic: "claude-3-5-haiku-latest",
		ProviderGemini:    "gemini-2.0-flash",
	}
	defaultAPIKeyEnvironment = map[string]string{
		ProviderMistral:   "MISTRAL_API_KEY",
		ProviderOpenAI:    "OPENAI_API_KEY",
		ProviderAnthropic: "ANTHROPIC_API_KEY",
		ProviderGemini:    "GEMINI_API_KEY",
	}
)

// ErrUnsupportedProvider is returned for provider names outside the supported set.
var ErrUnsupportedProvider = errors.New("unsupported summarizer provider")

// Config selects and configures a chat-model backend.
type Config struct {
	Provider       string
	Model          string
	APIKey         string
	APIKeyEnv      string
	BaseURL        string
	RequestTimeout time.Duration
}

// DefaultModelForProvider returns the model used when none is configured.
func DefaultModelForProvider(provider string) string {
	return defaultModels[strings.ToLower(provider)]
}

// DefaultAPIKeyEnvironment returns the environment variable holding the provider's API key.
// Ollama needs no key and yields an empty name.
func DefaultAPIKeyEnvironment(provider string) string {
	return defaultAPIKeyEnvironment[strings.ToLower(provider)]
}

// Resolve fills the provider, model, and API key defaults. The API key is read from the
// environment variable named by APIKeyEnv when not given directly.
func (config Config) Resolve() (Config, error) {
	resolved := config
	resolved.Provider = strings.ToLower(strings.TrimSpace(resolved.Provider))
	if resolved.Provider == "" {
		resolved.Provider = DefaultProvider
	}
	if _, supported := defaultModels[resolved.Provider]; !supported {
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, resolved.Provider)
	}
	if resolved.Model == "" {
		resolved.Model = DefaultModelForProvider(resolved.Provider)
	}
	if resolved.APIKeyEnv == "" {
		resolved.APIKeyEnv = DefaultAPIKeyEnvironment(resolved.Provider)
	}
	if resolved.APIKey == "" && resolved.APIKeyEnv != "" {
		resolved.APIKey = strings.TrimSpace(os.Getenv(resolved.APIKeyEnv))
	}
	if resolved.Provider == ProviderMistral && resolved.BaseURL == "" {
		resolved.BaseURL = DefaultMistralURL
	}
	if resolved.Provider == ProviderOllama && resolved.BaseURL == "" {
		resolved.BaseURL = DefaultOllamaURL
	}
	return resolved, nil
}

// NewChatModel creates the chat model for a resolved configuration. Mistral is reached through
// its OpenAI-compatible endpoint.
func NewChatModel(ctx context.Context, config Config) (model.BaseChatModel, error) {
	switch config.Provider {
	case ProviderMistral, ProviderOpenAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf(errorMissingAPIKeyFormat, config.Provider, config.APIKeyEnv)
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Model:   config.Model,
			Timeout: config.RequestTimeout,
		})

	case ProviderOllama:
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: config.BaseURL,
			Model:   config.Model,
			Timeout: config.RequestTimeout,
		})

	case ProviderAnthropic:
		if config.APIKey == "" {
			return nil, fmt.Errorf(errorMissingAPIKeyFormat, config.Provider, config.APIKeyEnv)
		}
		anthropicConfig := &claude.Config{
			APIKey:    config.APIKey,
			Model:     config.Model,
			MaxTokens: defaultAnthropicMaxTokens,
		}
		if config.BaseURL != "" {
			baseURL := config.BaseURL
			anthropicConfig.BaseURL = &baseURL
		}
		return claude.NewChatModel(ctx, anthropicConfig)

	case ProviderGemini:
		if config.APIKey == "" {
			return nil, fmt.Errorf(errorMissingAPIKeyFormat, config.Provider, config.APIKeyEnv)
		}
		client, clientErr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  config.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if clientErr != nil {
			return nil, fmt.Errorf(errorCreateGeminiClientFormat, clientErr)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  config.Model,
		})

	default:
		return nil, fmt.Errorf(errorUnsupportedProviderFormat, config.Provider)
	}
}
