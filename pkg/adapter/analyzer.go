package adapter

import (
	"context"
	"strings"

	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const imageMediaType = "image/jpeg"

// Analyzer is the external multimodal model. Errors carry the provider's description,
// which callers classify by substring.
type Analyzer interface {
	// AnalyzeImage sends a base64 encoded JPEG with an instruction and returns the raw reply.
	AnalyzeImage(ctx context.Context, imageBase64, prompt string) (string, error)

	// Chat asks a text-only follow-up question with background context.
	Chat(ctx context.Context, background, question string) (string, error)
}

// NewAnalyzer builds the analyzer selected by cfg.Provider and cfg.API.Type.
func NewAnalyzer(ctx context.Context, cfg model.ModelConfig) (Analyzer, error) {
	switch cfg.Provider {
	case model.ProviderOllama:
		return NewOllama(cfg.Ollama.Endpoint, cfg.Ollama.Model), nil

	case model.ProviderAPI, "":
		if strings.TrimSpace(cfg.API.APIKey) == "" {
			return nil, goerr.New("api key is not configured", goerr.V("type", cfg.API.Type))
		}

		switch cfg.API.Type {
		case model.APITypeOpenAI, "":
			return NewOpenAI(cfg.API.APIKey, cfg.API.Model, WithEndpoint(cfg.API.Endpoint)), nil
		case model.APITypeAnthropic:
			endpoint, modelName := withoutOpenAIDefaults(cfg.API)
			return NewClaude(cfg.API.APIKey, modelName, WithEndpoint(endpoint)), nil
		case model.APITypeGemini:
			_, modelName := withoutOpenAIDefaults(cfg.API)
			return NewGemini(ctx, cfg.API.APIKey, modelName)
		default:
			return nil, goerr.New("unknown api type", goerr.V("type", cfg.API.Type))
		}

	default:
		return nil, goerr.New("unknown model provider", goerr.V("provider", cfg.Provider))
	}
}

// withoutOpenAIDefaults drops the endpoint and model when they are still the OpenAI
// defaults, so switching api.type alone selects the provider's own defaults.
func withoutOpenAIDefaults(cfg model.APIConfig) (endpoint, modelName string) {
	endpoint, modelName = cfg.Endpoint, cfg.Model
	if endpoint == model.DefaultOpenAIEndpoint {
		endpoint = ""
	}
	if modelName == model.DefaultOpenAIModel {
		modelName = ""
	}
	return endpoint, modelName
}

// ClientOption configures the HTTP based analyzers.
type ClientOption func(*clientConfig)

type clientConfig struct {
	endpoint  string
	maxTokens int64
}

// WithEndpoint overrides the provider's base URL. Empty keeps the default.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *clientConfig) {
		c.endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	}
}

func WithMaxTokens(n int64) ClientOption {
	return func(c *clientConfig) {
		c.maxTokens = n
	}
}

func newClientConfig(opts []ClientOption) *clientConfig {
	c := &clientConfig{maxTokens: 2048}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
