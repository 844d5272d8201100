package brain

import (
	"strings"
	"time"

	"github.com/abelbrown/viralscope/internal/config"
	"github.com/abelbrown/viralscope/internal/model"
)

const (
	// DefaultTimeout bounds a single provider call
	DefaultTimeout = 60 * time.Second

	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

// ProviderConfig describes how to reach one provider. Built once at
// startup and read-only afterwards.
type ProviderConfig struct {
	Kind     model.ProviderKind
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// IsConfigured reports whether a credential is present
func (c ProviderConfig) IsConfigured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// AuthScheme names how the credential is sent
func (c ProviderConfig) AuthScheme() string {
	switch c.Kind {
	case model.ProviderClaude:
		return "x-api-key"
	case model.ProviderGemini:
		return "query-key"
	default:
		return "bearer"
	}
}

func (c ProviderConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// DefaultEndpoint returns the public API endpoint for kind. For Gemini this
// is the models base; the model name and key are appended per request.
func DefaultEndpoint(kind model.ProviderKind) string {
	switch kind {
	case model.ProviderOpenAI:
		return openAIEndpoint
	case model.ProviderClaude:
		return claudeEndpoint
	case model.ProviderGemini:
		return geminiEndpoint
	case model.ProviderGrok:
		return grokEndpoint
	}
	return ""
}

// DefaultModel returns the model used when none is configured
func DefaultModel(kind model.ProviderKind) string {
	switch kind {
	case model.ProviderOpenAI:
		return openAIModel
	case model.ProviderClaude:
		return claudeModel
	case model.ProviderGemini:
		return geminiModel
	case model.ProviderGrok:
		return grokModel
	}
	return ""
}

// NewProviderConfig fills endpoint and model defaults
func NewProviderConfig(kind model.ProviderKind, apiKey, modelName, endpoint string) ProviderConfig {
	if endpoint == "" {
		endpoint = DefaultEndpoint(kind)
	}
	if modelName == "" {
		modelName = DefaultModel(kind)
	}
	return ProviderConfig{
		Kind:     kind,
		Endpoint: endpoint,
		APIKey:   strings.TrimSpace(apiKey),
		Model:    modelName,
		Timeout:  DefaultTimeout,
	}
}

// ConfigsFrom builds one ProviderConfig per kind in priority order.
// Disabled providers get an empty key so they report unconfigured.
func ConfigsFrom(cfg *config.Config) []ProviderConfig {
	configs := make([]ProviderConfig, 0, len(model.PriorityOrder))
	for _, kind := range model.PriorityOrder {
		s := cfg.Provider(kind)
		key := s.APIKey
		if !s.Enabled {
			key = ""
		}
		configs = append(configs, NewProviderConfig(kind, key, s.Model, s.Endpoint))
	}
	return configs
}

func maxTokensOr(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

func temperatureOr(t, def float64) float64 {
	if t > 0 {
		return t
	}
	return def
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
