package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/abelbrown/viralscope/internal/model"
)

// Config is the persistent application configuration
type Config struct {
	// AI providers
	Providers ProvidersConfig `json:"providers"`

	// HTTP server and request gate
	Server ServerConfig `json:"server"`

	// Post sources
	Sources SourcesConfig `json:"sources"`

	// Persistence
	Store StoreConfig `json:"store"`

	// Analysis pipeline
	Analysis AnalysisConfig `json:"analysis"`
}

// ProvidersConfig holds settings for every provider kind
type ProvidersConfig struct {
	OpenAI    ProviderSettings `json:"openai"`
	Claude    ProviderSettings `json:"claude"`
	Gemini    ProviderSettings `json:"gemini"`
	Grok      ProviderSettings `json:"grok"`
	Preferred string           `json:"preferred,omitempty"`
}

// ProviderSettings for a single AI provider
type ProviderSettings struct {
	Enabled  bool   `json:"enabled"`
	APIKey   string `json:"api_key,omitempty"`
	Endpoint string `json:"endpoint,omitempty"` // override, mostly for proxies and tests
	Model    string `json:"model,omitempty"`
}

// ServerConfig holds the HTTP shell settings
type ServerConfig struct {
	Addr      string  `json:"addr"`
	RateLimit float64 `json:"rate_limit"` // requests per second per client
	RateBurst int     `json:"rate_burst"`
	LogLevel  string  `json:"log_level"`
	GinMode   string  `json:"gin_mode"`
}

// SourcesConfig configures where posts come from
type SourcesConfig struct {
	// Feeds maps a niche to channel feed URLs (YouTube Atom feeds work as-is).
	Feeds map[string][]string `json:"feeds,omitempty"`
	// Seed for the demo generator. Zero means time-seeded.
	Seed int64 `json:"seed"`
}

// StoreConfig holds persistence settings
type StoreConfig struct {
	DBPath        string `json:"db_path"`
	RedisAddr     string `json:"redis_addr,omitempty"` // saved items go to redis when set
	SavedTTLHours int    `json:"saved_ttl_hours"`
}

// AnalysisConfig holds pipeline settings
type AnalysisConfig struct {
	Concurrency int    `json:"concurrency"`
	DefaultMode string `json:"default_mode"`
	MaxPosts    int    `json:"max_posts"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			OpenAI: ProviderSettings{Model: "gpt-4o-mini"},
			Claude: ProviderSettings{Model: "claude-sonnet-4-5-20250929"},
			Gemini: ProviderSettings{Model: "gemini-2.5-flash"},
			Grok:   ProviderSettings{Model: "grok-3-mini"},
		},
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 1,
			RateBurst: 10,
			LogLevel:  "info",
			GinMode:   "release",
		},
		Store: StoreConfig{
			DBPath:        filepath.Join(DataDir(), "viralscope.db"),
			SavedTTLHours: 24 * 30,
		},
		Analysis: AnalysisConfig{
			Concurrency: 4,
			DefaultMode: string(model.ModeFull),
			MaxPosts:    20,
		},
	}
}

// DataDir returns ~/.viralscope
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".viralscope")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	if p := os.Getenv("VIRALSCOPE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "config.json")
}

// Load reads config from disk (or defaults) and overlays the environment.
// .env files in the working directory are loaded first.
func Load() (*Config, error) {
	LoadEnv()
	return LoadFile(ConfigPath())
}

// LoadFile reads config from path. A missing file yields defaults.
// The environment always wins over the file.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			cfg = DefaultConfig()
		}
	}

	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	path := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // Restrictive permissions for API keys
}

// AutoPopulateFromEnv fills in API keys and overrides from environment variables
func (c *Config) AutoPopulateFromEnv() {
	c.applyKeys(os.Getenv)

	setModel := func(s *ProviderSettings, key string) {
		if v := os.Getenv(key); v != "" {
			s.Model = v
		}
	}
	setModel(&c.Providers.OpenAI, "OPENAI_MODEL")
	setModel(&c.Providers.Claude, "CLAUDE_MODEL")
	setModel(&c.Providers.Gemini, "GEMINI_MODEL")
	setModel(&c.Providers.Grok, "GROK_MODEL")

	c.Providers.Preferred = GetEnv("VIRALSCOPE_PROVIDER", c.Providers.Preferred)
	c.Server.Addr = GetEnv("VIRALSCOPE_ADDR", c.Server.Addr)
	c.Server.RateLimit = GetEnvFloat("VIRALSCOPE_RATE_LIMIT", c.Server.RateLimit)
	c.Server.RateBurst = GetEnvInt("VIRALSCOPE_RATE_BURST", c.Server.RateBurst)
	c.Server.LogLevel = GetEnv("LOG_LEVEL", c.Server.LogLevel)
	c.Server.GinMode = GetEnv("GIN_MODE", c.Server.GinMode)
	c.Store.DBPath = GetEnv("VIRALSCOPE_DB", c.Store.DBPath)
	c.Store.RedisAddr = GetEnv("VIRALSCOPE_REDIS_ADDR", c.Store.RedisAddr)
	c.Sources.Seed = int64(GetEnvInt("VIRALSCOPE_SEED", int(c.Sources.Seed)))
}

// applyKeys sets provider keys from a lookup function. Later aliases win.
func (c *Config) applyKeys(get func(string) string) {
	set := func(s *ProviderSettings, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(get(k)); v != "" {
				s.APIKey = v
				s.Enabled = true
			}
		}
	}
	set(&c.Providers.OpenAI, "OPENAI_API_KEY")
	set(&c.Providers.Claude, "CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
	set(&c.Providers.Gemini, "GOOGLE_API_KEY", "GEMINI_API_KEY")
	set(&c.Providers.Grok, "XAI_API_KEY", "GROK_API_KEY")
}

// Provider returns the settings for kind.
func (c *Config) Provider(kind model.ProviderKind) ProviderSettings {
	switch kind {
	case model.ProviderOpenAI:
		return c.Providers.OpenAI
	case model.ProviderClaude:
		return c.Providers.Claude
	case model.ProviderGemini:
		return c.Providers.Gemini
	case model.ProviderGrok:
		return c.Providers.Grok
	}
	return ProviderSettings{}
}

// EnabledProviders returns providers that are enabled and have API keys,
// in fallback priority order
func (c *Config) EnabledProviders() []model.ProviderKind {
	var kinds []model.ProviderKind
	for _, kind := range model.PriorityOrder {
		s := c.Provider(kind)
		if s.Enabled && s.APIKey != "" {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
