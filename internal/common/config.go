package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment" validate:"oneof=development production"`
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Cache       CacheConfig     `toml:"cache"`
	RateLimit   RateLimitConfig `toml:"ratelimit"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Providers   ProvidersConfig `toml:"providers"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents the optional persistent cache tier.
// An empty path disables the Badger tier; the cache runs memory-only.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// CacheConfig holds per-category TTLs as duration strings (e.g. "5m").
type CacheConfig struct {
	QuoteTTL      string `toml:"quote_ttl"`
	NewsTTL       string `toml:"news_ttl"`
	HistoricalTTL string `toml:"historical_ttl"`
	ProfileTTL    string `toml:"profile_ttl"`
}

// RateLimitConfig controls sliding-window admission.
// Client settings gate end-user requests; provider windows gate
// outbound calls per upstream data source.
type RateLimitConfig struct {
	ClientLimit  int    `toml:"client_limit" validate:"gte=1"`
	ClientWindow string `toml:"client_window"`
}

// PipelineConfig holds deadlines and fan-out tuning for the analysis pipeline.
type PipelineConfig struct {
	RequestTimeout      string  `toml:"request_timeout"` // end-to-end deadline
	GatherTimeout       string  `toml:"gather_timeout"`  // shared deadline for the parallel fetches
	ProbeTimeout        string  `toml:"probe_timeout"`   // ticker existence probe
	ConfidenceThreshold float64 `toml:"confidence_threshold" validate:"gte=0,lte=1"`
	LookbackDays        []int   `toml:"lookback_days"`
	MaxNewsItems        int     `toml:"max_news_items" validate:"gte=1"`
	NewsDaysBack        int     `toml:"news_days_back" validate:"gte=1"`
}

// ProviderConfig is the shared shape for one upstream market data source.
type ProviderConfig struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	RequestsPerMinute int    `toml:"requests_per_minute" validate:"gte=1"`
	Window            string `toml:"window"` // sliding window for fallback admission
}

// ProvidersConfig holds all upstream sources and the ordered fallback
// chains per capability. Order matters: first entry is tried first.
type ProvidersConfig struct {
	Finnhub      ProviderConfig `toml:"finnhub"`
	TwelveData   ProviderConfig `toml:"twelvedata"`
	AlphaVantage ProviderConfig `toml:"alphavantage"`
	Marketaux    ProviderConfig `toml:"marketaux"`

	QuoteOrder      []string `toml:"quote_order"`
	NewsOrder       []string `toml:"news_order"`
	HistoricalOrder []string `toml:"historical_order"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "", // memory-only by default
			},
		},
		Cache: CacheConfig{
			QuoteTTL:      "5m",
			NewsTTL:       "30m",
			HistoricalTTL: "1h",
			ProfileTTL:    "24h",
		},
		RateLimit: RateLimitConfig{
			ClientLimit:  100,
			ClientWindow: "60s",
		},
		Pipeline: PipelineConfig{
			RequestTimeout:      "30s",
			GatherTimeout:       "20s",
			ProbeTimeout:        "5s",
			ConfidenceThreshold: 0.5,
			LookbackDays:        []int{7, 30},
			MaxNewsItems:        10,
			NewsDaysBack:        7,
		},
		Providers: ProvidersConfig{
			Finnhub: ProviderConfig{
				BaseURL:           "https://finnhub.io/api/v1",
				RequestsPerMinute: 60,
				Window:            "60s",
			},
			TwelveData: ProviderConfig{
				BaseURL:           "https://api.twelvedata.com",
				RequestsPerMinute: 8,
				Window:            "60s",
			},
			AlphaVantage: ProviderConfig{
				BaseURL:           "https://www.alphavantage.co/query",
				RequestsPerMinute: 5,
				Window:            "60s",
			},
			Marketaux: ProviderConfig{
				BaseURL:           "https://api.marketaux.com/v1",
				RequestsPerMinute: 20,
				Window:            "60s",
			},
			QuoteOrder:      []string{"finnhub", "twelvedata"},
			NewsOrder:       []string{"finnhub", "marketaux"},
			HistoricalOrder: []string{"alphavantage", "twelvedata"},
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "60s",
			Temperature: 0.3,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			Timeout:     "60s",
			Temperature: 0.3,
			MaxTokens:   4096,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override everything.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks struct tags and the duration fields that toml cannot
// verify on its own.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	durations := map[string]string{
		"cache.quote_ttl":           c.Cache.QuoteTTL,
		"cache.news_ttl":            c.Cache.NewsTTL,
		"cache.historical_ttl":      c.Cache.HistoricalTTL,
		"cache.profile_ttl":         c.Cache.ProfileTTL,
		"ratelimit.client_window":   c.RateLimit.ClientWindow,
		"pipeline.request_timeout":  c.Pipeline.RequestTimeout,
		"pipeline.gather_timeout":   c.Pipeline.GatherTimeout,
		"pipeline.probe_timeout":    c.Pipeline.ProbeTimeout,
		"providers.finnhub.window":  c.Providers.Finnhub.Window,
		"providers.twelvedata.window":   c.Providers.TwelveData.Window,
		"providers.alphavantage.window": c.Providers.AlphaVantage.Window,
		"providers.marketaux.window":    c.Providers.Marketaux.Window,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config %s: invalid duration %q: %w", name, value, err)
		}
		if d <= 0 {
			return fmt.Errorf("config %s: duration must be positive, got %q", name, value)
		}
	}

	for _, days := range c.Pipeline.LookbackDays {
		if days <= 0 {
			return fmt.Errorf("config pipeline.lookback_days: values must be positive, got %d", days)
		}
	}

	return nil
}

// Duration parses a duration string that Validate has already checked.
// Falls back to the given default when the value is empty.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PERITUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("PERITUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PERITUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("PERITUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PERITUS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("PERITUS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Rate limit configuration
	if limit := os.Getenv("PERITUS_RATELIMIT_CLIENT_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.RateLimit.ClientLimit = l
		}
	}
	if window := os.Getenv("PERITUS_RATELIMIT_CLIENT_WINDOW"); window != "" {
		config.RateLimit.ClientWindow = window
	}

	// Pipeline configuration
	if timeout := os.Getenv("PERITUS_PIPELINE_REQUEST_TIMEOUT"); timeout != "" {
		config.Pipeline.RequestTimeout = timeout
	}
	if timeout := os.Getenv("PERITUS_PIPELINE_GATHER_TIMEOUT"); timeout != "" {
		config.Pipeline.GatherTimeout = timeout
	}

	// Provider API keys
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		config.Providers.Finnhub.APIKey = key
	}
	if key := os.Getenv("TWELVE_DATA_API_KEY"); key != "" {
		config.Providers.TwelveData.APIKey = key
	}
	if key := os.Getenv("ALPHA_VANTAGE_API_KEY"); key != "" {
		config.Providers.AlphaVantage.APIKey = key
	}
	if key := os.Getenv("MARKETAUX_API_KEY"); key != "" {
		config.Providers.Marketaux.APIKey = key
	}

	// LLM API keys
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if provider := os.Getenv("PERITUS_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}
