// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.parley/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Model: completion/vision model selection, temperature, max tokens
//   - Storage: PostgreSQL connection (see storage.go)
//   - Adapters: web search, weather, image generation (see adapters.go)
//   - Server: listen address, auth secret
//   - Tracing: OTLP exporter endpoint
//
// Security: sensitive values (API keys, auth secret, DB password) are never
// logged; MarshalJSON masks them explicitly.
//
// Error handling uses sentinel errors so callers can check with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrMissingAuthSecret indicates the auth token secret is not set.
	ErrMissingAuthSecret = errors.New("missing auth secret")

	// ErrInvalidAuthSecret indicates the auth token secret is too short.
	ErrInvalidAuthSecret = errors.New("invalid auth secret")

	// ErrInvalidHistoryWindow indicates the history window is out of range.
	ErrInvalidHistoryWindow = errors.New("invalid history window")

	// ErrInvalidQuota indicates the freemium quota parameters are invalid.
	ErrInvalidQuota = errors.New("invalid freemium quota")
)

const (
	// DefaultModelName is the default completion model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultVisionModelName is the default multimodal model. The flash
	// models accept inline image parts, so the default is shared.
	DefaultVisionModelName = "gemini-2.5-flash"

	// DefaultHistoryWindow is the number of prior turns forwarded to the
	// completion adapter as conversation context.
	DefaultHistoryWindow = 10

	// MaxHistoryWindow bounds the context window to keep prompts small.
	MaxHistoryWindow = 100
)

// FreemiumConfig holds the bootstrap quota parameters. They seed the
// runtime settings document on first start; afterwards the persisted
// settings document is authoritative.
type FreemiumConfig struct {
	Enabled      bool `mapstructure:"enabled" json:"enabled"`
	MessageLimit int  `mapstructure:"message_limit" json:"message_limit"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update it.
type Config struct {
	// Model configuration
	ModelName       string  `mapstructure:"model_name" json:"model_name"`
	VisionModelName string  `mapstructure:"vision_model_name" json:"vision_model_name"`
	Temperature     float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens" json:"max_tokens"`
	GeminiAPIKey    string  `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON

	// Conversation configuration
	HistoryWindow int            `mapstructure:"history_window" json:"history_window"`
	Freemium      FreemiumConfig `mapstructure:"freemium" json:"freemium"`

	// Web search bootstrap flag (runtime settings document overrides it)
	WebSearchEnabled bool `mapstructure:"web_search_enabled" json:"web_search_enabled"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Adapter configuration (see adapters.go)
	SearXNG    SearXNGConfig    `mapstructure:"searxng" json:"searxng"`
	WebScraper WebScraperConfig `mapstructure:"web_scraper" json:"web_scraper"`
	Weather    WeatherConfig    `mapstructure:"weather" json:"weather"`
	ImageGen   ImageGenConfig   `mapstructure:"imagegen" json:"imagegen"`

	// Server configuration
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	AuthSecret string `mapstructure:"auth_secret" json:"auth_secret"` // SENSITIVE: masked in MarshalJSON
	TrustProxy bool   `mapstructure:"trust_proxy" json:"trust_proxy"`

	// Tracing configuration
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// TracingConfig configures the optional OTLP trace exporter.
type TracingConfig struct {
	// Endpoint is the OTLP HTTP endpoint (host:port). Empty disables tracing.
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".parley")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL takes priority over individual postgres fields
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Model defaults
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("vision_model_name", DefaultVisionModelName)
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 2048)

	// Conversation defaults
	viper.SetDefault("history_window", DefaultHistoryWindow)
	viper.SetDefault("freemium.enabled", false)
	viper.SetDefault("freemium.message_limit", 10)
	viper.SetDefault("web_search_enabled", false)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "parley")
	viper.SetDefault("postgres_password", "parley_dev_password")
	viper.SetDefault("postgres_db_name", "parley")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// SearXNG defaults
	viper.SetDefault("searxng.base_url", "http://localhost:8888")
	viper.SetDefault("searxng.max_results", 3)

	// WebScraper defaults
	viper.SetDefault("web_scraper.enabled", false)
	viper.SetDefault("web_scraper.parallelism", 2)
	viper.SetDefault("web_scraper.delay_ms", 1000)
	viper.SetDefault("web_scraper.timeout_ms", 30000)
	viper.SetDefault("web_scraper.max_page_bytes", 2*1024*1024)

	// Weather defaults
	viper.SetDefault("weather.base_url", "https://api.weatherapi.com/v1")

	// Image generation defaults
	viper.SetDefault("imagegen.base_url", "https://api.replicate.com/v1")
	viper.SetDefault("imagegen.poll_interval_ms", 2000)
	viper.SetDefault("imagegen.max_poll_attempts", 30)

	// Server defaults
	viper.SetDefault("listen_addr", "127.0.0.1:3400")
	viper.SetDefault("trust_proxy", false)

	// Tracing defaults (endpoint empty = disabled)
	viper.SetDefault("tracing.service_name", "parley")
	viper.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds sensitive environment variables explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Adapter credentials
	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("weather.api_key", "WEATHER_API_KEY")
	mustBind("imagegen.api_key", "IMAGEGEN_API_KEY")
	mustBind("searxng.base_url", "SEARXNG_BASE_URL")

	// Auth token secret
	mustBind("auth_secret", "PARLEY_AUTH_SECRET")

	// Server overrides
	mustBind("listen_addr", "PARLEY_LISTEN_ADDR")
	mustBind("trust_proxy", "PARLEY_TRUST_PROXY")

	// Model overrides
	mustBind("model_name", "PARLEY_MODEL_NAME")
	mustBind("vision_model_name", "PARLEY_VISION_MODEL_NAME")

	// Tracing
	mustBind("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matches against the
// real secret in log output.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars or
// fewer are fully masked; longer secrets keep the first and last 2 chars for
// debug utility. This defends against accidental logging, not against a
// compromised log store.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked: PostgresPassword, AuthSecret, GeminiAPIKey,
// Weather.APIKey, ImageGen.APIKey. When adding new sensitive fields, update
// this method or the nested struct's MarshalJSON.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.AuthSecret = maskSecret(a.AuthSecret)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.Weather.APIKey = maskSecret(a.Weather.APIKey)
	a.ImageGen.APIKey = maskSecret(a.ImageGen.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
