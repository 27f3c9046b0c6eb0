package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// SearXNGConfig holds SearXNG service configuration for web search.
type SearXNGConfig struct {
	// BaseURL is the SearXNG instance URL (e.g., http://searxng:8080)
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// MaxResults caps how many results are injected into model context.
	MaxResults int `mapstructure:"max_results" json:"max_results"`
}

// WebScraperConfig holds web scraper configuration for enriching search
// results with readable page text.
type WebScraperConfig struct {
	// Enabled turns on top-result page fetching.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Parallelism is max concurrent requests per domain (default: 2)
	Parallelism int `mapstructure:"parallelism" json:"parallelism"`
	// DelayMs is delay between requests in milliseconds (default: 1000)
	DelayMs int `mapstructure:"delay_ms" json:"delay_ms"`
	// TimeoutMs is request timeout in milliseconds (default: 30000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
	// MaxPageBytes is the response size cap per fetched page.
	MaxPageBytes int64 `mapstructure:"max_page_bytes" json:"max_page_bytes"`
}

// Timeout returns the request timeout as a Duration.
func (c WebScraperConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Delay returns the per-domain request delay as a Duration.
func (c WebScraperConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// WeatherConfig holds the current-conditions weather API configuration.
type WeatherConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	APIKey  string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c WeatherConfig) MarshalJSON() ([]byte, error) {
	type alias WeatherConfig
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal weather config: %w", err)
	}
	return data, nil
}

// ImageGenConfig holds the image generation (create-then-poll prediction API)
// configuration.
type ImageGenConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	APIKey  string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	// Version identifies the model version submitted with each prediction.
	Version string `mapstructure:"version" json:"version"`
	// PollIntervalMs is the delay between status polls (default: 2000).
	PollIntervalMs int `mapstructure:"poll_interval_ms" json:"poll_interval_ms"`
	// MaxPollAttempts bounds the number of status polls before the
	// generation is treated as timed out (default: 30).
	MaxPollAttempts int `mapstructure:"max_poll_attempts" json:"max_poll_attempts"`
}

// PollInterval returns the poll interval as a Duration.
func (c ImageGenConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c ImageGenConfig) MarshalJSON() ([]byte, error) {
	type alias ImageGenConfig
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal imagegen config: %w", err)
	}
	return data, nil
}
