// Package weather provides current-conditions lookup against a
// weatherapi.com compatible endpoint.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/koopa0/parley/internal/config"
	"github.com/koopa0/parley/internal/log"
)

var (
	// ErrMissingCredential indicates no API key is configured.
	ErrMissingCredential = errors.New("missing credential")
	// ErrCredentialInvalid indicates the configured API key was rejected.
	ErrCredentialInvalid = errors.New("credential invalid")
	// ErrLocationNotFound indicates the provider could not resolve the
	// requested location.
	ErrLocationNotFound = errors.New("location not found")
	// ErrUnavailable indicates a transport or provider failure.
	ErrUnavailable = errors.New("weather service unavailable")
)

// locationNotFoundCode is weatherapi.com's error code for an unresolvable
// location query.
const locationNotFoundCode = 1006

// Report is the current-conditions summary for one location.
type Report struct {
	Location   string  `json:"location"`
	TempC      float64 `json:"temp_c"`
	Condition  string  `json:"condition"`
	WindKph    float64 `json:"wind_kph"`
	Humidity   int     `json:"humidity"`
	LocalTime  string  `json:"local_time"`
	FeelsLikeC float64 `json:"feelslike_c"`
}

// Client fetches current conditions. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates a weather client.
func NewClient(cfg config.WeatherConfig, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

type currentResponse struct {
	Location struct {
		Name      string `json:"name"`
		Country   string `json:"country"`
		Localtime string `json:"localtime"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
		WindKph    float64 `json:"wind_kph"`
		Humidity   int     `json:"humidity"`
		FeelsLikeC float64 `json:"feelslike_c"`
	} `json:"current"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Current fetches current conditions for a free-form location query.
func (c *Client) Current(ctx context.Context, location string) (Report, error) {
	if c.apiKey == "" {
		return Report{}, ErrMissingCredential
	}

	params := url.Values{
		"key": {c.apiKey},
		"q":   {location},
	}
	reqURL := fmt.Sprintf("%s/current.json?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Report{}, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return Report{}, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return Report{}, c.mapError(resp.StatusCode, body)
	}

	var cr currentResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return Report{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	name := cr.Location.Name
	if cr.Location.Country != "" {
		name += ", " + cr.Location.Country
	}

	c.logger.Debug("weather lookup", "location", location, "resolved", name)
	return Report{
		Location:   name,
		TempC:      cr.Current.TempC,
		Condition:  cr.Current.Condition.Text,
		WindKph:    cr.Current.WindKph,
		Humidity:   cr.Current.Humidity,
		LocalTime:  cr.Location.Localtime,
		FeelsLikeC: cr.Current.FeelsLikeC,
	}, nil
}

func (c *Client) mapError(status int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrCredentialInvalid, er.Error.Message)
	case status == http.StatusBadRequest && er.Error.Code == locationNotFoundCode:
		return fmt.Errorf("%w: %s", ErrLocationNotFound, er.Error.Message)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, status, er.Error.Message)
	}
}

// Format renders a report as a short assistant-facing summary.
func (r Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current weather in %s:\n", r.Location)
	fmt.Fprintf(&b, "- Condition: %s\n", r.Condition)
	fmt.Fprintf(&b, "- Temperature: %.1f°C (feels like %.1f°C)\n", r.TempC, r.FeelsLikeC)
	fmt.Fprintf(&b, "- Wind: %.1f km/h\n", r.WindKph)
	fmt.Fprintf(&b, "- Humidity: %d%%\n", r.Humidity)
	if r.LocalTime != "" {
		fmt.Fprintf(&b, "- Local time: %s\n", r.LocalTime)
	}
	return strings.TrimRight(b.String(), "\n")
}
