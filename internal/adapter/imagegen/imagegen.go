// Package imagegen provides image generation through a prediction-style
// API: one request creates a prediction, then the client polls until the
// prediction reaches a terminal status.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
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
	// ErrGenerationFailed indicates the provider reported the prediction
	// as failed or canceled.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrTimeout indicates the prediction did not reach a terminal status
	// within the polling budget. Distinct from ErrGenerationFailed: the
	// provider never reported an outcome.
	ErrTimeout = errors.New("generation timed out")
	// ErrUnavailable indicates a transport or provider failure.
	ErrUnavailable = errors.New("image service unavailable")
)

// Prediction statuses reported by the provider.
const (
	statusStarting   = "starting"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusCanceled   = "canceled"
)

// Client generates images. Safe for concurrent use.
type Client struct {
	cfg        config.ImageGenConfig
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates an image generation client.
func NewClient(cfg config.ImageGenConfig, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

type prediction struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
}

// Generate creates a prediction for prompt and polls until it succeeds,
// fails, or the polling budget is exhausted. Returns the URL of the first
// generated image.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingCredential
	}

	pred, err := c.create(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.logger.Debug("prediction created", "id", pred.ID, "status", pred.Status)

	for attempt := 0; attempt < c.cfg.MaxPollAttempts; attempt++ {
		if done, result, err := c.resolve(pred); done {
			return result, err
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.cfg.PollInterval()):
		}

		pred, err = c.get(ctx, pred.ID)
		if err != nil {
			return "", err
		}
	}

	if done, result, err := c.resolve(pred); done {
		return result, err
	}
	return "", fmt.Errorf("%w: still %s after %d polls", ErrTimeout, pred.Status, c.cfg.MaxPollAttempts)
}

// resolve interprets a prediction's status. done is false while the
// prediction is still in flight.
func (c *Client) resolve(pred prediction) (done bool, result string, err error) {
	switch pred.Status {
	case statusSucceeded:
		if len(pred.Output) == 0 {
			return true, "", fmt.Errorf("%w: succeeded with no output", ErrGenerationFailed)
		}
		return true, pred.Output[0], nil
	case statusFailed, statusCanceled:
		msg := pred.Error
		if msg == "" {
			msg = pred.Status
		}
		return true, "", fmt.Errorf("%w: %s", ErrGenerationFailed, msg)
	case statusStarting, statusProcessing:
		return false, "", nil
	default:
		return true, "", fmt.Errorf("%w: unknown status %q", ErrUnavailable, pred.Status)
	}
}

func (c *Client) create(ctx context.Context, prompt string) (prediction, error) {
	payload := map[string]any{
		"version": c.cfg.Version,
		"input":   map[string]string{"prompt": prompt},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return prediction{}, fmt.Errorf("imagegen: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.cfg.BaseURL, "/")+"/predictions", bytes.NewReader(body))
	if err != nil {
		return prediction{}, fmt.Errorf("imagegen: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) get(ctx context.Context, id string) (prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(c.cfg.BaseURL, "/")+"/predictions/"+id, nil)
	if err != nil {
		return prediction{}, fmt.Errorf("imagegen: build request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return prediction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return prediction{}, ErrCredentialInvalid
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return prediction{}, fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return prediction{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return pred, nil
}
