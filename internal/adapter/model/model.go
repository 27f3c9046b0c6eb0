// Package model provides the chat and vision completion adapters over the
// Gemini API.
//
// The adapter surface is deliberately thin: one call per completion, no
// tool calling, no streaming. Failures are mapped onto the sentinel errors
// in errors.go so the controller can classify them without inspecting
// provider types.
package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/koopa0/parley/internal/log"
)

// Role identifies the speaker of a history turn.
type Role string

const (
	// RoleUser is a user turn.
	RoleUser Role = "user"
	// RoleModel is an assistant turn.
	RoleModel Role = "model"
)

// Turn is one entry of bounded conversation history passed to a completion.
type Turn struct {
	Role Role
	Text string
}

// supportedImageMIMETypes are the inline image formats the vision model
// accepts. Detected via http.DetectContentType upstream, not extension.
var supportedImageMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Config holds completion adapter configuration.
type Config struct {
	APIKey          string
	ModelName       string
	VisionModelName string
	Temperature     float32
	MaxTokens       int
}

// Client is the completion adapter. Safe for concurrent use.
type Client struct {
	genai   *genai.Client
	cfg     Config
	limiter *rate.Limiter
	logger  log.Logger
}

// NewClient creates a completion adapter against the Gemini API.
func NewClient(ctx context.Context, cfg Config, logger log.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key", ErrMissingCredential)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Client{
		genai: gc,
		cfg:   cfg,
		// 2 requests/second with a small burst smooths over UI-driven
		// rerun storms without adding user-visible latency.
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		logger:  logger,
	}, nil
}

// Complete runs a text chat completion over the bounded history.
func (c *Client) Complete(ctx context.Context, systemInstruction string, history []Turn, current string) (string, error) {
	contents := historyContents(history)
	contents = append(contents, genai.NewContentFromText(current, genai.RoleUser))
	return c.generate(ctx, c.cfg.ModelName, systemInstruction, contents)
}

// CompleteWithImage runs a multimodal completion: the current turn carries
// both text and an inline image. Fails with ErrInvalidImageFormat for
// unsupported image MIME types before any network call.
func (c *Client) CompleteWithImage(ctx context.Context, systemInstruction string, history []Turn, current string, image []byte, mimeType string) (string, error) {
	if !supportedImageMIMETypes[mimeType] {
		return "", fmt.Errorf("%w: %s", ErrInvalidImageFormat, mimeType)
	}
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image payload", ErrInvalidImageFormat)
	}

	parts := []*genai.Part{genai.NewPartFromBytes(image, mimeType)}
	if current != "" {
		parts = append(parts, genai.NewPartFromText(current))
	}

	contents := historyContents(history)
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	return c.generate(ctx, c.cfg.VisionModelName, systemInstruction, contents)
}

// generate issues one GenerateContent call. Each call waits on the rate
// limiter first.
func (c *Client) generate(ctx context.Context, modelName, systemInstruction string, contents []*genai.Content) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.cfg.Temperature),
		MaxOutputTokens: int32(c.cfg.MaxTokens), // #nosec G115 -- bounded by config validation
	}
	if systemInstruction != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	resp, err := c.genai.Models.GenerateContent(ctx, modelName, contents, genCfg)
	if err != nil {
		return "", mapAPIError(err)
	}

	if reason, blocked := blockReason(resp); blocked {
		return "", fmt.Errorf("%w: %s", ErrContentBlocked, reason)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrModelUnavailable)
	}

	c.logger.Debug("completion succeeded", "model", modelName, "chars", len(text))
	return text, nil
}

// historyContents converts bounded history turns to genai contents.
func historyContents(history []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		var role genai.Role = genai.RoleUser
		if t.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return contents
}

// blockReason reports whether the response was blocked by a safety or
// prompt filter, and why.
func blockReason(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return string(resp.PromptFeedback.BlockReason), true
	}
	for _, cand := range resp.Candidates {
		if cand.FinishReason == genai.FinishReasonSafety ||
			cand.FinishReason == genai.FinishReasonProhibitedContent {
			return string(cand.FinishReason), true
		}
	}
	return "", false
}

// mapAPIError translates genai API errors to the adapter's sentinel errors.
func mapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		case 404:
			return fmt.Errorf("%w: %s", ErrModelUnavailable, apiErr.Message)
		case 429:
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		}
	}
	return fmt.Errorf("completion: %w", err)
}
