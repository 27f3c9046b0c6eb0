// Package chat implements the session controller: it validates a
// submission, routes it to a capability, executes the capability through
// the adapters, and persists the resulting turns.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/koopa0/parley/internal/adapter/model"
	"github.com/koopa0/parley/internal/adapter/weather"
	"github.com/koopa0/parley/internal/adapter/websearch"
	"github.com/koopa0/parley/internal/config"
	"github.com/koopa0/parley/internal/conversation"
	"github.com/koopa0/parley/internal/log"
	"github.com/koopa0/parley/internal/router"
	"github.com/koopa0/parley/internal/settings"
)

// Phase is the processing stage of an in-flight submission.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseRouting    Phase = "routing"
	PhaseExecuting  Phase = "executing"
	PhasePersisting Phase = "persisting"
)

const welcomeText = "Hi! I'm Parley. Ask me anything, send a picture, or try " +
	"\"weather in Taipei\" or \"generate an image of a lighthouse at dusk\"."

const chatSystemInstruction = "You are Parley, a helpful, concise assistant. " +
	"Answer in the language the user writes in."

const visionSystemInstruction = "You are Parley, a helpful assistant. " +
	"Describe and reason about the attached image in the context of the user's message."

// Completer produces chat and vision completions.
type Completer interface {
	Complete(ctx context.Context, systemInstruction string, history []model.Turn, current string) (string, error)
	CompleteWithImage(ctx context.Context, systemInstruction string, history []model.Turn, current string, image []byte, mimeType string) (string, error)
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// WeatherService reports current conditions.
type WeatherService interface {
	Configured() bool
	Current(ctx context.Context, location string) (weather.Report, error)
}

// ImageGenerator creates images from text prompts.
type ImageGenerator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// Controller coordinates one submission at a time per session.
type Controller struct {
	store    *conversation.Store
	settings settings.Store
	router   *router.Router
	model    Completer
	search   Searcher
	weather  WeatherService
	imagegen ImageGenerator
	cfg      config.Config
	logger   log.Logger

	mu     sync.Mutex
	active map[uuid.UUID]Phase
}

// New creates a controller. search, weather and imagegen may be nil when
// the corresponding capability is not wired; the controller degrades or
// reports ErrConfiguration accordingly.
func New(store *conversation.Store, st settings.Store, rt *router.Router, completer Completer,
	search Searcher, wx WeatherService, ig ImageGenerator, cfg config.Config, logger log.Logger) *Controller {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Controller{
		store:    store,
		settings: st,
		router:   rt,
		model:    completer,
		search:   search,
		weather:  wx,
		imagegen: ig,
		cfg:      cfg,
		logger:   logger,
		active:   make(map[uuid.UUID]Phase),
	}
}

// Reply is the outcome of a successful submission: the session the turns
// landed in and the messages appended during the call, in order.
type Reply struct {
	SessionID uuid.UUID              `json:"session_id"`
	Messages  []conversation.Message `json:"messages"`
}

// SessionPhase reports the processing phase of a session. Idle when no
// submission is in flight.
func (c *Controller) SessionPhase(sessionID uuid.UUID) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.active[sessionID]; ok {
		return p
	}
	return PhaseIdle
}

// acquire marks the session busy. Fails with ErrBusy when a submission is
// already in flight. A nil session id always succeeds: the session does
// not exist yet, so nothing can race it.
func (c *Controller) acquire(sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[sessionID]; ok {
		return ErrBusy
	}
	c.active[sessionID] = PhaseValidating
	return nil
}

func (c *Controller) setPhase(sessionID uuid.UUID, p Phase) {
	if sessionID == uuid.Nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[sessionID]; ok {
		c.active[sessionID] = p
	}
}

func (c *Controller) release(sessionID uuid.UUID) {
	if sessionID == uuid.Nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, sessionID)
}

// authorize verifies the session exists and belongs to ownerID.
func (c *Controller) authorize(ctx context.Context, ownerID string, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return nil
	}
	sess, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.OwnerID != ownerID {
		return conversation.ErrNotOwner
	}
	return nil
}

// StartSession creates a session that opens with an assistant welcome
// turn.
func (c *Controller) StartSession(ctx context.Context, ownerID string) (uuid.UUID, conversation.Message, error) {
	sess, err := c.store.CreateSession(ctx, ownerID)
	if err != nil {
		return uuid.Nil, conversation.Message{}, err
	}

	welcome := conversation.Message{Sender: conversation.SenderAssistant, Text: welcomeText}
	if _, _, err := c.store.Append(ctx, sess.ID, ownerID, welcome); err != nil {
		return uuid.Nil, conversation.Message{}, err
	}

	msgs, err := c.store.Read(ctx, sess.ID)
	if err != nil {
		return uuid.Nil, conversation.Message{}, err
	}
	return sess.ID, msgs[len(msgs)-1], nil
}

// Submit processes one user turn. A nil sessionID creates the session
// lazily. Adapter execution failures are reported as assistant turns in
// the conversation rather than as errors; only pre-execution rejections
// (validation, quota, busy, missing configuration) surface as errors.
func (c *Controller) Submit(ctx context.Context, ownerID string, sessionID uuid.UUID, text, imageDataURI string) (Reply, error) {
	if err := c.acquire(sessionID); err != nil {
		return Reply{}, err
	}
	defer c.release(sessionID)

	text = strings.TrimSpace(text)
	if text == "" && imageDataURI == "" {
		return Reply{}, fmt.Errorf("%w: empty message", ErrValidation)
	}

	var imageBytes []byte
	var imageMIME string
	if imageDataURI != "" {
		var err error
		imageBytes, imageMIME, err = model.DecodeImageDataURI(imageDataURI)
		if err != nil {
			return Reply{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	if err := c.authorize(ctx, ownerID, sessionID); err != nil {
		return Reply{}, err
	}

	var prior []conversation.Message
	if sessionID != uuid.Nil {
		var err error
		prior, err = c.store.Read(ctx, sessionID)
		if err != nil {
			return Reply{}, err
		}
	}

	snapshot, err := c.settings.Snapshot(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("loading settings: %w", err)
	}

	if err := c.checkQuota(ctx, ownerID, prior, snapshot.Freemium); err != nil {
		return Reply{}, err
	}

	decision := c.router.Route(text, imageBytes != nil, prior, router.Capabilities{
		WebSearch: snapshot.WebSearchEnabled && c.search != nil,
	})
	if err := c.checkConfigured(decision); err != nil {
		return Reply{}, err
	}

	c.setPhase(sessionID, PhaseRouting)

	userTurn := conversation.Message{
		Sender:    conversation.SenderUser,
		Text:      text,
		ImageData: imageDataURI,
	}
	sessionID, userSeq, err := c.store.Append(ctx, sessionID, ownerID, userTurn)
	if err != nil {
		return Reply{}, err
	}
	c.setPhase(sessionID, PhaseExecuting)

	assistant := c.execute(ctx, decision, text, imageBytes, imageMIME, c.modelHistory(prior))

	c.setPhase(sessionID, PhasePersisting)
	if _, _, err := c.store.Append(ctx, sessionID, ownerID, assistant); err != nil {
		return Reply{}, err
	}

	return c.replyFrom(ctx, sessionID, userSeq)
}

// RerunFrom regenerates the assistant response for the user turn at or
// nearest before index. Everything after that user turn is discarded and
// replaced. An index with no user turn at or before it fails with
// ErrNoPriorUserTurn and leaves the conversation unmodified.
func (c *Controller) RerunFrom(ctx context.Context, ownerID string, sessionID uuid.UUID, index int) (Reply, error) {
	if err := c.acquire(sessionID); err != nil {
		return Reply{}, err
	}
	defer c.release(sessionID)

	if err := c.authorize(ctx, ownerID, sessionID); err != nil {
		return Reply{}, err
	}

	msgs, err := c.store.Read(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if index < 0 || index >= len(msgs) {
		return Reply{}, fmt.Errorf("%w: %d", conversation.ErrIndexOutOfRange, index)
	}

	userIdx := index
	for userIdx >= 0 && msgs[userIdx].Sender != conversation.SenderUser {
		userIdx--
	}
	if userIdx < 0 {
		return Reply{}, ErrNoPriorUserTurn
	}

	return c.regenerate(ctx, ownerID, sessionID, msgs, userIdx)
}

// EditUserTurn replaces the text of the user turn at index, discards all
// later turns, and regenerates the response. The target must be a user
// turn. A non-empty newImageDataURI replaces the turn's image; an empty
// one keeps what the turn already carries.
func (c *Controller) EditUserTurn(ctx context.Context, ownerID string, sessionID uuid.UUID, index int, newText, newImageDataURI string) (Reply, error) {
	if err := c.acquire(sessionID); err != nil {
		return Reply{}, err
	}
	defer c.release(sessionID)

	newText = strings.TrimSpace(newText)
	if newText == "" {
		return Reply{}, fmt.Errorf("%w: empty message", ErrValidation)
	}
	if newImageDataURI != "" {
		if _, _, err := model.DecodeImageDataURI(newImageDataURI); err != nil {
			return Reply{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	if err := c.authorize(ctx, ownerID, sessionID); err != nil {
		return Reply{}, err
	}

	msgs, err := c.store.Read(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if index < 0 || index >= len(msgs) {
		return Reply{}, fmt.Errorf("%w: %d", conversation.ErrIndexOutOfRange, index)
	}
	if msgs[index].Sender != conversation.SenderUser {
		return Reply{}, fmt.Errorf("%w: only user turns can be edited", ErrValidation)
	}

	image := msgs[index].ImageData
	if newImageDataURI != "" {
		image = newImageDataURI
	}
	if err := c.store.EditAt(ctx, sessionID, index, newText, image); err != nil {
		return Reply{}, err
	}
	msgs[index].Text = newText
	msgs[index].ImageData = image

	return c.regenerate(ctx, ownerID, sessionID, msgs, index)
}

// regenerate truncates everything after the user turn at userIdx and
// produces a fresh assistant response for it.
func (c *Controller) regenerate(ctx context.Context, ownerID string, sessionID uuid.UUID, msgs []conversation.Message, userIdx int) (Reply, error) {
	userTurn := msgs[userIdx]

	snapshot, err := c.settings.Snapshot(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("loading settings: %w", err)
	}

	var imageBytes []byte
	var imageMIME string
	if userTurn.ImageData != "" {
		if imageBytes, imageMIME, err = model.DecodeImageDataURI(userTurn.ImageData); err != nil {
			imageBytes, imageMIME = nil, ""
		}
	}

	decision := c.router.Route(userTurn.Text, imageBytes != nil, msgs[:userIdx], router.Capabilities{
		WebSearch: snapshot.WebSearchEnabled && c.search != nil,
	})
	if err := c.checkConfigured(decision); err != nil {
		return Reply{}, err
	}

	c.setPhase(sessionID, PhaseRouting)
	if err := c.store.TruncateFrom(ctx, sessionID, userIdx+1); err != nil {
		return Reply{}, err
	}

	c.setPhase(sessionID, PhaseExecuting)
	assistant := c.execute(ctx, decision, userTurn.Text, imageBytes, imageMIME, c.modelHistory(msgs[:userIdx]))

	c.setPhase(sessionID, PhasePersisting)
	if _, _, err := c.store.Append(ctx, sessionID, ownerID, assistant); err != nil {
		return Reply{}, err
	}

	return c.replyFrom(ctx, sessionID, userIdx)
}

// checkQuota enforces the freemium allowance: non-premium users get a
// fixed number of user turns per session. Runs before anything is
// appended. Usage is derived from the log itself, so it can never drift
// from what the user actually sent.
func (c *Controller) checkQuota(ctx context.Context, ownerID string, prior []conversation.Message, quota settings.Freemium) error {
	if !quota.Enabled {
		return nil
	}

	ent, err := c.settings.Entitlement(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("loading entitlement: %w", err)
	}
	if ent.Premium {
		return nil
	}

	used := 0
	for _, m := range prior {
		if m.Sender == conversation.SenderUser {
			used++
		}
	}
	if used >= quota.MessageLimit {
		return fmt.Errorf("%w: %d of %d free messages used", ErrQuotaExceeded, used, quota.MessageLimit)
	}
	return nil
}

// checkConfigured rejects capabilities whose adapter lacks a credential.
// A missing-parameter decision passes: the reply only asks the user for
// the missing piece, so no credential is needed yet.
func (c *Controller) checkConfigured(d router.Decision) error {
	if d.ParameterMissing {
		return nil
	}
	switch d.Capability {
	case router.CapabilityWeather:
		if c.weather == nil || !c.weather.Configured() {
			return fmt.Errorf("%w: weather", ErrConfiguration)
		}
	case router.CapabilityImageGeneration:
		if c.imagegen == nil || !c.imagegen.Configured() {
			return fmt.Errorf("%w: image generation", ErrConfiguration)
		}
	}
	return nil
}

// modelHistory converts the tail of the log into bounded model history:
// at most HistoryWindow turns, oldest first, image payloads elided.
func (c *Controller) modelHistory(msgs []conversation.Message) []model.Turn {
	start := len(msgs) - c.cfg.HistoryWindow
	if start < 0 {
		start = 0
	}

	history := make([]model.Turn, 0, len(msgs)-start)
	for _, m := range msgs[start:] {
		role := model.RoleModel
		if m.Sender == conversation.SenderUser {
			role = model.RoleUser
		}
		history = append(history, model.Turn{Role: role, Text: m.Text})
	}
	return history
}

// replyFrom reads back every turn from seq onward.
func (c *Controller) replyFrom(ctx context.Context, sessionID uuid.UUID, seq int) (Reply, error) {
	msgs, err := c.store.Read(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if seq < 0 || seq > len(msgs) {
		seq = len(msgs)
	}
	return Reply{SessionID: sessionID, Messages: msgs[seq:]}, nil
}

// friendlyError converts an execution failure into assistant-facing text.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, model.ErrRateLimited):
		return "I'm receiving too many requests right now. Please try again in a moment."
	case errors.Is(err, model.ErrContentBlocked):
		return "I can't help with that request."
	case errors.Is(err, model.ErrInvalidImageFormat):
		return "I couldn't read that image. Please send a JPEG, PNG, GIF or WebP."
	case errors.Is(err, weather.ErrLocationNotFound):
		return "I couldn't find that location. Could you check the spelling?"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "That took too long and was cancelled. Please try again."
	default:
		return "Something went wrong while handling that. Please try again."
	}
}
