// Package api exposes the JSON HTTP surface the browser client talks to:
// session CRUD, turn submission, rerun/edit, settings, and health probes.
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/parley/internal/auth"
	"github.com/koopa0/parley/internal/chat"
	"github.com/koopa0/parley/internal/conversation"
	"github.com/koopa0/parley/internal/log"
	"github.com/koopa0/parley/internal/settings"
)

// ServerConfig contains the dependencies of the API server.
type ServerConfig struct {
	Logger     log.Logger
	Controller *chat.Controller    // Required
	Store      *conversation.Store // Required
	Settings   settings.Store      // Required
	Auth       auth.Provider       // Required
	Pool       *pgxpool.Pool       // Optional: nil means memory storage, /ready reports accordingly
	TrustProxy bool                // Honor X-Real-IP/X-Forwarded-For
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Controller == nil || cfg.Store == nil || cfg.Settings == nil {
		return nil, errors.New("controller, store and settings are required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("auth provider is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	sh := &sessionHandler{controller: cfg.Controller, store: cfg.Store, logger: logger}
	ch := &chatHandler{controller: cfg.Controller, logger: logger}
	st := &settingsHandler{store: cfg.Settings, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/sessions", sh.listSessions)
	mux.HandleFunc("POST /api/sessions", sh.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", sh.getSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", sh.deleteSession)

	mux.HandleFunc("POST /api/sessions/{id}/messages", ch.submit)
	mux.HandleFunc("POST /api/messages", ch.submitLazy)
	mux.HandleFunc("POST /api/sessions/{id}/rerun", ch.rerun)
	mux.HandleFunc("POST /api/sessions/{id}/edit", ch.edit)

	mux.HandleFunc("GET /api/settings", st.getSettings)
	mux.HandleFunc("PUT /api/settings", st.putSettings)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → Auth → Routes
	// RequestID sits before Logging so request_id is available in log
	// attributes.
	var handler http.Handler = mux
	handler = authMiddleware(cfg.Auth, logger)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack: no auth, no request noise
	// in the logs.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
