package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/koopa0/parley/internal/chat"
	"github.com/koopa0/parley/internal/conversation"
	"github.com/koopa0/parley/internal/log"
)

// sessionHandler serves session CRUD plus the full-snapshot read.
type sessionHandler struct {
	controller *chat.Controller
	store      *conversation.Store
	logger     log.Logger
}

const defaultListLimit = 50

// listSessions returns the caller's sessions, most recently updated first.
func (h *sessionHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity", h.logger)
		return
	}

	limit := queryInt(r, "limit", defaultListLimit)
	offset := queryInt(r, "offset", 0)

	sessions, err := h.store.ListSessions(r.Context(), userID, limit, offset)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions}, h.logger)
}

// createSession creates an empty session opened by a welcome turn.
func (h *sessionHandler) createSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity", h.logger)
		return
	}

	sessionID, welcome, err := h.controller.StartSession(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sessionID,
		"messages":   []conversation.Message{welcome},
	}, h.logger)
}

// getSession returns the session and its full ordered message snapshot.
// The client always re-renders from this snapshot; there is no delta
// protocol.
func (h *sessionHandler) getSession(w http.ResponseWriter, r *http.Request) {
	_, sessionID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	sess, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	msgs, err := h.store.Read(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session":  sess,
		"messages": msgs,
		"phase":    h.controller.SessionPhase(sessionID),
	}, h.logger)
}

// deleteSession removes a session and all its messages.
func (h *sessionHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	_, sessionID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteSession(r.Context(), sessionID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

// authorize parses the path session id and verifies ownership.
func (h *sessionHandler) authorize(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity", h.logger)
		return "", uuid.Nil, false
	}

	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid session id", h.logger)
		return "", uuid.Nil, false
	}

	sess, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return "", uuid.Nil, false
	}
	if sess.OwnerID != userID {
		writeError(w, http.StatusNotFound, "not_found", "session not found", h.logger)
		return "", uuid.Nil, false
	}

	return userID, sessionID, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
