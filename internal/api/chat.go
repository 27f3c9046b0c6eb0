package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/koopa0/parley/internal/chat"
	"github.com/koopa0/parley/internal/log"
)

// maxRequestBytes bounds request bodies. Inline image data URIs are the
// largest legitimate payload.
const maxRequestBytes = 10 << 20

// chatHandler serves turn submission, rerun, and edit.
type chatHandler struct {
	controller *chat.Controller
	logger     log.Logger
}

type submitRequest struct {
	SessionID    string `json:"session_id,omitempty"`
	Text         string `json:"text"`
	ImageDataURI string `json:"image_data_uri,omitempty"`
}

type rerunRequest struct {
	Index int `json:"index"`
}

type editRequest struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	ImageDataURI string `json:"image_data_uri,omitempty"`
}

// submit handles POST /api/sessions/{id}/messages.
func (h *chatHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity", h.logger)
		return
	}

	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid session id", h.logger)
		return
	}

	var req submitRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	reply, err := h.controller.Submit(r.Context(), userID, sessionID, req.Text, req.ImageDataURI)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, reply, h.logger)
}

// submitLazy handles POST /api/messages: the first message of a brand new
// conversation, before any session exists. A session id may still be
// supplied to target an existing one.
func (h *chatHandler) submitLazy(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity", h.logger)
		return
	}

	var req submitRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	sessionID := uuid.Nil
	if req.SessionID != "" {
		var err error
		if sessionID, err = uuid.Parse(req.SessionID); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid session id", h.logger)
			return
		}
	}

	reply, err := h.controller.Submit(r.Context(), userID, sessionID, req.Text, req.ImageDataURI)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	status := http.StatusOK
	if req.SessionID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, reply, h.logger)
}

// rerun handles POST /api/sessions/{id}/rerun.
func (h *chatHandler) rerun(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity", h.logger)
		return
	}

	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid session id", h.logger)
		return
	}

	var req rerunRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	reply, err := h.controller.RerunFrom(r.Context(), userID, sessionID, req.Index)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, reply, h.logger)
}

// edit handles POST /api/sessions/{id}/edit.
func (h *chatHandler) edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity", h.logger)
		return
	}

	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid session id", h.logger)
		return
	}

	var req editRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	reply, err := h.controller.EditUserTurn(r.Context(), userID, sessionID, req.Index, req.Text, req.ImageDataURI)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, reply, h.logger)
}

// decodeBody decodes a JSON request body, rejecting unknown fields and
// oversized payloads. Writes the error response itself and reports whether
// decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger log.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", logger)
			return false
		}
		writeError(w, http.StatusBadRequest, "validation_error", "malformed request body", logger)
		return false
	}
	return true
}
