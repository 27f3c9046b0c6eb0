package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/koopa0/parley/internal/adapter/model"
	"github.com/koopa0/parley/internal/chat"
	"github.com/koopa0/parley/internal/conversation"
	"github.com/koopa0/parley/internal/log"
)

// writeJSON writes a JSON response with the given status code. The body is
// encoded into a buffer first so headers are only sent after a successful
// encode.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("failed to write response body", "error", err)
	}
}

// errorBody is the uniform error payload.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError writes a uniform JSON error payload.
func writeError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body, logger)
}

// writeDomainError maps controller and store errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error, logger log.Logger) {
	switch {
	case errors.Is(err, chat.ErrValidation),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, model.ErrInvalidImageFormat):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error(), logger)
	case errors.Is(err, conversation.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "index_out_of_range", err.Error(), logger)
	case errors.Is(err, chat.ErrNoPriorUserTurn):
		writeError(w, http.StatusBadRequest, "no_prior_user_turn", err.Error(), logger)
	case errors.Is(err, chat.ErrQuotaExceeded):
		writeError(w, http.StatusPaymentRequired, "quota_exceeded", err.Error(), logger)
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, "busy", err.Error(), logger)
	case errors.Is(err, conversation.ErrSessionNotFound),
		errors.Is(err, conversation.ErrNotOwner):
		// Not-owner reads as not-found so session ids don't leak.
		writeError(w, http.StatusNotFound, "not_found", "session not found", logger)
	case errors.Is(err, chat.ErrConfiguration):
		writeError(w, http.StatusServiceUnavailable, "not_configured", err.Error(), logger)
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", logger)
	}
}
