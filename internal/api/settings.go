package api

import (
	"net/http"

	"github.com/koopa0/parley/internal/log"
	"github.com/koopa0/parley/internal/settings"
)

// settingsHandler serves the runtime settings snapshot.
type settingsHandler struct {
	store  settings.Store
	logger log.Logger
}

// getSettings handles GET /api/settings.
func (h *settingsHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity", h.logger)
		return
	}

	snapshot, err := h.store.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	ent, err := h.store.Entitlement(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"settings": snapshot,
		"premium":  ent.Premium,
	}, h.logger)
}

// putSettings handles PUT /api/settings: a full snapshot replace, matching
// the client's save-the-whole-form behavior.
func (h *settingsHandler) putSettings(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity", h.logger)
		return
	}

	var snapshot settings.Snapshot
	if !decodeBody(w, r, &snapshot, h.logger) {
		return
	}

	if snapshot.Freemium.Enabled && snapshot.Freemium.MessageLimit < 1 {
		writeError(w, http.StatusBadRequest, "validation_error", "freemium message limit must be at least 1", h.logger)
		return
	}

	if err := h.store.Save(r.Context(), snapshot); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"settings": snapshot}, h.logger)
}
