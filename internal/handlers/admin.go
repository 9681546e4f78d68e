package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/avtodom/promo-api/internal/services"
)

// adminPassword pulls the password from the X-Admin-Password header with a
// JSON body fallback for clients that cannot set headers.
func adminPassword(r *http.Request, body map[string]any) string {
	if password := r.Header.Get("X-Admin-Password"); password != "" {
		return password
	}
	if body != nil {
		if password, ok := body["password"].(string); ok {
			return password
		}
	}
	return ""
}

// AdminReset wipes all raffle entries and restarts position numbering.
// POST /api/admin/reset
func (h *Handlers) AdminReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body map[string]any
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	_ = json.NewDecoder(r.Body).Decode(&body)

	result, err := h.adminService.ResetEntries(ctx, adminPassword(r, body))
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			h.writeError(w, r, http.StatusUnauthorized, "invalid password")
			return
		}
		h.loggerFromContext(ctx).Error("reset failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "reset failed")
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}

// AdminEntries exports raffle entries ascending by position.
// GET /api/admin/entries?limit=&offset=
func (h *Handlers) AdminEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	export, err := h.adminService.ExportEntries(ctx, adminPassword(r, nil), limit, offset)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			h.writeError(w, r, http.StatusUnauthorized, "invalid password")
			return
		}
		h.loggerFromContext(ctx).Error("entries export failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "export failed")
		return
	}

	h.writeJSON(w, r, http.StatusOK, export)
}

// Timer returns the promo countdown settings. Unauthenticated.
// GET /api/timer
func (h *Handlers) Timer(w http.ResponseWriter, r *http.Request) {
	settings, err := h.adminService.GetTimer(r.Context())
	if err != nil {
		h.loggerFromContext(r.Context()).Error("timer lookup failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "timer lookup failed")
		return
	}
	h.writeJSON(w, r, http.StatusOK, settings)
}

// AdminTimer applies a countdown action.
// POST /api/admin/timer
func (h *Handlers) AdminTimer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		services.TimerInput
		Password string `json:"password"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	password := r.Header.Get("X-Admin-Password")
	if password == "" {
		password = body.Password
	}

	settings, err := h.adminService.UpdateTimer(ctx, password, body.TimerInput)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthorized):
			h.writeError(w, r, http.StatusUnauthorized, "invalid password")
		case errors.Is(err, services.ErrInvalidTimerAction):
			h.writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			h.loggerFromContext(ctx).Error("timer update failed", "error", err)
			h.writeError(w, r, http.StatusInternalServerError, "timer update failed")
		}
		return
	}

	h.writeJSON(w, r, http.StatusOK, settings)
}
