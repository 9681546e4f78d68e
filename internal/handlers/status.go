package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/services"
)

// OrderStatus returns the order snapshot and its raffle positions.
// GET /api/orders/{orderID}/status
func (h *Handlers) OrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := mux.Vars(r)["orderID"]

	result, err := h.statusService.GetStatus(ctx, orderID)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrOrderNotFound):
			h.writeError(w, r, http.StatusNotFound, "order not found")
		case errors.Is(err, services.ErrEntriesMissing):
			h.writeError(w, r, http.StatusConflict, "order completed but entries are missing")
		default:
			h.loggerFromContext(ctx).Error("status lookup failed", "order_id", orderID, "error", err)
			h.writeError(w, r, http.StatusInternalServerError, "status lookup failed")
		}
		return
	}

	h.writeJSON(w, r, http.StatusOK, result)
}
