package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/services"
)

// Checkout creates a pending order and a hosted payment page for it.
// POST /api/checkout/{gateway}
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	gatewayName := mux.Vars(r)["gateway"]

	var input services.CheckoutInput
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.checkoutService.CreateInvoice(ctx, gatewayName, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownGateway):
			h.writeError(w, r, http.StatusNotFound, "unknown payment gateway")
		case errors.Is(err, services.ErrUnknownPackage), errors.Is(err, services.ErrInvalidInput):
			h.writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, db.ErrDuplicateOrder):
			h.writeError(w, r, http.StatusConflict, "order already exists")
		default:
			logger.Error("checkout failed", "error", err, "gateway", gatewayName)
			h.writeError(w, r, http.StatusBadGateway, "failed to create invoice")
		}
		return
	}

	h.writeJSON(w, r, http.StatusCreated, result)
}
