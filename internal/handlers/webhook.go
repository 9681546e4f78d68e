package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/avtodom/promo-api/internal/cache"
	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/gateway"
)

// webhookIdempotencyTTL is how long processed deliveries are kept for dedup.
const webhookIdempotencyTTL = 24 * time.Hour

// PaymentWebhook receives a payment callback from a gateway.
// POST /webhooks/{gateway}
//
// The reconciler is idempotent on its own; the cache in front of it only
// short-circuits verbatim replays so they don't hit the database.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	gatewayName := mux.Vars(r)["gateway"]

	adapter, ok := h.adapters[gatewayName]
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "unknown payment gateway")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read webhook body", "error", err)
		h.writeError(w, r, http.StatusBadRequest, "failed to read body")
		return
	}

	event, err := adapter.ParseWebhook(body)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidSignature):
			logger.Warn("webhook signature rejected", "gateway", gatewayName)
			h.writeError(w, r, http.StatusForbidden, "invalid signature")
		default:
			logger.Error("malformed webhook payload", "gateway", gatewayName, "error", err)
			h.writeError(w, r, http.StatusBadRequest, "malformed payload")
		}
		return
	}

	cacheKey := cache.WebhookKey(gatewayName, event.OrderID, event.RawStatus)
	if _, err := h.cacheProvider.Get(ctx, cacheKey); err == nil {
		logger.Info("webhook already processed", "order_id", event.OrderID, "status", event.RawStatus)
		h.ack(w, r, adapter, event)
		return
	}

	if err := h.reconciler.Process(ctx, gatewayName, event); err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			// Not acknowledged: the gateway retries and a human gets
			// a chance to investigate before the callback is lost.
			logger.Warn("webhook for unknown order rejected", "order_id", event.OrderID)
			h.writeError(w, r, http.StatusNotFound, "unknown order")
			return
		}
		logger.Error("webhook processing failed", "order_id", event.OrderID, "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "processing failed")
		return
	}

	if err := h.cacheProvider.Set(ctx, cacheKey, "processed", webhookIdempotencyTTL); err != nil {
		logger.Error("failed to mark webhook as processed in cache", "error", err)
	}

	h.ack(w, r, adapter, event)
}

// ack answers with the acknowledgement body the gateway expects. WayForPay
// keeps retrying a callback until it sees its signed accept response.
func (h *Handlers) ack(w http.ResponseWriter, r *http.Request, adapter gateway.Adapter, event *gateway.Event) {
	body, err := adapter.AckBody(event)
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to build ack body", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to write ack body", "error", err)
	}
}
