package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/gateway"
	"github.com/avtodom/promo-api/internal/logging"
	"github.com/avtodom/promo-api/internal/observability"
)

type reconcilerOrderStore interface {
	GetByID(ctx context.Context, orderID string) (*db.Order, error)
	MarkFailed(ctx context.Context, orderID, transactionID, reason string) error
	MarkCancelled(ctx context.Context, orderID, transactionID, reason string) error
}

type reconcilerEntryStore interface {
	MaterializeOrder(ctx context.Context, orderID, transactionID string) ([]*db.Entry, error)
}

// Reconciler applies a parsed payment callback to the order it references.
// Every path is idempotent: a replayed callback lands on a terminal order
// and is acknowledged without changing anything.
type Reconciler struct {
	orderStore  reconcilerOrderStore
	entryStore  reconcilerEntryStore
	emailSender OrderEmailSender

	// ackUnknownOrders controls what happens when a callback references
	// an order this service never issued: true acknowledges it so the
	// gateway stops retrying, false surfaces ErrOrderNotFound.
	ackUnknownOrders bool

	logger *slog.Logger
}

func NewReconciler(orderStore reconcilerOrderStore, entryStore reconcilerEntryStore, emailSender OrderEmailSender, ackUnknownOrders bool, logger *slog.Logger) *Reconciler {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}
	return &Reconciler{
		orderStore:       orderStore,
		entryStore:       entryStore,
		emailSender:      emailSender,
		ackUnknownOrders: ackUnknownOrders,
		logger:           logger,
	}
}

func (r *Reconciler) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, r.logger)
}

// Process applies one callback. A nil return means the callback is settled
// and the handler should send the gateway's acknowledgement.
func (r *Reconciler) Process(ctx context.Context, gatewayName string, event *gateway.Event) error {
	span := sentry.StartSpan(
		ctx,
		"service.reconciler.process",
		sentry.WithOpName("service.reconciler"),
		sentry.WithDescription("Process"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := r.loggerFromContext(ctx).With(
		"order_id", event.OrderID,
		"gateway", gatewayName,
		"status", event.RawStatus,
	)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("gateway", gatewayName))
	observability.CountWebhook(ctx, gatewayName, string(event.Outcome))

	switch event.Outcome {
	case gateway.OutcomeApproved:
		return r.approve(ctx, gatewayName, event, logger)
	case gateway.OutcomeDeclined:
		return r.fail(ctx, event, logger, r.orderStore.MarkFailed)
	case gateway.OutcomeExpired, gateway.OutcomeCancelled:
		return r.fail(ctx, event, logger, r.orderStore.MarkCancelled)
	default:
		logger.Info("intermediate payment status, no state change")
		return nil
	}
}

func (r *Reconciler) approve(ctx context.Context, gatewayName string, event *gateway.Event, logger *slog.Logger) error {
	entries, err := r.entryStore.MaterializeOrder(ctx, event.OrderID, event.TransactionID)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyFinal) {
			// Replayed approval of a completed order, or a late
			// approval after the order already failed. Either way
			// the stored outcome stands.
			logger.Info("approval ignored, order already settled", "detail", err)
			return nil
		}
		if errors.Is(err, db.ErrOrderNotFound) {
			return r.unknownOrder(event, logger, err)
		}
		return fmt.Errorf("failed to materialize order: %w", err)
	}

	observability.CountEntries(ctx, gatewayName, len(entries))

	positions := make([]int64, 0, len(entries))
	for _, entry := range entries {
		positions = append(positions, entry.PositionNumber)
	}
	logger.Info("order completed", "entries", len(entries), "positions", positions)

	order, err := r.orderStore.GetByID(ctx, event.OrderID)
	if err != nil {
		logger.Error("failed to load completed order for email", "error", err)
		return nil
	}

	if err := r.emailSender.SendOrderConfirmation(ctx, order, entries); err != nil {
		// Best-effort: the payment is settled, a lost email must not
		// make the gateway retry the callback.
		logger.Error("confirmation email failed", "error", err)
		observability.MeterFromContext(ctx).Count("email.confirmation.failed", 1)
	}

	return nil
}

type markFunc func(ctx context.Context, orderID, transactionID, reason string) error

func (r *Reconciler) fail(ctx context.Context, event *gateway.Event, logger *slog.Logger, mark markFunc) error {
	reason := event.Reason
	if reason == "" {
		reason = event.RawStatus
	}

	err := mark(ctx, event.OrderID, event.TransactionID, reason)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyFinal) {
			logger.Info("terminal callback ignored, order already settled", "detail", err)
			return nil
		}
		if errors.Is(err, db.ErrOrderNotFound) {
			return r.unknownOrder(event, logger, err)
		}
		return fmt.Errorf("failed to mark order: %w", err)
	}

	logger.Info("order closed without payment", "reason", reason)
	return nil
}

func (r *Reconciler) unknownOrder(event *gateway.Event, logger *slog.Logger, err error) error {
	if r.ackUnknownOrders {
		logger.Warn("callback for unknown order acknowledged", "order_id", event.OrderID)
		return nil
	}
	return err
}
