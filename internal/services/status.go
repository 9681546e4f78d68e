package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/logging"
)

// ErrEntriesMissing flags a completed raffle order whose entries cannot be
// read back. It should never happen because entries and the completed status
// commit in one transaction.
var ErrEntriesMissing = errors.New("entries missing for completed order")

type statusOrderStore interface {
	GetByID(ctx context.Context, orderID string) (*db.Order, error)
}

type statusEntryStore interface {
	ListByOrder(ctx context.Context, orderID string) ([]*db.Entry, error)
}

type StatusService struct {
	orderStore statusOrderStore
	entryStore statusEntryStore
	logger     *slog.Logger
}

func NewStatusService(orderStore statusOrderStore, entryStore statusEntryStore, logger *slog.Logger) *StatusService {
	return &StatusService{
		orderStore: orderStore,
		entryStore: entryStore,
		logger:     logger,
	}
}

type OrderStatusResult struct {
	Order     *db.Order `json:"order"`
	Positions []int64   `json:"positions"`
}

// GetStatus returns the order and its raffle positions, ascending. Positions
// are always read back from the store, never cached, so a poll right after
// the payment callback sees the committed entries.
func (s *StatusService) GetStatus(ctx context.Context, orderID string) (*OrderStatusResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.status.get",
		sentry.WithOpName("service.status"),
		sentry.WithDescription("GetStatus"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	order, err := s.orderStore.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	entries, err := s.entryStore.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	positions := make([]int64, 0, len(entries))
	for _, entry := range entries {
		positions = append(positions, entry.PositionNumber)
	}

	if order.Status == db.StatusCompleted && order.ProductToCount && order.EntryCount > 0 && len(positions) == 0 {
		logging.FromContext(ctx, s.logger).Error("completed order has no entries",
			"order_id", orderID,
			"entry_count", order.EntryCount,
		)
		return nil, fmt.Errorf("%w: %s", ErrEntriesMissing, orderID)
	}

	return &OrderStatusResult{Order: order, Positions: positions}, nil
}
