package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/gateway"
	"github.com/avtodom/promo-api/internal/models"
)

// fakeStore mimics the transactional semantics of the real stores: terminal
// statuses are sinks, materialization is atomic and draws positions from a
// shared counter.
type fakeStore struct {
	mu           sync.Mutex
	orders       map[string]*db.Order
	entries      []*db.Entry
	nextPosition int64

	failMaterialize error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:       make(map[string]*db.Order),
		nextPosition: 1,
	}
}

func (s *fakeStore) Create(_ context.Context, order *db.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.OrderID]; exists {
		return fmt.Errorf("%w: %s", db.ErrDuplicateOrder, order.OrderID)
	}
	clone := *order
	clone.CreatedAt = time.Now()
	s.orders[order.OrderID] = &clone
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, orderID string) (*db.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrOrderNotFound, orderID)
	}
	clone := *order
	return &clone, nil
}

func (s *fakeStore) MarkAwaitingPayment(_ context.Context, orderID, invoiceID string) error {
	return s.transition(orderID, db.StatusAwaitingPayment, invoiceID, "", "")
}

func (s *fakeStore) MarkFailed(_ context.Context, orderID, transactionID, reason string) error {
	return s.transition(orderID, db.StatusFailed, "", transactionID, reason)
}

func (s *fakeStore) MarkCancelled(_ context.Context, orderID, transactionID, reason string) error {
	return s.transition(orderID, db.StatusCancelled, "", transactionID, reason)
}

func (s *fakeStore) transition(orderID string, to db.OrderStatus, invoiceID, transactionID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", db.ErrOrderNotFound, orderID)
	}
	if order.Status.Terminal() {
		return fmt.Errorf("%w: status %q", db.ErrAlreadyFinal, order.Status)
	}
	order.Status = to
	if invoiceID != "" {
		order.InvoiceID = invoiceID
	}
	if transactionID != "" {
		order.TransactionID = transactionID
	}
	order.ErrorMessage = reason
	return nil
}

func (s *fakeStore) MaterializeOrder(_ context.Context, orderID, transactionID string) ([]*db.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failMaterialize != nil {
		return nil, s.failMaterialize
	}

	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrOrderNotFound, orderID)
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("%w: status %q", db.ErrAlreadyFinal, order.Status)
	}

	var created []*db.Entry
	if order.ProductToCount {
		for i := 0; i < order.EntryCount; i++ {
			entry := &db.Entry{
				ID:                uuid.New(),
				PositionNumber:    s.nextPosition,
				OrderID:           orderID,
				FirstName:         order.FirstName,
				LastName:          order.LastName,
				Email:             order.Email,
				Phone:             order.Phone,
				PackageName:       order.PackageName,
				PackagePriceCents: order.PackagePriceCents,
				PaymentStatus:     db.StatusCompleted,
				TransactionNumber: transactionID,
				CreatedAt:         time.Now(),
			}
			s.nextPosition++
			s.entries = append(s.entries, entry)
			created = append(created, entry)
		}
	}

	order.Status = db.StatusCompleted
	order.TransactionID = transactionID
	order.PaidAt = time.Now()
	return created, nil
}

func (s *fakeStore) ListByOrder(_ context.Context, orderID string) ([]*db.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.Entry
	for _, entry := range s.entries {
		if entry.OrderID == orderID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *fakeStore) ListAll(_ context.Context, limit, offset int) ([]*db.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]*db.Entry(nil), s.entries...)
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.entries)), nil
}

func (s *fakeStore) ResetAll(_ context.Context, _ int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := int64(len(s.entries))
	s.entries = nil
	s.nextPosition = 1
	return deleted, nil
}

type fakeTimerStore struct {
	mu       sync.Mutex
	settings db.TimerSettings
}

func (s *fakeTimerStore) Get(_ context.Context) (*db.TimerSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := s.settings
	return &clone, nil
}

func (s *fakeTimerStore) Upsert(_ context.Context, settings *db.TimerSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.UpdatedAt = time.Now()
	s.settings = *settings
	return nil
}

type sentEmail struct {
	order     *db.Order
	positions []int64
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmailSender) SendOrderConfirmation(_ context.Context, order *db.Order, entries []*db.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	positions := make([]int64, 0, len(entries))
	for _, entry := range entries {
		positions = append(positions, entry.PositionNumber)
	}
	f.sent = append(f.sent, sentEmail{order: order, positions: positions})
	return nil
}

type fakeAdapter struct {
	name    string
	invoice *gateway.Invoice
	err     error
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) CreateInvoice(_ context.Context, _ *models.Order) (*gateway.Invoice, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.invoice, nil
}

func (a *fakeAdapter) ParseWebhook(_ []byte) (*gateway.Event, error) {
	return nil, fmt.Errorf("not implemented")
}

func (a *fakeAdapter) AckBody(_ *gateway.Event) ([]byte, error) {
	return []byte(`{"status":"ok"}`), nil
}
