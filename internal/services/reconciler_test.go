package services

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/gateway"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func raffleOrder(orderID string, entryCount int) *db.Order {
	return &db.Order{
		OrderID:           orderID,
		FirstName:         "Олена",
		LastName:          "Коваль",
		Email:             "olena@example.com",
		PackageSKU:        "mega-pack",
		PackageName:       "Мега пакет",
		PackagePriceCents: 100000,
		Quantity:          1,
		EntryCount:        entryCount,
		AmountCents:       100000,
		Currency:          "UAH",
		ProductToCount:    true,
		Status:            db.StatusAwaitingPayment,
	}
}

func approvedEvent(orderID string) *gateway.Event {
	return &gateway.Event{
		OrderID:       orderID,
		Outcome:       gateway.OutcomeApproved,
		TransactionID: "txn-1",
		RawStatus:     "success",
	}
}

func TestReconcilerApproval(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sender := &fakeEmailSender{}
	if err := store.Create(t.Context(), raffleOrder("ORDER-1", 5)); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	r := NewReconciler(store, store, sender, true, testLogger())
	if err := r.Process(t.Context(), "monobank", approvedEvent("ORDER-1")); err != nil {
		t.Fatalf("Process: %v", err)
	}

	order, err := store.GetByID(t.Context(), "ORDER-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if order.Status != db.StatusCompleted {
		t.Errorf("status = %q, want completed", order.Status)
	}
	if order.TransactionID != "txn-1" {
		t.Errorf("transaction id = %q, want txn-1", order.TransactionID)
	}

	entries, err := store.ListByOrder(t.Context(), "ORDER-1")
	if err != nil {
		t.Fatalf("ListByOrder: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}
	for i, entry := range entries {
		if entry.PositionNumber != int64(i+1) {
			t.Errorf("entry %d position = %d, want %d", i, entry.PositionNumber, i+1)
		}
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	if len(sender.sent[0].positions) != 5 {
		t.Errorf("email carries %d positions, want 5", len(sender.sent[0].positions))
	}
}

func TestReconcilerDuplicateApproval(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sender := &fakeEmailSender{}
	if err := store.Create(t.Context(), raffleOrder("ORDER-1", 3)); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	r := NewReconciler(store, store, sender, true, testLogger())
	for i := 0; i < 3; i++ {
		if err := r.Process(t.Context(), "wayforpay", approvedEvent("ORDER-1")); err != nil {
			t.Fatalf("Process replay %d: %v", i, err)
		}
	}

	entries, _ := store.ListByOrder(t.Context(), "ORDER-1")
	if len(entries) != 3 {
		t.Errorf("got %d entries after replays, want 3", len(entries))
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent %d emails after replays, want 1", len(sender.sent))
	}
}

func TestReconcilerConcurrentApprovals(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	if err := store.Create(t.Context(), raffleOrder("ORDER-1", 4)); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	r := NewReconciler(store, store, &fakeEmailSender{}, true, testLogger())

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Process(t.Context(), "monobank", approvedEvent("ORDER-1"))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("concurrent Process %d: %v", i, err)
		}
	}

	entries, _ := store.ListByOrder(t.Context(), "ORDER-1")
	if len(entries) != 4 {
		t.Errorf("got %d entries after concurrent approvals, want 4", len(entries))
	}
}

func TestReconcilerDeclinedThenApproved(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sender := &fakeEmailSender{}
	if err := store.Create(t.Context(), raffleOrder("ORDER-1", 2)); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	r := NewReconciler(store, store, sender, true, testLogger())

	declined := &gateway.Event{
		OrderID:   "ORDER-1",
		Outcome:   gateway.OutcomeDeclined,
		RawStatus: "Declined",
		Reason:    "insufficient funds",
	}
	if err := r.Process(t.Context(), "wayforpay", declined); err != nil {
		t.Fatalf("Process declined: %v", err)
	}

	order, _ := store.GetByID(t.Context(), "ORDER-1")
	if order.Status != db.StatusFailed {
		t.Fatalf("status = %q, want failed", order.Status)
	}
	if order.ErrorMessage != "insufficient funds" {
		t.Errorf("error message = %q", order.ErrorMessage)
	}

	// A late approval of an already failed order is acknowledged but must
	// not resurrect it.
	if err := r.Process(t.Context(), "wayforpay", approvedEvent("ORDER-1")); err != nil {
		t.Fatalf("Process late approval: %v", err)
	}

	order, _ = store.GetByID(t.Context(), "ORDER-1")
	if order.Status != db.StatusFailed {
		t.Errorf("status after late approval = %q, want failed", order.Status)
	}
	if entries, _ := store.ListByOrder(t.Context(), "ORDER-1"); len(entries) != 0 {
		t.Errorf("late approval created %d entries", len(entries))
	}
	if len(sender.sent) != 0 {
		t.Errorf("late approval sent %d emails", len(sender.sent))
	}
}

func TestReconcilerExpiredAndCancelled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome gateway.Outcome
		want    db.OrderStatus
	}{
		{"expired invoice", gateway.OutcomeExpired, db.StatusCancelled},
		{"cancelled payment", gateway.OutcomeCancelled, db.StatusCancelled},
		{"declined payment", gateway.OutcomeDeclined, db.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeStore()
			if err := store.Create(t.Context(), raffleOrder("ORDER-1", 2)); err != nil {
				t.Fatalf("seed order: %v", err)
			}

			r := NewReconciler(store, store, nil, true, testLogger())
			event := &gateway.Event{OrderID: "ORDER-1", Outcome: tt.outcome, RawStatus: string(tt.outcome)}
			if err := r.Process(t.Context(), "monobank", event); err != nil {
				t.Fatalf("Process: %v", err)
			}

			order, _ := store.GetByID(t.Context(), "ORDER-1")
			if order.Status != tt.want {
				t.Errorf("status = %q, want %q", order.Status, tt.want)
			}
		})
	}
}

func TestReconcilerIntermediateStatus(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	if err := store.Create(t.Context(), raffleOrder("ORDER-1", 2)); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	r := NewReconciler(store, store, nil, true, testLogger())
	event := &gateway.Event{OrderID: "ORDER-1", Outcome: gateway.OutcomeUnknown, RawStatus: "processing"}
	if err := r.Process(t.Context(), "monobank", event); err != nil {
		t.Fatalf("Process: %v", err)
	}

	order, _ := store.GetByID(t.Context(), "ORDER-1")
	if order.Status != db.StatusAwaitingPayment {
		t.Errorf("intermediate status changed order to %q", order.Status)
	}
}

func TestReconcilerUnknownOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ackUnknown bool
		wantErr    bool
	}{
		{"acknowledge unknown orders", true, false},
		{"surface unknown orders", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeStore()
			r := NewReconciler(store, store, nil, tt.ackUnknown, testLogger())

			err := r.Process(t.Context(), "monobank", approvedEvent("NO-SUCH-ORDER"))
			if tt.wantErr {
				if !errors.Is(err, db.ErrOrderNotFound) {
					t.Fatalf("error = %v, want ErrOrderNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
		})
	}
}

func TestReconcilerEmailFailureDoesNotFailCallback(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sender := &fakeEmailSender{err: errors.New("smtp down")}
	if err := store.Create(t.Context(), raffleOrder("ORDER-1", 2)); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	r := NewReconciler(store, store, sender, true, testLogger())
	if err := r.Process(t.Context(), "monobank", approvedEvent("ORDER-1")); err != nil {
		t.Fatalf("email failure must not fail the callback: %v", err)
	}

	order, _ := store.GetByID(t.Context(), "ORDER-1")
	if order.Status != db.StatusCompleted {
		t.Errorf("status = %q, want completed", order.Status)
	}
}

func TestReconcilerNonRaffleOrder(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	sender := &fakeEmailSender{}
	order := raffleOrder("ORDER-1", 0)
	order.ProductToCount = false
	if err := store.Create(t.Context(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	r := NewReconciler(store, store, sender, true, testLogger())
	if err := r.Process(t.Context(), "monobank", approvedEvent("ORDER-1")); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, _ := store.GetByID(t.Context(), "ORDER-1")
	if got.Status != db.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if entries, _ := store.ListByOrder(t.Context(), "ORDER-1"); len(entries) != 0 {
		t.Errorf("non-raffle order created %d entries", len(entries))
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	if len(sender.sent[0].positions) != 0 {
		t.Errorf("non-raffle confirmation carries %d positions", len(sender.sent[0].positions))
	}
}
