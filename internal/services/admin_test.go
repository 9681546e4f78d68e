package services

import (
	"errors"
	"testing"
	"time"
)

const adminPassword = "correct-horse-battery"

func seededAdmin(t *testing.T) (*AdminService, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	if err := store.Create(t.Context(), raffleOrder("ORDER-1", 4)); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if _, err := store.MaterializeOrder(t.Context(), "ORDER-1", "txn-1"); err != nil {
		t.Fatalf("materialize: %v", err)
	}
	return NewAdminService(adminPassword, store, &fakeTimerStore{}, testLogger()), store
}

func TestAdminRejectsWrongPassword(t *testing.T) {
	t.Parallel()

	svc, _ := seededAdmin(t)

	if _, err := svc.ResetEntries(t.Context(), "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("ResetEntries error = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.ExportEntries(t.Context(), "", 0, 0); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("ExportEntries error = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.UpdateTimer(t.Context(), "wrong", TimerInput{Action: "start", DurationMinutes: 5}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("UpdateTimer error = %v, want ErrUnauthorized", err)
	}
}

func TestAdminResetEntries(t *testing.T) {
	t.Parallel()

	svc, store := seededAdmin(t)

	result, err := svc.ResetEntries(t.Context(), adminPassword)
	if err != nil {
		t.Fatalf("ResetEntries: %v", err)
	}
	if result.EntriesDeleted != 4 {
		t.Errorf("deleted = %d, want 4", result.EntriesDeleted)
	}
	if !result.SequenceReset {
		t.Error("sequence not reported reset")
	}

	// Numbering restarts at 1 for the next round.
	if err := store.Create(t.Context(), raffleOrder("ORDER-2", 2)); err != nil {
		t.Fatalf("seed second order: %v", err)
	}
	entries, err := store.MaterializeOrder(t.Context(), "ORDER-2", "txn-2")
	if err != nil {
		t.Fatalf("materialize after reset: %v", err)
	}
	if entries[0].PositionNumber != 1 {
		t.Errorf("first position after reset = %d, want 1", entries[0].PositionNumber)
	}
}

func TestAdminExportEntries(t *testing.T) {
	t.Parallel()

	svc, _ := seededAdmin(t)

	export, err := svc.ExportEntries(t.Context(), adminPassword, 0, 0)
	if err != nil {
		t.Fatalf("ExportEntries: %v", err)
	}
	if export.Total != 4 {
		t.Errorf("total = %d, want 4", export.Total)
	}
	if len(export.Entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(export.Entries))
	}
	for i := 1; i < len(export.Entries); i++ {
		if export.Entries[i].PositionNumber <= export.Entries[i-1].PositionNumber {
			t.Errorf("export not ascending by position")
		}
	}

	paged, err := svc.ExportEntries(t.Context(), adminPassword, 2, 2)
	if err != nil {
		t.Fatalf("ExportEntries paged: %v", err)
	}
	if len(paged.Entries) != 2 {
		t.Errorf("got %d paged entries, want 2", len(paged.Entries))
	}
}

func TestAdminTimerActions(t *testing.T) {
	t.Parallel()

	svc, _ := seededAdmin(t)

	started, err := svc.UpdateTimer(t.Context(), adminPassword, TimerInput{Action: "start", DurationMinutes: 60, UpdatedBy: "admin"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !started.IsActive {
		t.Error("timer not active after start")
	}
	if remaining := time.Until(started.EndDate); remaining < 59*time.Minute || remaining > 61*time.Minute {
		t.Errorf("end date %v not ~60m out", started.EndDate)
	}

	extended, err := svc.UpdateTimer(t.Context(), adminPassword, TimerInput{Action: "add_time", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("add_time: %v", err)
	}
	if got := extended.EndDate.Sub(started.EndDate); got != 30*time.Minute {
		t.Errorf("add_time extended by %v, want 30m", got)
	}

	paused, err := svc.UpdateTimer(t.Context(), adminPassword, TimerInput{Action: "pause"})
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.IsActive {
		t.Error("timer still active after pause")
	}

	resumed, err := svc.UpdateTimer(t.Context(), adminPassword, TimerInput{Action: "resume"})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !resumed.IsActive {
		t.Error("timer not active after resume")
	}

	reset, err := svc.UpdateTimer(t.Context(), adminPassword, TimerInput{Action: "reset"})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset.IsActive || !reset.EndDate.IsZero() {
		t.Errorf("unexpected state after reset: %+v", reset)
	}

	if _, err := svc.UpdateTimer(t.Context(), adminPassword, TimerInput{Action: "explode"}); !errors.Is(err, ErrInvalidTimerAction) {
		t.Errorf("error = %v, want ErrInvalidTimerAction", err)
	}
	if _, err := svc.UpdateTimer(t.Context(), adminPassword, TimerInput{Action: "start"}); !errors.Is(err, ErrInvalidTimerAction) {
		t.Errorf("start without duration: error = %v, want ErrInvalidTimerAction", err)
	}

	// Reading the timer needs no password.
	settings, err := svc.GetTimer(t.Context())
	if err != nil {
		t.Fatalf("GetTimer: %v", err)
	}
	if settings.IsActive {
		t.Error("timer active after reset")
	}
}
