package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/logging"
)

var (
	ErrUnauthorized       = errors.New("invalid admin password")
	ErrInvalidTimerAction = errors.New("unknown timer action")
)

type adminEntryStore interface {
	ListAll(ctx context.Context, limit, offset int) ([]*db.Entry, error)
	Count(ctx context.Context) (int64, error)
	ResetAll(ctx context.Context, batchSize int) (int64, error)
}

type adminTimerStore interface {
	Get(ctx context.Context) (*db.TimerSettings, error)
	Upsert(ctx context.Context, settings *db.TimerSettings) error
}

const resetBatchSize = 500

// AdminService gates destructive raffle operations behind the admin password.
type AdminService struct {
	password   string
	entryStore adminEntryStore
	timerStore adminTimerStore
	logger     *slog.Logger
}

func NewAdminService(password string, entryStore adminEntryStore, timerStore adminTimerStore, logger *slog.Logger) *AdminService {
	return &AdminService{
		password:   password,
		entryStore: entryStore,
		timerStore: timerStore,
		logger:     logger,
	}
}

func (s *AdminService) authorize(password string) error {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

type ResetResult struct {
	EntriesDeleted int64 `json:"entries_deleted"`
	SequenceReset  bool  `json:"sequence_reset"`
}

// ResetEntries wipes every raffle entry and restarts numbering at 1 for the
// next promo round.
func (s *AdminService) ResetEntries(ctx context.Context, password string) (*ResetResult, error) {
	if err := s.authorize(password); err != nil {
		return nil, err
	}

	span := sentry.StartSpan(
		ctx,
		"service.admin.reset_entries",
		sentry.WithOpName("service.admin"),
		sentry.WithDescription("ResetEntries"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	deleted, err := s.entryStore.ResetAll(ctx, resetBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to reset entries: %w", err)
	}

	logging.FromContext(ctx, s.logger).Info("raffle entries reset", "deleted", deleted)
	return &ResetResult{EntriesDeleted: deleted, SequenceReset: true}, nil
}

type EntriesExport struct {
	Total   int64       `json:"total"`
	Entries []*db.Entry `json:"entries"`
}

// ExportEntries returns entries ascending by position. limit <= 0 exports
// everything.
func (s *AdminService) ExportEntries(ctx context.Context, password string, limit, offset int) (*EntriesExport, error) {
	if err := s.authorize(password); err != nil {
		return nil, err
	}

	total, err := s.entryStore.Count(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.entryStore.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	return &EntriesExport{Total: total, Entries: entries}, nil
}

// GetTimer is unauthenticated: the promo page polls it.
func (s *AdminService) GetTimer(ctx context.Context) (*db.TimerSettings, error) {
	return s.timerStore.Get(ctx)
}

type TimerInput struct {
	Action          string `json:"action"`
	DurationMinutes int    `json:"duration_minutes"`
	UpdatedBy       string `json:"updated_by"`
}

// UpdateTimer applies one countdown action: start, add_time, pause, resume
// or reset.
func (s *AdminService) UpdateTimer(ctx context.Context, password string, input TimerInput) (*db.TimerSettings, error) {
	if err := s.authorize(password); err != nil {
		return nil, err
	}

	settings, err := s.timerStore.Get(ctx)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(input.DurationMinutes) * time.Minute

	switch input.Action {
	case "start":
		if input.DurationMinutes <= 0 {
			return nil, fmt.Errorf("%w: start needs positive duration_minutes", ErrInvalidTimerAction)
		}
		settings.IsActive = true
		settings.EndDate = time.Now().Add(duration)
	case "add_time":
		if settings.EndDate.IsZero() {
			return nil, fmt.Errorf("%w: add_time needs a running timer", ErrInvalidTimerAction)
		}
		settings.EndDate = settings.EndDate.Add(duration)
	case "pause":
		settings.IsActive = false
	case "resume":
		settings.IsActive = true
	case "reset":
		settings.IsActive = false
		settings.EndDate = time.Time{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimerAction, input.Action)
	}

	settings.UpdatedBy = input.UpdatedBy
	if err := s.timerStore.Upsert(ctx, settings); err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.logger).Info("timer updated",
		"action", input.Action,
		"is_active", settings.IsActive,
		"end_date", settings.EndDate,
	)
	return settings, nil
}
