package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TimerStore holds the single countdown timer row shown on the promo page.
type TimerStore struct {
	pool *pgxpool.Pool
}

func NewTimerStore(pool *pgxpool.Pool) *TimerStore {
	return &TimerStore{pool: pool}
}

// Get returns the timer settings, or inactive defaults when none were saved.
func (s *TimerStore) Get(ctx context.Context) (*TimerSettings, error) {
	var (
		settings TimerSettings
		endDate  pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, `
		SELECT is_active, end_date, updated_at, updated_by
		FROM timer_settings
		WHERE id = 1
	`).Scan(&settings.IsActive, &endDate, &settings.UpdatedAt, &settings.UpdatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return &TimerSettings{}, nil
	}
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		settings.EndDate = endDate.Time
	}
	return &settings, nil
}

func (s *TimerStore) Upsert(ctx context.Context, settings *TimerSettings) error {
	endDate := pgtype.Timestamptz{Time: settings.EndDate, Valid: !settings.EndDate.IsZero()}
	return s.pool.QueryRow(ctx, `
		INSERT INTO timer_settings (id, is_active, end_date, updated_at, updated_by)
		VALUES (1, $1, $2, NOW(), $3)
		ON CONFLICT (id) DO UPDATE
		SET is_active = EXCLUDED.is_active,
		    end_date = EXCLUDED.end_date,
		    updated_at = NOW(),
		    updated_by = EXCLUDED.updated_by
		RETURNING updated_at
	`, settings.IsActive, endDate, settings.UpdatedBy).Scan(&settings.UpdatedAt)
}
