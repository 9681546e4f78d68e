package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.ConnConfig.Tracer = newQueryTracer()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Migrate creates the database schema if it doesn't exist.
//
// position_number draws from a dedicated sequence rather than a serial
// column so an admin reset can restart numbering at 1 without touching
// the table definition.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	schema := `
	CREATE SEQUENCE IF NOT EXISTS entry_position_seq START WITH 1;

	CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		package_sku TEXT NOT NULL,
		package_name TEXT NOT NULL,
		package_price_cents BIGINT NOT NULL,
		quantity INT NOT NULL,
		entry_count INT NOT NULL DEFAULT 0,
		amount_cents BIGINT NOT NULL,
		currency TEXT NOT NULL,
		product_to_count BOOLEAN NOT NULL DEFAULT TRUE,
		status TEXT NOT NULL DEFAULT 'pending',
		invoice_id TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		paid_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS sticker_entries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		position_number BIGINT NOT NULL UNIQUE DEFAULT nextval('entry_position_seq'),
		order_id TEXT NOT NULL REFERENCES orders(order_id),
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		package_name TEXT NOT NULL,
		package_price_cents BIGINT NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'completed',
		transaction_number TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_sticker_entries_order_id ON sticker_entries(order_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS timer_settings (
		id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		end_date TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_by TEXT NOT NULL DEFAULT ''
	);
	`

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
