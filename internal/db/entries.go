package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EntryStore struct {
	pool *pgxpool.Pool
}

func NewEntryStore(pool *pgxpool.Pool) *EntryStore {
	return &EntryStore{pool: pool}
}

// MaterializeOrder turns an approved payment into raffle entries and marks
// the order completed, all in one transaction. The order row is locked first
// so two concurrent callbacks for the same order serialize: the second one
// finds the order completed and gets ErrAlreadyFinal.
//
// Position numbers come from entry_position_seq inside the insert itself, so
// entries from concurrent orders interleave but never collide, and a batch is
// either fully inserted or not at all.
//
// Orders whose package does not participate in the raffle are completed
// without creating entries.
func (s *EntryStore) MaterializeOrder(ctx context.Context, orderID, transactionID string) ([]*Entry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		order  Order
		status string
	)
	err = tx.QueryRow(ctx, `
		SELECT first_name, last_name, email, phone,
		       package_name, package_price_cents, entry_count, product_to_count, status
		FROM orders
		WHERE order_id = $1
		FOR UPDATE
	`, orderID).Scan(
		&order.FirstName, &order.LastName, &order.Email, &order.Phone,
		&order.PackageName, &order.PackagePriceCents, &order.EntryCount,
		&order.ProductToCount, &status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	if OrderStatus(status).Terminal() {
		return nil, fmt.Errorf("%w: status %q", ErrAlreadyFinal, status)
	}

	var entries []*Entry
	if order.ProductToCount && order.EntryCount > 0 {
		rows, err := tx.Query(ctx, `
			INSERT INTO sticker_entries (
				order_id, first_name, last_name, email, phone,
				package_name, package_price_cents, payment_status, transaction_number
			)
			SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
			FROM generate_series(1, $10)
			RETURNING id, position_number, created_at
		`,
			orderID, order.FirstName, order.LastName, order.Email, order.Phone,
			order.PackageName, order.PackagePriceCents, StatusCompleted, transactionID,
			order.EntryCount,
		)
		if err != nil {
			return nil, err
		}

		for rows.Next() {
			entry := &Entry{
				OrderID:           orderID,
				FirstName:         order.FirstName,
				LastName:          order.LastName,
				Email:             order.Email,
				Phone:             order.Phone,
				PackageName:       order.PackageName,
				PackagePriceCents: order.PackagePriceCents,
				PaymentStatus:     StatusCompleted,
				TransactionNumber: transactionID,
			}
			if err := rows.Scan(&entry.ID, &entry.PositionNumber, &entry.CreatedAt); err != nil {
				rows.Close()
				return nil, err
			}
			entries = append(entries, entry)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if len(entries) != order.EntryCount {
			return nil, fmt.Errorf("inserted %d entries, want %d", len(entries), order.EntryCount)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, transaction_id = $2, paid_at = NOW(), error_message = ''
		WHERE order_id = $3
	`, StatusCompleted, transactionID, orderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entries, nil
}

const entryColumns = `
	id, position_number, order_id, first_name, last_name, email, phone,
	package_name, package_price_cents, payment_status, transaction_number, created_at`

func (s *EntryStore) ListByOrder(ctx context.Context, orderID string) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM sticker_entries WHERE order_id = $1 ORDER BY position_number`
	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListAll returns entries in position order for the admin export. A limit of
// zero or less means no paging.
func (s *EntryStore) ListAll(ctx context.Context, limit, offset int) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM sticker_entries ORDER BY position_number`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *EntryStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sticker_entries`).Scan(&count)
	return count, err
}

// ResetAll deletes every raffle entry and restarts position numbering at 1.
// Deletion runs in batches so the transaction never holds a lock on the whole
// table's worth of rows at once longer than needed, but the batches plus the
// sequence restart still commit atomically.
func (s *EntryStore) ResetAll(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deleted int64
	for {
		cmdTag, err := tx.Exec(ctx, `
			DELETE FROM sticker_entries
			WHERE id IN (SELECT id FROM sticker_entries LIMIT $1)
		`, batchSize)
		if err != nil {
			return 0, err
		}
		deleted += cmdTag.RowsAffected()
		if cmdTag.RowsAffected() < int64(batchSize) {
			break
		}
	}

	if _, err := tx.Exec(ctx, `ALTER SEQUENCE entry_position_seq RESTART WITH 1`); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return deleted, nil
}

func scanEntries(rows pgx.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var (
			entry  Entry
			status string
		)
		err := rows.Scan(
			&entry.ID, &entry.PositionNumber, &entry.OrderID,
			&entry.FirstName, &entry.LastName, &entry.Email, &entry.Phone,
			&entry.PackageName, &entry.PackagePriceCents,
			&status, &entry.TransactionNumber, &entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entry.PaymentStatus = OrderStatus(status)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
