package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already exists")

	// ErrAlreadyFinal means the order sits in a terminal status and the
	// requested transition was not applied.
	ErrAlreadyFinal = errors.New("order already in terminal status")
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `
	order_id, first_name, last_name, email, phone,
	package_sku, package_name, package_price_cents, quantity, entry_count,
	amount_cents, currency, product_to_count,
	status, invoice_id, transaction_id, error_message,
	created_at, paid_at`

func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	query := `
		INSERT INTO orders (
			order_id, first_name, last_name, email, phone,
			package_sku, package_name, package_price_cents, quantity, entry_count,
			amount_cents, currency, product_to_count, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, query,
		order.OrderID, order.FirstName, order.LastName, order.Email, order.Phone,
		order.PackageSKU, order.PackageName, order.PackagePriceCents, order.Quantity,
		order.EntryCount, order.AmountCents, order.Currency, order.ProductToCount,
		string(order.Status),
	).Scan(&order.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicateOrder, order.OrderID)
		}
		return err
	}
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	order, err := scanOrder(s.pool.QueryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// MarkAwaitingPayment records the gateway invoice against a freshly created
// order. Re-running checkout for the same order refreshes the invoice as long
// as the order has not reached a terminal status.
func (s *OrderStore) MarkAwaitingPayment(ctx context.Context, orderID, invoiceID string) error {
	query := `
		UPDATE orders
		SET status = $1, invoice_id = $2, error_message = ''
		WHERE order_id = $3 AND status IN ('pending', 'awaiting_payment')
	`
	cmdTag, err := s.pool.Exec(ctx, query, StatusAwaitingPayment, invoiceID, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, orderID, "pending/awaiting_payment")
	}
	return nil
}

func (s *OrderStore) MarkFailed(ctx context.Context, orderID, transactionID, reason string) error {
	query := `
		UPDATE orders
		SET status = $1, transaction_id = $2, error_message = $3
		WHERE order_id = $4 AND status IN ('pending', 'awaiting_payment')
	`
	cmdTag, err := s.pool.Exec(ctx, query, StatusFailed, transactionID, reason, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, orderID, "pending/awaiting_payment")
	}
	return nil
}

func (s *OrderStore) MarkCancelled(ctx context.Context, orderID, transactionID, reason string) error {
	query := `
		UPDATE orders
		SET status = $1, transaction_id = $2, error_message = $3
		WHERE order_id = $4 AND status IN ('pending', 'awaiting_payment')
	`
	cmdTag, err := s.pool.Exec(ctx, query, StatusCancelled, transactionID, reason, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, orderID, "pending/awaiting_payment")
	}
	return nil
}

// transitionFailure tells a missing order apart from one that already sits in
// a terminal status, so callers can treat the latter as an idempotent replay.
func (s *OrderStore) transitionFailure(ctx context.Context, orderID, expected string) error {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM orders WHERE order_id = $1`, orderID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: status %q, expected %s", ErrAlreadyFinal, status, expected)
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		order  Order
		status string
		paidAt pgtype.Timestamptz
	)
	err := row.Scan(
		&order.OrderID, &order.FirstName, &order.LastName, &order.Email, &order.Phone,
		&order.PackageSKU, &order.PackageName, &order.PackagePriceCents, &order.Quantity,
		&order.EntryCount, &order.AmountCents, &order.Currency, &order.ProductToCount,
		&status, &order.InvoiceID, &order.TransactionID, &order.ErrorMessage,
		&order.CreatedAt, &paidAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = OrderStatus(status)
	if paidAt.Valid {
		order.PaidAt = paidAt.Time
	}
	return &order, nil
}
