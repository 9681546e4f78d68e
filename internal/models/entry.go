package models

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one position-numbered raffle ticket. Entries are created in a
// single batch when an order completes and are never updated afterwards; the
// customer fields are a snapshot of the order at materialization time.
type Entry struct {
	ID                uuid.UUID   `json:"id"`
	PositionNumber    int64       `json:"position_number"`
	OrderID           string      `json:"order_id"`
	FirstName         string      `json:"first_name"`
	LastName          string      `json:"last_name"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone"`
	PackageName       string      `json:"package_name"`
	PackagePriceCents int         `json:"package_price_cents"`
	PaymentStatus     OrderStatus `json:"payment_status"`
	TransactionNumber string      `json:"transaction_number"`
	CreatedAt         time.Time   `json:"created_at"`
}
