package models

import (
	"time"
)

type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusAwaitingPayment OrderStatus = "awaiting_payment"
	StatusCompleted       OrderStatus = "completed"
	StatusFailed          OrderStatus = "failed"
	StatusCancelled       OrderStatus = "cancelled"
)

// Terminal reports whether the status is a sink: once an order reaches a
// terminal status no further transition is applied.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Order is one checkout attempt. OrderID is generated by the client and
// doubles as the idempotency key for the whole payment pipeline.
// Quantity is units of the package purchased; EntryCount is the number of
// raffle entries those units are worth (zero for non-raffle packages).
type Order struct {
	OrderID           string      `json:"order_id"`
	FirstName         string      `json:"first_name"`
	LastName          string      `json:"last_name"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone"`
	PackageSKU        string      `json:"package_sku"`
	PackageName       string      `json:"package_name"`
	PackagePriceCents int         `json:"package_price_cents"`
	Quantity          int         `json:"quantity"`
	EntryCount        int         `json:"entry_count"`
	AmountCents       int         `json:"amount_cents"`
	Currency          string      `json:"currency"`
	ProductToCount    bool        `json:"product_to_count"`
	Status            OrderStatus `json:"status"`
	InvoiceID         string      `json:"invoice_id"`
	TransactionID     string      `json:"transaction_id"`
	ErrorMessage      string      `json:"error_message,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	PaidAt            time.Time   `json:"paid_at"`
}
