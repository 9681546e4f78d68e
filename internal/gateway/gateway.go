package gateway

// Package gateway adapts the payment providers behind one interface: create a
// hosted invoice for an order, parse the provider's payment callback into a
// normalized event, and build the acknowledgement body the provider expects.

import (
	"context"
	"errors"
	"fmt"

	"github.com/avtodom/promo-api/internal/models"
)

// Outcome is the normalized result of a payment callback.
type Outcome string

const (
	OutcomeApproved  Outcome = "approved"
	OutcomeDeclined  Outcome = "declined"
	OutcomeExpired   Outcome = "expired"
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeUnknown covers intermediate provider states (created,
	// processing, hold). The callback is acknowledged without touching
	// the order.
	OutcomeUnknown Outcome = "unknown"
)

// Invoice is a hosted payment page created for an order.
type Invoice struct {
	InvoiceID string `json:"invoice_id"`
	PageURL   string `json:"page_url"`
}

// Event is one parsed payment callback.
type Event struct {
	OrderID       string
	Outcome       Outcome
	TransactionID string
	RawStatus     string
	Amount        string
	Reason        string
}

type Adapter interface {
	Name() string
	CreateInvoice(ctx context.Context, order *models.Order) (*Invoice, error)
	ParseWebhook(body []byte) (*Event, error)
	AckBody(event *Event) ([]byte, error)
}

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// GatewayError is a failed provider API call.
type GatewayError struct {
	Gateway string
	Status  int
	Body    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s api error: status %d: %s", e.Gateway, e.Status, e.Body)
}
