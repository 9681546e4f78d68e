package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/avtodom/promo-api/internal/catalog"
	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/gateway"
	"github.com/avtodom/promo-api/internal/logging"
	"github.com/avtodom/promo-api/internal/observability"
)

const maxCheckoutQuantity = 100

var (
	ErrUnknownPackage = errors.New("unknown or inactive package")
	ErrUnknownGateway = errors.New("unknown payment gateway")
	ErrInvalidInput   = errors.New("invalid checkout input")
)

type checkoutOrderStore interface {
	Create(ctx context.Context, order *db.Order) error
	MarkAwaitingPayment(ctx context.Context, orderID, invoiceID string) error
	MarkFailed(ctx context.Context, orderID, transactionID, reason string) error
}

type CheckoutService struct {
	orderStore checkoutOrderStore
	catalog    *catalog.Catalog
	adapters   map[string]gateway.Adapter
	logger     *slog.Logger
}

func NewCheckoutService(orderStore checkoutOrderStore, cat *catalog.Catalog, adapters map[string]gateway.Adapter, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		orderStore: orderStore,
		catalog:    cat,
		adapters:   adapters,
		logger:     logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CheckoutInput struct {
	OrderID    string `json:"order_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	PackageSKU string `json:"package_sku"`
	Quantity   int    `json:"quantity"`
}

type CheckoutResult struct {
	OrderID   string `json:"order_id"`
	InvoiceID string `json:"invoice_id"`
	PageURL   string `json:"page_url"`
}

// CreateInvoice creates a pending order and a hosted payment page for it.
// The client-supplied order id is the idempotency key: a second call with
// the same id fails with ErrDuplicateOrder instead of double-charging.
//
// An order never stays silently pending after this call returns: it is
// either awaiting_payment with an invoice attached, or failed with the
// gateway error recorded.
func (s *CheckoutService) CreateInvoice(ctx context.Context, gatewayName string, input CheckoutInput) (*CheckoutResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.create_invoice",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("CreateInvoice"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("gateway", gatewayName))

	adapter, ok := s.adapters[gatewayName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, gatewayName)
	}

	if err := validateCheckoutInput(input); err != nil {
		return nil, err
	}

	pkg := s.catalog.Find(input.PackageSKU)
	if pkg == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, input.PackageSKU)
	}

	order := &db.Order{
		OrderID:           input.OrderID,
		FirstName:         strings.TrimSpace(input.FirstName),
		LastName:          strings.TrimSpace(input.LastName),
		Email:             strings.TrimSpace(input.Email),
		Phone:             strings.TrimSpace(input.Phone),
		PackageSKU:        pkg.SKU,
		PackageName:       pkg.Name,
		PackagePriceCents: pkg.PriceCents,
		Quantity:          input.Quantity,
		EntryCount:        input.Quantity * pkg.StickerCount,
		AmountCents:       pkg.PriceCents * input.Quantity,
		Currency:          s.catalog.Currency,
		ProductToCount:    pkg.ProductToCount,
		Status:            db.StatusPending,
	}

	if err := s.orderStore.Create(ctx, order); err != nil {
		if errors.Is(err, db.ErrDuplicateOrder) {
			logger.Warn("duplicate checkout attempt", "order_id", order.OrderID)
		}
		observability.CountCheckout(ctx, gatewayName, false)
		return nil, err
	}

	invoice, err := adapter.CreateInvoice(ctx, order)
	if err != nil {
		observability.CountCheckout(ctx, gatewayName, false)
		logger.Error("invoice creation failed",
			"order_id", order.OrderID,
			"gateway", gatewayName,
			"error", err,
		)
		reason := fmt.Sprintf("invoice creation failed: %v", err)
		if markErr := s.orderStore.MarkFailed(ctx, order.OrderID, "", reason); markErr != nil {
			logger.Error("failed to mark order failed", "order_id", order.OrderID, "error", markErr)
		}
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	if err := s.orderStore.MarkAwaitingPayment(ctx, order.OrderID, invoice.InvoiceID); err != nil {
		return nil, err
	}

	observability.CountCheckout(ctx, gatewayName, true)
	logger.Info("invoice created",
		"order_id", order.OrderID,
		"gateway", gatewayName,
		"invoice_id", invoice.InvoiceID,
		"amount_cents", order.AmountCents,
		"entry_count", order.EntryCount,
	)

	return &CheckoutResult{
		OrderID:   order.OrderID,
		InvoiceID: invoice.InvoiceID,
		PageURL:   invoice.PageURL,
	}, nil
}

func validateCheckoutInput(input CheckoutInput) error {
	if strings.TrimSpace(input.OrderID) == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return fmt.Errorf("%w: first_name and last_name are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(input.Email)); err != nil {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if input.Quantity < 1 || input.Quantity > maxCheckoutQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidInput, maxCheckoutQuantity)
	}
	if strings.TrimSpace(input.PackageSKU) == "" {
		return fmt.Errorf("%w: package_sku is required", ErrInvalidInput)
	}
	return nil
}
