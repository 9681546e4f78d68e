package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/email"
)

type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *db.Order, entries []*db.Entry) error
}

// ProviderEmailSender renders the confirmation email and sends it through the
// configured provider.
type ProviderEmailSender struct {
	provider email.Provider
}

func NewProviderEmailSender(provider email.Provider) *ProviderEmailSender {
	return &ProviderEmailSender{provider: provider}
}

func (s *ProviderEmailSender) SendOrderConfirmation(ctx context.Context, order *db.Order, entries []*db.Entry) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}

	positions := make([]int64, 0, len(entries))
	for _, entry := range entries {
		positions = append(positions, entry.PositionNumber)
	}

	info := &email.ConfirmationInfo{
		OrderID:       order.OrderID,
		CustomerName:  strings.TrimSpace(order.FirstName + " " + order.LastName),
		CustomerEmail: order.Email,
		PackageName:   order.PackageName,
		Quantity:      order.Quantity,
		AmountUAH:     formatUAH(order.AmountCents),
		TransactionID: order.TransactionID,
		Positions:     positions,
		PaidAt:        order.PaidAt,
	}

	return email.SendOrderConfirmation(ctx, s.provider, info)
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *db.Order, []*db.Entry) error {
	return nil
}

func formatUAH(cents int) string {
	if cents%100 == 0 {
		return fmt.Sprintf("%d", cents/100)
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
