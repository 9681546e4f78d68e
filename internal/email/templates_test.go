package email

import (
	"strings"
	"testing"
	"time"
)

func confirmationInfo() *ConfirmationInfo {
	return &ConfirmationInfo{
		OrderID:       "ORDER-1",
		CustomerName:  "Олена",
		CustomerEmail: "olena@example.com",
		PackageName:   "Мега пакет",
		Quantity:      3,
		AmountUAH:     "1000",
		TransactionID: "inv-abc",
		Positions:     []int64{41, 42, 43},
		PaidAt:        time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC),
	}
}

func TestRenderConfirmation(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	message, err := renderer.RenderConfirmation(confirmationInfo())
	if err != nil {
		t.Fatalf("RenderConfirmation: %v", err)
	}

	if message.To != "olena@example.com" {
		t.Errorf("to = %q", message.To)
	}
	if !strings.Contains(message.Subject, "ORDER-1") {
		t.Errorf("subject %q does not contain order id", message.Subject)
	}

	for _, body := range []string{message.Text, message.HTML} {
		for _, want := range []string{"ORDER-1", "Мега пакет", "№41", "№42", "№43", "inv-abc", "14.03.2026"} {
			if !strings.Contains(body, want) {
				t.Errorf("body does not contain %q", want)
			}
		}
	}
}

func TestRenderConfirmationWithoutPositions(t *testing.T) {
	t.Parallel()

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	info := confirmationInfo()
	info.Positions = nil

	message, err := renderer.RenderConfirmation(info)
	if err != nil {
		t.Fatalf("RenderConfirmation: %v", err)
	}
	if strings.Contains(message.Text, "розіграші") {
		t.Error("text mentions raffle numbers for a non-raffle order")
	}
	if strings.Contains(message.HTML, "№") {
		t.Error("html lists positions for a non-raffle order")
	}
}

func TestSendOrderConfirmationNilProvider(t *testing.T) {
	t.Parallel()

	if err := SendOrderConfirmation(t.Context(), nil, confirmationInfo()); err != nil {
		t.Fatalf("nil provider should be a no-op, got %v", err)
	}
}
