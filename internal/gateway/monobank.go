package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/avtodom/promo-api/internal/models"
)

const (
	monobankInvoicePath = "/api/merchant/invoice/create"
	ccyUAH              = 980
	invoiceValiditySec  = 24 * 60 * 60
)

// Monobank creates acquiring invoices via the merchant API. Callbacks are not
// signed; authenticity rests on the order reference resolving to a known
// order in the awaited status.
type Monobank struct {
	token   string
	apiURL  string
	baseURL string
	client  *http.Client
}

func NewMonobank(token, apiURL, baseURL string, client *http.Client) *Monobank {
	if client == nil {
		client = http.DefaultClient
	}
	return &Monobank{
		token:   token,
		apiURL:  strings.TrimRight(apiURL, "/"),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (m *Monobank) Name() string { return "monobank" }

type monobankInvoiceRequest struct {
	Amount           int                  `json:"amount"`
	Ccy              int                  `json:"ccy"`
	MerchantPaymInfo monobankMerchantInfo `json:"merchantPaymInfo"`
	RedirectURL      string               `json:"redirectUrl"`
	WebHookURL       string               `json:"webHookUrl"`
	Validity         int                  `json:"validity"`
}

type monobankMerchantInfo struct {
	Reference   string `json:"reference"`
	Destination string `json:"destination"`
}

type monobankInvoiceResponse struct {
	InvoiceID string `json:"invoiceId"`
	PageURL   string `json:"pageUrl"`
	ErrText   string `json:"errText"`
}

func (m *Monobank) CreateInvoice(ctx context.Context, order *models.Order) (*Invoice, error) {
	payload := monobankInvoiceRequest{
		Amount: order.AmountCents,
		Ccy:    ccyUAH,
		MerchantPaymInfo: monobankMerchantInfo{
			Reference:   order.OrderID,
			Destination: fmt.Sprintf("%s x%d", order.PackageName, order.Quantity),
		},
		RedirectURL: m.baseURL + "/thanks?order_id=" + order.OrderID,
		WebHookURL:  m.baseURL + "/webhooks/monobank",
		Validity:    invoiceValiditySec,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL+monobankInvoicePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Token", m.token)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("monobank invoice request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &GatewayError{Gateway: m.Name(), Status: resp.StatusCode, Body: string(respBody)}
	}

	var invoice monobankInvoiceResponse
	if err := json.Unmarshal(respBody, &invoice); err != nil {
		return nil, fmt.Errorf("monobank invoice response: %w", err)
	}
	if invoice.InvoiceID == "" || invoice.PageURL == "" {
		return nil, &GatewayError{Gateway: m.Name(), Status: resp.StatusCode, Body: string(respBody)}
	}

	return &Invoice{InvoiceID: invoice.InvoiceID, PageURL: invoice.PageURL}, nil
}

type monobankCallback struct {
	InvoiceID     string      `json:"invoiceId"`
	Status        string      `json:"status"`
	Reference     string      `json:"reference"`
	Amount        json.Number `json:"amount"`
	FailureReason string      `json:"failureReason"`
}

func (m *Monobank) ParseWebhook(body []byte) (*Event, error) {
	var payload monobankCallback
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference", ErrMalformedPayload)
	}

	return &Event{
		OrderID:       payload.Reference,
		Outcome:       monobankOutcome(payload.Status),
		TransactionID: payload.InvoiceID,
		RawStatus:     payload.Status,
		Amount:        payload.Amount.String(),
		Reason:        payload.FailureReason,
	}, nil
}

func monobankOutcome(status string) Outcome {
	switch status {
	case "success":
		return OutcomeApproved
	case "failure":
		return OutcomeDeclined
	case "expired":
		return OutcomeExpired
	case "reversed":
		return OutcomeCancelled
	default:
		return OutcomeUnknown
	}
}

// AckBody returns the plain 200 body monobank expects.
func (m *Monobank) AckBody(_ *Event) ([]byte, error) {
	return []byte(`{"status":"ok"}`), nil
}
