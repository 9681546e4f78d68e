package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avtodom/promo-api/internal/models"
)

const wayforpayReasonOK = "1100"

// WayForPay creates invoices and verifies callbacks per the merchant
// protocol: every message carries an HMAC-MD5 signature over a fixed
// semicolon-joined field list.
type WayForPay struct {
	merchantAccount string
	merchantDomain  string
	secretKey       string
	apiURL          string
	baseURL         string
	client          *http.Client
	now             func() time.Time
}

func NewWayForPay(merchantAccount, merchantDomain, secretKey, apiURL, baseURL string, client *http.Client) *WayForPay {
	if client == nil {
		client = http.DefaultClient
	}
	return &WayForPay{
		merchantAccount: merchantAccount,
		merchantDomain:  merchantDomain,
		secretKey:       secretKey,
		apiURL:          strings.TrimRight(apiURL, "/"),
		baseURL:         strings.TrimRight(baseURL, "/"),
		client:          client,
		now:             time.Now,
	}
}

func (w *WayForPay) Name() string { return "wayforpay" }

type wayforpayInvoiceRequest struct {
	TransactionType    string   `json:"transactionType"`
	MerchantAccount    string   `json:"merchantAccount"`
	MerchantDomainName string   `json:"merchantDomainName"`
	MerchantSignature  string   `json:"merchantSignature"`
	APIVersion         int      `json:"apiVersion"`
	OrderReference     string   `json:"orderReference"`
	OrderDate          int64    `json:"orderDate"`
	Amount             string   `json:"amount"`
	Currency           string   `json:"currency"`
	ProductName        []string `json:"productName"`
	ProductCount       []int    `json:"productCount"`
	ProductPrice       []string `json:"productPrice"`
	ServiceURL         string   `json:"serviceUrl"`
	ReturnURL          string   `json:"returnUrl"`
}

type wayforpayInvoiceResponse struct {
	Reason     string      `json:"reason"`
	ReasonCode json.Number `json:"reasonCode"`
	InvoiceURL string      `json:"invoiceUrl"`
}

func (w *WayForPay) CreateInvoice(ctx context.Context, order *models.Order) (*Invoice, error) {
	orderDate := w.now().Unix()
	amount := formatAmount(order.AmountCents)

	// Signature fields: merchantAccount;merchantDomainName;orderReference;
	// orderDate;amount;currency;productName;productCount;productPrice.
	signature := w.sign(
		w.merchantAccount, w.merchantDomain, order.OrderID,
		strconv.FormatInt(orderDate, 10), amount, order.Currency,
		order.PackageName, "1", amount,
	)

	payload := wayforpayInvoiceRequest{
		TransactionType:    "CREATE_INVOICE",
		MerchantAccount:    w.merchantAccount,
		MerchantDomainName: w.merchantDomain,
		MerchantSignature:  signature,
		APIVersion:         1,
		OrderReference:     order.OrderID,
		OrderDate:          orderDate,
		Amount:             amount,
		Currency:           order.Currency,
		ProductName:        []string{order.PackageName},
		ProductCount:       []int{1},
		ProductPrice:       []string{amount},
		ServiceURL:         w.baseURL + "/webhooks/wayforpay",
		ReturnURL:          w.baseURL + "/thanks?order_id=" + order.OrderID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wayforpay invoice request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &GatewayError{Gateway: w.Name(), Status: resp.StatusCode, Body: string(respBody)}
	}

	var invoice wayforpayInvoiceResponse
	if err := json.Unmarshal(respBody, &invoice); err != nil {
		return nil, fmt.Errorf("wayforpay invoice response: %w", err)
	}
	if invoice.ReasonCode.String() != wayforpayReasonOK || invoice.InvoiceURL == "" {
		return nil, &GatewayError{Gateway: w.Name(), Status: resp.StatusCode, Body: string(respBody)}
	}

	return &Invoice{InvoiceID: order.OrderID, PageURL: invoice.InvoiceURL}, nil
}

type wayforpayCallback struct {
	MerchantAccount   string      `json:"merchantAccount"`
	OrderReference    string      `json:"orderReference"`
	Amount            json.Number `json:"amount"`
	Currency          string      `json:"currency"`
	AuthCode          string      `json:"authCode"`
	CardPan           string      `json:"cardPan"`
	TransactionStatus string      `json:"transactionStatus"`
	ReasonCode        json.Number `json:"reasonCode"`
	Reason            string      `json:"reason"`
	MerchantSignature string      `json:"merchantSignature"`
}

// ParseWebhook verifies the callback signature before anything else. Amount
// and reasonCode keep their raw JSON form via json.Number so the signature is
// computed over exactly the tokens the provider sent.
func (w *WayForPay) ParseWebhook(body []byte) (*Event, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var payload wayforpayCallback
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.OrderReference == "" {
		return nil, fmt.Errorf("%w: missing orderReference", ErrMalformedPayload)
	}

	expected := w.sign(
		payload.MerchantAccount, payload.OrderReference,
		payload.Amount.String(), payload.Currency,
		payload.AuthCode, payload.CardPan,
		payload.TransactionStatus, payload.ReasonCode.String(),
	)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(payload.MerchantSignature)) != 1 {
		return nil, ErrInvalidSignature
	}

	return &Event{
		OrderID:       payload.OrderReference,
		Outcome:       wayforpayOutcome(payload.TransactionStatus),
		TransactionID: payload.AuthCode,
		RawStatus:     payload.TransactionStatus,
		Amount:        payload.Amount.String(),
		Reason:        payload.Reason,
	}, nil
}

func wayforpayOutcome(status string) Outcome {
	switch status {
	case "Approved":
		return OutcomeApproved
	case "Declined":
		return OutcomeDeclined
	case "Expired":
		return OutcomeExpired
	case "Refunded", "Voided":
		return OutcomeCancelled
	default:
		return OutcomeUnknown
	}
}

type wayforpayAck struct {
	OrderReference string `json:"orderReference"`
	Status         string `json:"status"`
	Time           int64  `json:"time"`
	Signature      string `json:"signature"`
}

// AckBody builds the signed accept response. Without it the provider keeps
// retrying the callback.
func (w *WayForPay) AckBody(event *Event) ([]byte, error) {
	ackTime := w.now().Unix()
	return json.Marshal(wayforpayAck{
		OrderReference: event.OrderID,
		Status:         "accept",
		Time:           ackTime,
		Signature:      w.sign(event.OrderID, "accept", strconv.FormatInt(ackTime, 10)),
	})
}

func (w *WayForPay) sign(fields ...string) string {
	mac := hmac.New(md5.New, []byte(w.secretKey))
	mac.Write([]byte(strings.Join(fields, ";")))
	return hex.EncodeToString(mac.Sum(nil))
}

// formatAmount renders minor units the way the provider's examples do:
// "250" not "250.00", "99.5" not "99.50".
func formatAmount(cents int) string {
	if cents%100 == 0 {
		return strconv.Itoa(cents / 100)
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	return strings.TrimSuffix(s, "0")
}
