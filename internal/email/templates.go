// Package email provides email templates.
package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"
)

// ConfirmationInfo is the data for the order confirmation email. Positions
// are the raffle numbers the order received, ascending; empty for packages
// that do not participate in the raffle.
type ConfirmationInfo struct {
	OrderID       string
	CustomerName  string
	CustomerEmail string
	PackageName   string
	Quantity      int
	AmountUAH     string
	TransactionID string
	Positions     []int64
	PaidAt        time.Time
}

// Renderer renders the confirmation email from built-in templates.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("02.01.2006 15:04")
		},
	}

	tmpl := template.New("email").Funcs(funcMap)

	if _, err := tmpl.New("order_confirmation_html").Parse(orderConfirmationHTML); err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}
	if _, err := tmpl.New("order_confirmation_text").Parse(orderConfirmationText); err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}

	return &Renderer{templates: tmpl}, nil
}

func (r *Renderer) RenderConfirmation(data *ConfirmationInfo) (*Email, error) {
	var htmlBuf, textBuf bytes.Buffer

	if err := r.templates.ExecuteTemplate(&htmlBuf, "order_confirmation_html", data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}
	if err := r.templates.ExecuteTemplate(&textBuf, "order_confirmation_text", data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}

	return &Email{
		To:      data.CustomerEmail,
		Subject: fmt.Sprintf("Замовлення %s підтверджено", data.OrderID),
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}

// SendOrderConfirmation renders and sends the confirmation email. A nil
// provider is a no-op so callers don't have to branch on email being
// configured.
func SendOrderConfirmation(ctx context.Context, p Provider, info *ConfirmationInfo) error {
	if p == nil {
		return nil
	}

	renderer, err := NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	message, err := renderer.RenderConfirmation(info)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return p.SendEmail(ctx, message)
}

const orderConfirmationText = `Дякуємо за покупку, {{.CustomerName}}!

Ваше замовлення {{.OrderID}} оплачено.

Пакет: {{.PackageName}}
Кількість: {{.Quantity}}
Сума: {{.AmountUAH}} грн
Номер транзакції: {{.TransactionID}}
Дата оплати: {{formatDate .PaidAt}}
{{if .Positions}}
Ваші номери в розіграші:
{{range .Positions}}  №{{.}}
{{end}}
Збережіть цей лист — номери знадобляться під час розіграшу.
{{end}}
З повагою,
команда АвтоДім
`

const orderConfirmationHTML = `<!DOCTYPE html>
<html lang="uk">
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #1a1a1a; max-width: 600px; margin: 0 auto;">
  <h2>Дякуємо за покупку, {{.CustomerName}}!</h2>
  <p>Ваше замовлення <strong>{{.OrderID}}</strong> оплачено.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td>Пакет</td><td><strong>{{.PackageName}}</strong></td></tr>
    <tr><td>Кількість</td><td>{{.Quantity}}</td></tr>
    <tr><td>Сума</td><td>{{.AmountUAH}} грн</td></tr>
    <tr><td>Номер транзакції</td><td>{{.TransactionID}}</td></tr>
    <tr><td>Дата оплати</td><td>{{formatDate .PaidAt}}</td></tr>
  </table>
{{if .Positions}}
  <h3>Ваші номери в розіграші</h3>
  <p style="font-size: 20px; letter-spacing: 2px;">
    {{range .Positions}}<strong>№{{.}}</strong> {{end}}
  </p>
  <p>Збережіть цей лист &mdash; номери знадобляться під час розіграшу.</p>
{{end}}
  <p>З повагою,<br>команда АвтоДім</p>
</body>
</html>
`
