// Package email provides email provider interface.
package email

import (
	"context"
	"fmt"
)

type Provider interface {
	SendEmail(ctx context.Context, email *Email) error
	ValidateAPIKey(ctx context.Context) error
}

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Provider string
	APIKey   string
	From     string
	Domain   string // For Mailgun
}

func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "mailgun":
		return NewMailgunProvider(config.APIKey, config.Domain, config.From), nil
	case "resend":
		return NewResendProvider(config.APIKey, config.From), nil
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be either 'mailgun' or 'resend'")
	}
}
