// Package payments talks to the payment processor: Checkout Sessions for
// invoices, payment intents, refunds, Connect onboarding and webhooks.
package payments

import (
	"context"
	"errors"
)

// ErrIgnoredEvent marks a verified webhook of a type we do not act on.
var ErrIgnoredEvent = errors.New("ignored webhook event")

const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
)

type CheckoutRequest struct {
	InvoiceID     uint
	InvoiceNumber string
	ClientName    string
	Amount        float64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PaymentIntent struct {
	ID           string  `json:"id"`
	ClientSecret string  `json:"client_secret"`
	Status       string  `json:"status"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

type Refund struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Amount float64 `json:"amount"`
}

// WebhookEvent is the part of a processor event the billing flow needs.
type WebhookEvent struct {
	ID              string
	Type            string
	InvoiceID       uint
	SessionID       string
	PaymentIntentID string
	Amount          float64
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, amount float64, metadata map[string]string) (*PaymentIntent, error)
	Refund(ctx context.Context, paymentIntentID string, amount float64) (*Refund, error)
	CreateConnectAccount(ctx context.Context, email string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
