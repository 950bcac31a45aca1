package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"lawdesk/internal/billing"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Stripe implements Provider. Each call is a single request with a fixed
// HTTP timeout and no automatic retries.
type Stripe struct {
	api           *client.API
	currency      string
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret, currency string, timeout time.Duration) *Stripe {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	})
	if currency == "" {
		currency = "usd"
	}
	return &Stripe{api: api, currency: currency, webhookSecret: webhookSecret}
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	cents := billing.ToCents(req.Amount)
	if cents <= 0 {
		return nil, fmt.Errorf("checkout amount must be positive")
	}
	invoiceID := strconv.FormatUint(uint64(req.InvoiceID), 10)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(invoiceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency),
				UnitAmount: stripe.Int64(cents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("Invoice %s", req.InvoiceNumber)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"invoice_id": invoiceID},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("invoice_id", invoiceID)
	params.AddMetadata("invoice_number", req.InvoiceNumber)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) CreatePaymentIntent(ctx context.Context, amount float64, metadata map[string]string) (*PaymentIntent, error) {
	cents := billing.ToCents(amount)
	if cents <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent: %w", err)
	}
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       billing.FromCents(pi.Amount),
		Currency:     string(pi.Currency),
	}, nil
}

func (s *Stripe) Refund(ctx context.Context, paymentIntentID string, amount float64) (*Refund, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentIntentID)}
	if amount > 0 {
		params.Amount = stripe.Int64(billing.ToCents(amount))
	}
	params.Context = ctx
	r, err := s.api.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe refund: %w", err)
	}
	return &Refund{ID: r.ID, Status: string(r.Status), Amount: billing.FromCents(r.Amount)}, nil
}

func (s *Stripe) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
	}
	params.Context = ctx
	acct, err := s.api.Accounts.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe connect account: %w", err)
	}
	return acct.ID, nil
}

func (s *Stripe) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx
	link, err := s.api.AccountLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe account link: %w", err)
	}
	return link.URL, nil
}

// ParseWebhook verifies the signature and extracts the invoice reference.
// Event types other than completed checkouts and succeeded payment
// intents return ErrIgnoredEvent.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}
	return decodeEvent(event.ID, string(event.Type), event.Data.Raw)
}

func decodeEvent(id, typ string, raw json.RawMessage) (*WebhookEvent, error) {
	out := &WebhookEvent{ID: id, Type: typ}
	var metadata map[string]string
	switch typ {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return nil, fmt.Errorf("checkout %s is %s: %w", sess.ID, sess.PaymentStatus, ErrIgnoredEvent)
		}
		out.SessionID = sess.ID
		out.Amount = billing.FromCents(sess.AmountTotal)
		if sess.PaymentIntent != nil {
			out.PaymentIntentID = sess.PaymentIntent.ID
		}
		metadata = sess.Metadata
	case EventPaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.PaymentIntentID = pi.ID
		out.Amount = billing.FromCents(pi.AmountReceived)
		metadata = pi.Metadata
	default:
		return nil, fmt.Errorf("%s: %w", typ, ErrIgnoredEvent)
	}

	id64, err := strconv.ParseUint(metadata["invoice_id"], 10, 64)
	if err != nil || id64 == 0 {
		return nil, fmt.Errorf("%s without invoice_id metadata: %w", typ, ErrIgnoredEvent)
	}
	out.InvoiceID = uint(id64)
	return out, nil
}
