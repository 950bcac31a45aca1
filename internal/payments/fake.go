package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Fake is an in-memory Provider for tests and local demos. Webhook
// payloads are plain JSON WebhookEvent values and the signature must equal
// Secret.
type Fake struct {
	Secret string

	mu       sync.Mutex
	seq      int
	Sessions []CheckoutRequest
	Intents  []PaymentIntent
	Refunds  []Refund
	Accounts []string
	Err      error
}

func (f *Fake) next(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_fake_%d", prefix, f.seq)
}

func (f *Fake) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Sessions = append(f.Sessions, req)
	id := f.next("cs")
	return &CheckoutSession{ID: id, URL: "https://checkout.example/" + id}, nil
}

func (f *Fake) CreatePaymentIntent(_ context.Context, amount float64, _ map[string]string) (*PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	id := f.next("pi")
	pi := PaymentIntent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method", Amount: amount, Currency: "usd"}
	f.Intents = append(f.Intents, pi)
	return &pi, nil
}

func (f *Fake) Refund(_ context.Context, paymentIntentID string, amount float64) (*Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	r := Refund{ID: f.next("re"), Status: "succeeded", Amount: amount}
	f.Refunds = append(f.Refunds, r)
	return &r, nil
}

func (f *Fake) CreateConnectAccount(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	id := f.next("acct")
	f.Accounts = append(f.Accounts, id)
	return id, nil
}

func (f *Fake) CreateAccountLink(_ context.Context, accountID, _, _ string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	return "https://connect.example/onboard/" + accountID, nil
}

func (f *Fake) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if signature != f.Secret {
		return nil, fmt.Errorf("verify webhook: signature mismatch")
	}
	var ev WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if ev.InvoiceID == 0 {
		return nil, fmt.Errorf("%s without invoice id: %w", ev.Type, ErrIgnoredEvent)
	}
	return &ev, nil
}
