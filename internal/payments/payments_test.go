package payments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test"

func signed(t *testing.T, body string) ([]byte, string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(body),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func TestParseWebhookCheckoutCompleted(t *testing.T) {
	s := NewStripe("sk_test_x", testSecret, "usd", time.Second)
	payload, sig := signed(t, `{
		"id": "evt_1", "object": "event", "type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_123", "object": "checkout.session", "payment_status": "paid",
			"amount_total": 151200, "payment_intent": "pi_9",
			"metadata": {"invoice_id": "42"}
		}}
	}`)

	ev, err := s.ParseWebhook(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, uint(42), ev.InvoiceID)
	assert.Equal(t, "cs_123", ev.SessionID)
	assert.Equal(t, "pi_9", ev.PaymentIntentID)
	assert.Equal(t, 1512.0, ev.Amount)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	s := NewStripe("sk_test_x", testSecret, "usd", time.Second)
	payload, _ := signed(t, `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := s.ParseWebhook(payload, "t=1,v1=deadbeef")
	assert.Error(t, err)
}

func TestDecodeEventIgnoresOtherTypes(t *testing.T) {
	_, err := decodeEvent("evt_2", "customer.created", json.RawMessage(`{}`))
	assert.True(t, errors.Is(err, ErrIgnoredEvent))

	_, err = decodeEvent("evt_3", EventPaymentIntentSucceeded, json.RawMessage(`{"id":"pi_1","amount_received":500}`))
	assert.True(t, errors.Is(err, ErrIgnoredEvent), "missing invoice_id")

	ev, err := decodeEvent("evt_4", EventPaymentIntentSucceeded,
		json.RawMessage(`{"id":"pi_1","amount_received":12550,"metadata":{"invoice_id":"7"}}`))
	require.NoError(t, err)
	assert.Equal(t, uint(7), ev.InvoiceID)
	assert.Equal(t, 125.5, ev.Amount)
}

func TestDecodeEventIgnoresUnpaidCheckout(t *testing.T) {
	_, err := decodeEvent("evt_5", EventCheckoutCompleted,
		json.RawMessage(`{"id":"cs_1","payment_status":"unpaid","metadata":{"invoice_id":"3"}}`))
	assert.True(t, errors.Is(err, ErrIgnoredEvent))
}

func TestCheckoutRejectsNonPositiveAmount(t *testing.T) {
	s := NewStripe("sk_test_x", testSecret, "usd", time.Second)
	_, err := s.CreateCheckoutSession(context.Background(), CheckoutRequest{InvoiceID: 1, Amount: 0})
	assert.Error(t, err)
}

func TestFakeProvider(t *testing.T) {
	f := &Fake{Secret: "sig"}
	ctx := context.Background()

	cs, err := f.CreateCheckoutSession(ctx, CheckoutRequest{InvoiceID: 1, Amount: 10})
	require.NoError(t, err)
	assert.Contains(t, cs.URL, cs.ID)

	ev, err := f.ParseWebhook([]byte(`{"Type":"checkout.session.completed","InvoiceID":1,"Amount":10}`), "sig")
	require.NoError(t, err)
	assert.Equal(t, uint(1), ev.InvoiceID)

	_, err = f.ParseWebhook([]byte(`{}`), "nope")
	assert.Error(t, err)
}
