package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"lawdesk/internal/apperr"
	"lawdesk/internal/database"
	"lawdesk/internal/logging"
	"lawdesk/internal/middleware"
	"lawdesk/internal/models"
	"lawdesk/internal/payments"

	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = 64 << 10

func (h *Handler) APICreatePaymentIntent(c *gin.Context) {
	if h.Payments == nil {
		paymentsDisabled(c)
		return
	}
	var body struct {
		InvoiceID uint    `json:"invoice_id" binding:"required"`
		Amount    float64 `json:"amount"`
	}
	if !bindJSON(c, &body) {
		return
	}
	ctx := c.Request.Context()
	inv, err := h.Store.GetInvoice(ctx, body.InvoiceID)
	if err != nil {
		fail(c, err)
		return
	}
	if !inv.Status.Open() {
		fail(c, badRequest("invoice %s is %s", inv.InvoiceNumber, inv.Status))
		return
	}
	amount := body.Amount
	if amount == 0 {
		amount = inv.Balance()
	}
	if amount <= 0 || amount > inv.Balance() {
		fail(c, badRequest("amount must be in (0, %.2f]", inv.Balance()))
		return
	}
	pi, err := h.Payments.CreatePaymentIntent(ctx, amount, map[string]string{
		"invoice_id":     strconv.FormatUint(uint64(inv.ID), 10),
		"invoice_number": inv.InvoiceNumber,
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "payment_intent", "invoice", inv.ID, nil, gin.H{"payment_intent": pi.ID, "amount": amount})
	ok(c, http.StatusCreated, pi)
}

// APIRefund refunds a payment. Processor payments are refunded at the
// processor first; manual ones are only booked.
func (h *Handler) APIRefund(c *gin.Context) {
	var body struct {
		PaymentID uint    `json:"payment_id" binding:"required"`
		Amount    float64 `json:"amount"`
	}
	if !bindJSON(c, &body) {
		return
	}
	ctx := c.Request.Context()
	p, err := h.Store.GetPayment(ctx, body.PaymentID)
	if err != nil {
		fail(c, err)
		return
	}
	amount := body.Amount
	if amount == 0 {
		amount = p.Amount - p.RefundedAmount
	}

	var refund *payments.Refund
	if p.Method == models.PaymentStripe && p.StripePaymentIntentID != "" {
		if h.Payments == nil {
			paymentsDisabled(c)
			return
		}
		if amount <= 0 || amount > p.Amount-p.RefundedAmount {
			fail(c, badRequest("refund must be in (0, %.2f]", p.Amount-p.RefundedAmount))
			return
		}
		if refund, err = h.Payments.Refund(ctx, p.StripePaymentIntentID, amount); err != nil {
			fail(c, err)
			return
		}
	}

	updated, err := h.Store.ApplyRefund(ctx, p.ID, amount)
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "refund", "payment", p.ID, gin.H{"refunded_amount": p.RefundedAmount}, gin.H{"refunded_amount": updated.RefundedAmount, "refund": refund})
	h.invalidateReports(ctx)
	ok(c, http.StatusOK, gin.H{"payment": updated, "refund": refund})
}

// APIConnectOnboard creates (once) a Connect account for the caller and
// returns the onboarding link.
func (h *Handler) APIConnectOnboard(c *gin.Context) {
	if h.Payments == nil {
		paymentsDisabled(c)
		return
	}
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	account := user.StripeAccountID
	if account == "" {
		var err error
		if account, err = h.Payments.CreateConnectAccount(ctx, user.Email); err != nil {
			fail(c, err)
			return
		}
		if err := h.Store.SetStripeAccount(ctx, user.ID, account); err != nil {
			fail(c, err)
			return
		}
		h.audit(c, "connect_account", "user", user.ID, nil, gin.H{"account": account})
	}
	link, err := h.Payments.CreateAccountLink(ctx, account,
		h.Config.PublicBaseURL+"/dashboard?connect=refresh",
		h.Config.PublicBaseURL+"/dashboard?connect=done")
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"account_id": account, "url": link})
}

// StripeWebhook receives processor events. It is unauthenticated; the
// signature check stands in for the session.
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.Payments == nil {
		paymentsDisabled(c)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		fail(c, badRequest("read webhook body"))
		return
	}
	ev, err := h.Payments.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, payments.ErrIgnoredEvent) {
		ok(c, http.StatusOK, gin.H{"ignored": true})
		return
	}
	if err != nil {
		logging.FromContext(c.Request.Context()).Warn("webhook rejected", "err", err)
		fail(c, badRequest("invalid webhook"))
		return
	}

	inv, p, err := h.applyWebhook(c, ev)
	if errors.Is(err, apperr.ErrConflict) {
		ok(c, http.StatusOK, gin.H{"duplicate": true})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "webhook_payment", "invoice", inv.ID, nil, gin.H{"event": ev.ID, "type": ev.Type, "payment": p})
	h.invalidateReports(c.Request.Context())
	ok(c, http.StatusOK, gin.H{"invoice_id": inv.ID, "status": inv.Status})
}

func (h *Handler) applyWebhook(c *gin.Context, ev *payments.WebhookEvent) (*models.Invoice, *models.Payment, error) {
	ctx := c.Request.Context()
	var inv *models.Invoice
	var err error
	if ev.SessionID != "" {
		inv, err = h.Store.FindInvoiceByCheckoutSession(ctx, ev.SessionID)
	}
	if inv == nil {
		inv, err = h.Store.GetInvoice(ctx, ev.InvoiceID)
	}
	if err != nil {
		return nil, nil, err
	}
	if inv.ID != ev.InvoiceID {
		return nil, nil, fmt.Errorf("webhook invoice %d does not match session invoice %d: %w", ev.InvoiceID, inv.ID, apperr.ErrInvalid)
	}
	amount := ev.Amount
	if amount <= 0 || amount > inv.Balance() {
		amount = inv.Balance()
	}
	if amount <= 0 {
		return inv, nil, fmt.Errorf("invoice %s already settled: %w", inv.InvoiceNumber, apperr.ErrConflict)
	}
	ref := ev.SessionID
	if ref == "" {
		ref = ev.ID
	}
	return h.Store.RecordPayment(ctx, inv.ID, database.PaymentInput{
		Amount:                amount,
		Method:                models.PaymentStripe,
		Reference:             ref,
		StripePaymentIntentID: ev.PaymentIntentID,
	})
}
