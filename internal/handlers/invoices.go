package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"lawdesk/internal/apperr"
	"lawdesk/internal/database"
	"lawdesk/internal/models"
	"lawdesk/internal/payments"

	"github.com/gin-gonic/gin"
)

type invoiceInput struct {
	ClientID     uint     `json:"client_id"`
	CaseID       *uint    `json:"case_id"`
	TimeEntryIDs []uint   `json:"time_entry_ids"`
	ExpenseIDs   []uint   `json:"expense_ids"`
	TaxRate      *float64 `json:"tax_rate"`
	IssueDate    string   `json:"issue_date"`
	DueDate      string   `json:"due_date"`
	Notes        string   `json:"notes"`
}

func invoiceFilter(c *gin.Context) database.InvoiceFilter {
	return database.InvoiceFilter{
		ClientID: queryID(c, "client_id"),
		Status:   models.InvoiceStatus(c.Query("status")),
	}
}

func (h *Handler) ListInvoices(c *gin.Context) {
	invoices, err := h.Store.ListInvoices(c.Request.Context(), invoiceFilter(c))
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, "invoices_list.html", gin.H{"invoices": invoices, "status": c.Query("status")})
}

func (h *Handler) ShowInvoice(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	inv, err := h.Store.GetInvoice(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	render(c, http.StatusOK, "invoice_detail.html", gin.H{
		"invoice":         inv,
		"paymentsEnabled": h.Payments != nil,
		"justPaid":        c.Query("paid") == "1",
	})
}

// ChangeInvoiceStatus is the send/void buttons on the invoice page.
func (h *Handler) ChangeInvoiceStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	if _, err := h.setInvoiceStatus(c, id, models.InvoiceStatus(c.PostForm("status"))); err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/invoices/"+c.Param("id"))
}

// StartCheckout is the "Pay online" button; it redirects to the processor.
func (h *Handler) StartCheckout(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		renderError(c, err)
		return
	}
	if h.Payments == nil {
		renderError(c, fmt.Errorf("online payments: %w", apperr.ErrDisabled))
		return
	}
	sess, err := h.checkout(c, id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, sess.URL)
}

func (h *Handler) setInvoiceStatus(c *gin.Context, id uint, status models.InvoiceStatus) (*models.Invoice, error) {
	ctx := c.Request.Context()
	before, err := h.Store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	inv, err := h.Store.SetInvoiceStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	h.audit(c, "status", "invoice", id, gin.H{"status": before.Status}, gin.H{"status": inv.Status})
	h.invalidateReports(ctx)
	return inv, nil
}

func (h *Handler) checkout(c *gin.Context, id uint) (*payments.CheckoutSession, error) {
	ctx := c.Request.Context()
	inv, err := h.Store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.Status.Open() {
		return nil, badRequest("invoice %s is %s and cannot be paid online", inv.InvoiceNumber, inv.Status)
	}
	base := h.Config.PublicBaseURL + "/invoices/" + strconv.FormatUint(uint64(id), 10)
	req := payments.CheckoutRequest{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Amount:        inv.Balance(),
		SuccessURL:    base + "?paid=1",
		CancelURL:     base,
	}
	if inv.Client != nil {
		req.ClientName = inv.Client.Name
		req.CustomerEmail = inv.Client.Email
	}
	sess, err := h.Payments.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := h.Store.AttachCheckoutSession(ctx, id, sess.ID); err != nil {
		return nil, err
	}
	h.audit(c, "checkout", "invoice", id, nil, gin.H{"session_id": sess.ID, "amount": req.Amount})
	return sess, nil
}

func (h *Handler) APIListInvoices(c *gin.Context) {
	invoices, err := h.Store.ListInvoices(c.Request.Context(), invoiceFilter(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, invoices)
}

func (h *Handler) APIGetInvoice(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	inv, err := h.Store.GetInvoice(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, inv)
}

func (h *Handler) APICreateInvoice(c *gin.Context) {
	var in invoiceInput
	if !bindJSON(c, &in) {
		return
	}
	issue, err := parseDate(in.IssueDate)
	if err != nil {
		fail(c, err)
		return
	}
	due, err := parseDate(in.DueDate)
	if err != nil {
		fail(c, err)
		return
	}
	rate := h.Config.DefaultTaxRate
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}
	inv, err := h.Store.CreateInvoice(c.Request.Context(), database.InvoiceDraft{
		ClientID:     in.ClientID,
		CaseID:       in.CaseID,
		TimeEntryIDs: in.TimeEntryIDs,
		ExpenseIDs:   in.ExpenseIDs,
		TaxRate:      rate,
		IssueDate:    issue,
		DueDate:      due,
		Notes:        in.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "create", "invoice", inv.ID, nil, gin.H{
		"invoice_number": inv.InvoiceNumber,
		"subtotal":       inv.Subtotal,
		"tax_amount":     inv.TaxAmount,
		"total_amount":   inv.TotalAmount,
	})
	h.invalidateReports(c.Request.Context())
	ok(c, http.StatusCreated, inv)
}

func (h *Handler) APISetInvoiceStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var body struct {
		Status models.InvoiceStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	inv, err := h.setInvoiceStatus(c, id, body.Status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, inv)
}

// APIRecordPayment books a manual payment (cheque, wire) against the invoice.
func (h *Handler) APIRecordPayment(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var body struct {
		Amount    float64 `json:"amount"`
		Reference string  `json:"reference"`
		PaidAt    string  `json:"paid_at"`
	}
	if !bindJSON(c, &body) {
		return
	}
	paidAt, err := parseDate(body.PaidAt)
	if err != nil {
		fail(c, err)
		return
	}
	inv, p, err := h.Store.RecordPayment(c.Request.Context(), id, database.PaymentInput{
		Amount:    body.Amount,
		Method:    models.PaymentManual,
		Reference: body.Reference,
		PaidAt:    paidAt,
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.audit(c, "payment", "invoice", id, nil, p)
	h.invalidateReports(c.Request.Context())
	ok(c, http.StatusCreated, gin.H{"invoice": inv, "payment": p})
}

func (h *Handler) APICheckout(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if h.Payments == nil {
		paymentsDisabled(c)
		return
	}
	sess, err := h.checkout(c, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

func paymentsDisabled(c *gin.Context) {
	disabled(c, "PAYMENTS_DISABLED", "Online payments are not configured.")
}
