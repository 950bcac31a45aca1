package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lawdesk/internal/billing"
	"lawdesk/internal/models"

	"gorm.io/gorm"
)

// InvoiceDraft describes what goes on a new invoice.
type InvoiceDraft struct {
	ClientID     uint
	CaseID       *uint
	TimeEntryIDs []uint
	ExpenseIDs   []uint
	TaxRate      float64
	IssueDate    time.Time
	DueDate      time.Time
	Notes        string
}

type InvoiceFilter struct {
	ClientID uint
	Status   models.InvoiceStatus
}

func (s *Store) ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	q := s.db.WithContext(ctx).Preload("Client").Order("issue_date desc, id desc")
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.Invoice
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}

func (s *Store) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("TimeEntries", func(db *gorm.DB) *gorm.DB { return db.Order("date asc, id asc") }).
		Preload("TimeEntries.User").
		Preload("Expenses").
		Preload("Payments").
		First(&inv, id).Error
	if err != nil {
		return nil, lookupErr(err, "invoice", id)
	}
	return &inv, nil
}

func (s *Store) FindInvoiceByCheckoutSession(ctx context.Context, sessionID string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).First(&inv).Error; err != nil {
		return nil, lookupErr(err, "invoice for session", sessionID)
	}
	return &inv, nil
}

// CreateInvoice bills the listed time entries and expenses of one client.
// subtotal = Σ amounts, tax = subtotal × rate, total = subtotal + tax.
func (s *Store) CreateInvoice(ctx context.Context, d InvoiceDraft) (*models.Invoice, error) {
	if d.TaxRate < 0 || d.TaxRate >= 1 {
		return nil, invalid("tax rate must be in [0,1)")
	}
	if len(d.TimeEntryIDs) == 0 && len(d.ExpenseIDs) == 0 {
		return nil, invalid("an invoice needs at least one time entry or expense")
	}
	if d.IssueDate.IsZero() {
		d.IssueDate = s.now()
	}
	if d.DueDate.IsZero() {
		d.DueDate = d.IssueDate.AddDate(0, 0, 30)
	}
	if d.DueDate.Before(d.IssueDate) {
		return nil, invalid("due date is before issue date")
	}

	var inv models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client models.Client
		if err := tx.First(&client, d.ClientID).Error; err != nil {
			return invalid("client %d does not exist", d.ClientID)
		}

		subtotal := 0.0
		entries, err := billableEntries(tx, d.ClientID, uniq(d.TimeEntryIDs))
		if err != nil {
			return err
		}
		for _, e := range entries {
			subtotal += e.Amount
		}
		expenses, err := billableExpenses(tx, d.ClientID, uniq(d.ExpenseIDs))
		if err != nil {
			return err
		}
		for _, e := range expenses {
			subtotal += e.Amount
		}

		subtotal = billing.Round2(subtotal)
		tax, total := billing.InvoiceTotals(subtotal, d.TaxRate)

		var count int64
		prefix := fmt.Sprintf("INV-%d-", d.IssueDate.Year())
		if err := tx.Unscoped().Model(&models.Invoice{}).Where("invoice_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
			return fmt.Errorf("count invoices: %w", err)
		}

		inv = models.Invoice{
			InvoiceNumber: billing.InvoiceNumber(d.IssueDate, int(count)+1),
			ClientID:      d.ClientID,
			CaseID:        d.CaseID,
			IssueDate:     d.IssueDate,
			DueDate:       d.DueDate,
			Subtotal:      subtotal,
			TaxRate:       d.TaxRate,
			TaxAmount:     tax,
			TotalAmount:   total,
			Status:        models.InvoiceDraft,
			Notes:         strings.TrimSpace(d.Notes),
		}
		if err := tx.Create(&inv).Error; err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		if len(entries) > 0 {
			if err := tx.Model(&models.TimeEntry{}).
				Where("id IN ?", idsOfEntries(entries)).
				Updates(map[string]any{"invoice_id": inv.ID, "status": models.TimeBilled}).Error; err != nil {
				return fmt.Errorf("bill time entries: %w", err)
			}
		}
		if len(expenses) > 0 {
			if err := tx.Model(&models.Expense{}).
				Where("id IN ?", idsOfExpenses(expenses)).
				Updates(map[string]any{"invoice_id": inv.ID, "status": models.ExpenseBilled}).Error; err != nil {
				return fmt.Errorf("bill expenses: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, inv.ID)
}

func billableEntries(tx *gorm.DB, clientID uint, ids []uint) ([]models.TimeEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var entries []models.TimeEntry
	if err := tx.Preload("Case").Where("id IN ?", ids).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load time entries: %w", err)
	}
	if len(entries) != len(ids) {
		return nil, invalid("unknown time entry in %v", ids)
	}
	for _, e := range entries {
		switch {
		case e.InvoiceID != nil || e.Status == models.TimeBilled:
			return nil, invalid("time entry %d is already billed", e.ID)
		case e.Status == models.TimeWrittenOff:
			return nil, invalid("time entry %d is written off", e.ID)
		case !e.Billable:
			return nil, invalid("time entry %d is not billable", e.ID)
		case e.Case == nil || e.Case.ClientID != clientID:
			return nil, invalid("time entry %d belongs to another client", e.ID)
		}
	}
	return entries, nil
}

func billableExpenses(tx *gorm.DB, clientID uint, ids []uint) ([]models.Expense, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var expenses []models.Expense
	err := tx.Model(&models.Expense{}).
		Joins("JOIN cases ON cases.id = expenses.case_id").
		Where("expenses.id IN ? AND cases.client_id = ?", ids, clientID).
		Find(&expenses).Error
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	if len(expenses) != len(ids) {
		return nil, invalid("unknown expense or expense of another client in %v", ids)
	}
	for _, e := range expenses {
		if e.Status != models.ExpenseUnbilled || e.InvoiceID != nil || !e.Billable {
			return nil, invalid("expense %d cannot be billed", e.ID)
		}
	}
	return expenses, nil
}

func idsOfEntries(entries []models.TimeEntry) []uint {
	ids := make([]uint, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func idsOfExpenses(expenses []models.Expense) []uint {
	ids := make([]uint, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
	}
	return ids
}

// SetInvoiceStatus moves the invoice by hand. Voiding releases its items
// back to the unbilled pool; paid states are reached through payments.
func (s *Store) SetInvoiceStatus(ctx context.Context, id uint, status models.InvoiceStatus) (*models.Invoice, error) {
	if !status.Valid() {
		return nil, invalid("invalid invoice status %q", status)
	}
	if status == models.InvoicePaid || status == models.InvoicePartiallyPaid {
		return nil, invalid("record a payment to mark an invoice %s", status)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, id).Error; err != nil {
			return lookupErr(err, "invoice", id)
		}
		if inv.Status == models.InvoiceVoid || inv.Status == models.InvoicePaid {
			return invalid("invoice %s is %s", inv.InvoiceNumber, inv.Status)
		}
		if status == models.InvoiceVoid {
			if inv.AmountPaid > 0 {
				return invalid("invoice %s has payments; refund them first", inv.InvoiceNumber)
			}
			if err := tx.Model(&models.TimeEntry{}).Where("invoice_id = ?", inv.ID).
				Updates(map[string]any{"invoice_id": nil, "status": models.TimeApproved}).Error; err != nil {
				return fmt.Errorf("release time entries: %w", err)
			}
			if err := tx.Model(&models.Expense{}).Where("invoice_id = ?", inv.ID).
				Updates(map[string]any{"invoice_id": nil, "status": models.ExpenseUnbilled}).Error; err != nil {
				return fmt.Errorf("release expenses: %w", err)
			}
		}
		inv.Status = status
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

// VoidInvoice is the invoice "delete".
func (s *Store) VoidInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.SetInvoiceStatus(ctx, id, models.InvoiceVoid)
}

func (s *Store) AttachCheckoutSession(ctx context.Context, invoiceID uint, sessionID string) error {
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		Update("stripe_session_id", sessionID).Error
	if err != nil {
		return fmt.Errorf("attach checkout session: %w", err)
	}
	return nil
}

type PaymentInput struct {
	Amount                float64
	Method                models.PaymentMethod
	Reference             string
	StripePaymentIntentID string
	PaidAt                time.Time
}

// RecordPayment adds a payment; amount_paid may never exceed the total.
func (s *Store) RecordPayment(ctx context.Context, invoiceID uint, in PaymentInput) (*models.Invoice, *models.Payment, error) {
	amount := billing.Round2(in.Amount)
	if amount <= 0 {
		return nil, nil, invalid("payment amount must be positive")
	}
	if in.Method == "" {
		in.Method = models.PaymentManual
	}
	if in.PaidAt.IsZero() {
		in.PaidAt = s.now()
	}

	var p models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := forUpdate(tx).First(&inv, invoiceID).Error; err != nil {
			return lookupErr(err, "invoice", invoiceID)
		}
		if inv.Status == models.InvoiceVoid {
			return invalid("invoice %s is void", inv.InvoiceNumber)
		}
		if in.StripePaymentIntentID != "" {
			var dup int64
			err := tx.Model(&models.Payment{}).Where("stripe_payment_intent_id = ?", in.StripePaymentIntentID).Count(&dup).Error
			if err != nil {
				return fmt.Errorf("check payment intent: %w", err)
			}
			if dup > 0 {
				return conflict("payment intent %s already recorded", in.StripePaymentIntentID)
			}
		}
		paid := billing.Round2(inv.AmountPaid + amount)
		if paid > inv.TotalAmount {
			return invalid("payment of %.2f exceeds balance %.2f", amount, inv.Balance())
		}

		p = models.Payment{
			InvoiceID:             inv.ID,
			Amount:                amount,
			Method:                in.Method,
			Status:                models.PaymentSucceeded,
			StripePaymentIntentID: in.StripePaymentIntentID,
			Reference:             strings.TrimSpace(in.Reference),
			PaidAt:                in.PaidAt,
		}
		if err := tx.Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("payment intent %s already recorded", in.StripePaymentIntentID)
			}
			return fmt.Errorf("create payment: %w", err)
		}

		inv.AmountPaid = paid
		inv.Status = paymentStatus(inv)
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, nil, err
	}
	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	return inv, &p, nil
}

func (s *Store) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, lookupErr(err, "payment", id)
	}
	return &p, nil
}

// ApplyRefund books a refund against a payment and reopens the invoice balance.
func (s *Store) ApplyRefund(ctx context.Context, paymentID uint, amount float64) (*models.Payment, error) {
	amount = billing.Round2(amount)
	if amount <= 0 {
		return nil, invalid("refund amount must be positive")
	}
	var p models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&p, paymentID).Error; err != nil {
			return lookupErr(err, "payment", paymentID)
		}
		refunded := billing.Round2(p.RefundedAmount + amount)
		if refunded > p.Amount {
			return invalid("refund of %.2f exceeds refundable %.2f", amount, p.Amount-p.RefundedAmount)
		}
		p.RefundedAmount = refunded
		if refunded == p.Amount {
			p.Status = models.PaymentRefunded
		} else {
			p.Status = models.PaymentPartiallyRefunded
		}
		if err := tx.Save(&p).Error; err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		var inv models.Invoice
		if err := forUpdate(tx).First(&inv, p.InvoiceID).Error; err != nil {
			return lookupErr(err, "invoice", p.InvoiceID)
		}
		inv.AmountPaid = billing.Round2(inv.AmountPaid - amount)
		inv.Status = paymentStatus(inv)
		return tx.Save(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func paymentStatus(inv models.Invoice) models.InvoiceStatus {
	switch {
	case inv.AmountPaid >= inv.TotalAmount:
		return models.InvoicePaid
	case inv.AmountPaid > 0:
		return models.InvoicePartiallyPaid
	case inv.Status == models.InvoiceDraft:
		return models.InvoiceDraft
	default:
		return models.InvoiceSent
	}
}
