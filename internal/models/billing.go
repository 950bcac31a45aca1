package models

import "time"

type TimeEntryStatus string

const (
	TimeDraft      TimeEntryStatus = "draft"
	TimeSubmitted  TimeEntryStatus = "submitted"
	TimeApproved   TimeEntryStatus = "approved"
	TimeBilled     TimeEntryStatus = "billed"
	TimeWrittenOff TimeEntryStatus = "written_off"
)

func (s TimeEntryStatus) Valid() bool {
	switch s {
	case TimeDraft, TimeSubmitted, TimeApproved, TimeBilled, TimeWrittenOff:
		return true
	}
	return false
}

type TimeEntry struct {
	Model
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	User        *User           `json:"user,omitempty"`
	CaseID      uint            `gorm:"not null;index" json:"case_id"`
	Case        *Case           `json:"case,omitempty"`
	InvoiceID   *uint           `gorm:"index" json:"invoice_id,omitempty"`
	Date        time.Time       `json:"date"`
	Hours       float64         `gorm:"not null" json:"hours"`
	HourlyRate  float64         `gorm:"not null" json:"hourly_rate"`
	Amount      float64         `gorm:"not null" json:"amount"`
	Description string          `gorm:"type:text" json:"description"`
	Status      TimeEntryStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Billable    bool            `json:"billable"`
}

type ExpenseStatus string

const (
	ExpenseUnbilled   ExpenseStatus = "unbilled"
	ExpenseBilled     ExpenseStatus = "billed"
	ExpenseWrittenOff ExpenseStatus = "written_off"
)

type Expense struct {
	Model
	CaseID      uint          `gorm:"not null;index" json:"case_id"`
	UserID      uint          `gorm:"not null" json:"user_id"`
	InvoiceID   *uint         `gorm:"index" json:"invoice_id,omitempty"`
	Date        time.Time     `json:"date"`
	Description string        `gorm:"type:text" json:"description"`
	Category    string        `gorm:"size:64" json:"category,omitempty"`
	Amount      float64       `gorm:"not null" json:"amount"`
	Billable    bool          `json:"billable"`
	Status      ExpenseStatus `gorm:"type:varchar(20);not null" json:"status"`
}

type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceSent          InvoiceStatus = "sent"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceOverdue       InvoiceStatus = "overdue"
	InvoiceVoid          InvoiceStatus = "void"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePartiallyPaid, InvoicePaid, InvoiceOverdue, InvoiceVoid:
		return true
	}
	return false
}

// Open reports whether money is still expected on the invoice.
func (s InvoiceStatus) Open() bool {
	return s == InvoiceSent || s == InvoicePartiallyPaid || s == InvoiceOverdue
}

type Invoice struct {
	Model
	InvoiceNumber   string        `gorm:"uniqueIndex;size:32;not null" json:"invoice_number"`
	ClientID        uint          `gorm:"not null;index" json:"client_id"`
	Client          *Client       `json:"client,omitempty"`
	CaseID          *uint         `gorm:"index" json:"case_id,omitempty"`
	IssueDate       time.Time     `json:"issue_date"`
	DueDate         time.Time     `json:"due_date"`
	Subtotal        float64       `gorm:"not null" json:"subtotal"`
	TaxRate         float64       `gorm:"not null" json:"tax_rate"`
	TaxAmount       float64       `gorm:"not null" json:"tax_amount"`
	TotalAmount     float64       `gorm:"not null" json:"total_amount"`
	AmountPaid      float64       `gorm:"not null;default:0" json:"amount_paid"`
	Status          InvoiceStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Notes           string        `gorm:"type:text" json:"notes,omitempty"`
	StripeSessionID string        `gorm:"size:128;index" json:"stripe_session_id,omitempty"`

	TimeEntries []TimeEntry `json:"time_entries,omitempty"`
	Expenses    []Expense   `json:"expenses,omitempty"`
	Payments    []Payment   `json:"payments,omitempty"`
}

func (i Invoice) Balance() float64 { return i.TotalAmount - i.AmountPaid }

type PaymentMethod string
type PaymentStatus string

const (
	PaymentStripe PaymentMethod = "stripe"
	PaymentManual PaymentMethod = "manual"

	PaymentSucceeded         PaymentStatus = "succeeded"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

type Payment struct {
	Model
	InvoiceID             uint          `gorm:"not null;index" json:"invoice_id"`
	Amount                float64       `gorm:"not null" json:"amount"`
	RefundedAmount        float64       `gorm:"not null;default:0" json:"refunded_amount"`
	Method                PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`
	Status                PaymentStatus `gorm:"type:varchar(20);not null" json:"status"`
	StripePaymentIntentID string        `gorm:"size:128;uniqueIndex:idx_payments_intent,where:stripe_payment_intent_id <> ''" json:"stripe_payment_intent_id,omitempty"`
	Reference             string        `gorm:"size:255" json:"reference,omitempty"`
	PaidAt                time.Time     `json:"paid_at"`
}
