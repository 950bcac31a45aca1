package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lawdesk/internal/billing"
	"lawdesk/internal/models"
)

type TimeEntryFilter struct {
	UserID   uint
	CaseID   uint
	Status   models.TimeEntryStatus
	Unbilled bool
	From, To time.Time
}

func (s *Store) ListTimeEntries(ctx context.Context, f TimeEntryFilter) ([]models.TimeEntry, error) {
	q := s.db.WithContext(ctx).Preload("User").Preload("Case").Order("date desc, id desc")
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.CaseID != 0 {
		q = q.Where("case_id = ?", f.CaseID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Unbilled {
		q = q.Where("invoice_id IS NULL AND billable = ? AND status <> ?", true, models.TimeWrittenOff)
	}
	if !f.From.IsZero() {
		q = q.Where("date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("date < ?", f.To)
	}
	var entries []models.TimeEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	return entries, nil
}

func (s *Store) GetTimeEntry(ctx context.Context, id uint) (*models.TimeEntry, error) {
	var e models.TimeEntry
	if err := s.db.WithContext(ctx).Preload("Case").First(&e, id).Error; err != nil {
		return nil, lookupErr(err, "time entry", id)
	}
	return &e, nil
}

// CreateTimeEntry stores a draft entry with amount = hours × rate. A zero
// rate falls back to the user's hourly rate.
func (s *Store) CreateTimeEntry(ctx context.Context, e *models.TimeEntry) error {
	if err := validateHours(e.Hours); err != nil {
		return err
	}
	if e.HourlyRate < 0 {
		return invalid("hourly rate must not be negative")
	}
	e.Description = strings.TrimSpace(e.Description)
	if e.Description == "" {
		return invalid("description is required")
	}

	var c models.Case
	if err := s.db.WithContext(ctx).First(&c, e.CaseID).Error; err != nil {
		return invalid("case %d does not exist", e.CaseID)
	}
	if c.Status == models.CaseClosed {
		return invalid("case %s is closed", c.CaseNumber)
	}
	if e.HourlyRate == 0 {
		u, err := s.GetUser(ctx, e.UserID)
		if err != nil {
			return err
		}
		e.HourlyRate = u.HourlyRate
	}
	if e.Date.IsZero() {
		e.Date = s.now()
	}

	e.Amount = billing.TimeEntryAmount(e.Hours, e.HourlyRate)
	e.Status = models.TimeDraft
	e.InvoiceID = nil
	e.Case = nil
	e.User = nil
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("create time entry: %w", err)
	}
	return nil
}

// UpdateTimeEntry overwrites hours/rate/description and recomputes the amount.
// Billed or written-off entries are frozen.
func (s *Store) UpdateTimeEntry(ctx context.Context, e *models.TimeEntry) error {
	var stored models.TimeEntry
	if err := s.db.WithContext(ctx).First(&stored, e.ID).Error; err != nil {
		return lookupErr(err, "time entry", e.ID)
	}
	if stored.Status == models.TimeBilled || stored.Status == models.TimeWrittenOff {
		return invalid("time entry %d is %s and can no longer change", e.ID, stored.Status)
	}
	if err := validateHours(e.Hours); err != nil {
		return err
	}
	if e.HourlyRate < 0 {
		return invalid("hourly rate must not be negative")
	}
	e.Description = strings.TrimSpace(e.Description)
	if e.Description == "" {
		return invalid("description is required")
	}
	stored.Hours = e.Hours
	stored.HourlyRate = e.HourlyRate
	stored.Amount = billing.TimeEntryAmount(e.Hours, e.HourlyRate)
	stored.Description = e.Description
	stored.Billable = e.Billable
	if !e.Date.IsZero() {
		stored.Date = e.Date
	}
	if err := s.db.WithContext(ctx).Save(&stored).Error; err != nil {
		return fmt.Errorf("update time entry: %w", err)
	}
	*e = stored
	return nil
}

var timeTransitions = map[models.TimeEntryStatus][]models.TimeEntryStatus{
	models.TimeDraft:     {models.TimeSubmitted, models.TimeWrittenOff},
	models.TimeSubmitted: {models.TimeApproved, models.TimeDraft, models.TimeWrittenOff},
	models.TimeApproved:  {models.TimeSubmitted, models.TimeWrittenOff},
}

// SetTimeEntryStatus moves an entry through draft → submitted → approved.
// "billed" is only reachable through invoicing.
func (s *Store) SetTimeEntryStatus(ctx context.Context, id uint, status models.TimeEntryStatus) (*models.TimeEntry, error) {
	var e models.TimeEntry
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, lookupErr(err, "time entry", id)
	}
	allowed := false
	for _, next := range timeTransitions[e.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, invalid("time entry %d cannot move from %s to %s", id, e.Status, status)
	}
	e.Status = status
	if err := s.db.WithContext(ctx).Save(&e).Error; err != nil {
		return nil, fmt.Errorf("update time entry status: %w", err)
	}
	return &e, nil
}

func validateHours(h float64) error {
	if h <= 0 || h > 24 {
		return invalid("hours must be greater than 0 and at most 24")
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, caseID uint, unbilledOnly bool) ([]models.Expense, error) {
	q := s.db.WithContext(ctx).Order("date desc, id desc")
	if caseID != 0 {
		q = q.Where("case_id = ?", caseID)
	}
	if unbilledOnly {
		q = q.Where("status = ? AND billable = ?", models.ExpenseUnbilled, true)
	}
	var out []models.Expense
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (s *Store) CreateExpense(ctx context.Context, e *models.Expense) error {
	e.Amount = billing.Round2(e.Amount)
	if e.Amount <= 0 {
		return invalid("expense amount must be positive")
	}
	e.Description = strings.TrimSpace(e.Description)
	if e.Description == "" {
		return invalid("description is required")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Case{}).Where("id = ?", e.CaseID).Count(&count).Error; err != nil {
		return fmt.Errorf("check case: %w", err)
	}
	if count == 0 {
		return invalid("case %d does not exist", e.CaseID)
	}
	if e.Date.IsZero() {
		e.Date = s.now()
	}
	e.Status = models.ExpenseUnbilled
	e.InvoiceID = nil
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

func (s *Store) WriteOffExpense(ctx context.Context, id uint) (*models.Expense, error) {
	var e models.Expense
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, lookupErr(err, "expense", id)
	}
	if e.Status == models.ExpenseBilled {
		return nil, invalid("expense %d is already billed", id)
	}
	e.Status = models.ExpenseWrittenOff
	if err := s.db.WithContext(ctx).Save(&e).Error; err != nil {
		return nil, fmt.Errorf("write off expense: %w", err)
	}
	return &e, nil
}
