package database

import (
	"context"
	"fmt"
	"time"

	"lawdesk/internal/billing"
	"lawdesk/internal/models"
)

type DashboardStats struct {
	ActiveClients    int64                  `json:"active_clients"`
	OpenCases        int64                  `json:"open_cases"`
	UnbilledHours    float64                `json:"unbilled_hours"`
	UnbilledAmount   float64                `json:"unbilled_amount"`
	OutstandingTotal float64                `json:"outstanding_total"`
	UpcomingEvents   []models.CalendarEvent `json:"upcoming_events"`
}

func (s *Store) Dashboard(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	var st DashboardStats

	if err := db.Model(&models.Client{}).Where("status = ?", models.ClientActive).Count(&st.ActiveClients).Error; err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	if err := db.Model(&models.Case{}).Where("status <> ?", models.CaseClosed).Count(&st.OpenCases).Error; err != nil {
		return nil, fmt.Errorf("count cases: %w", err)
	}

	var unbilled struct {
		Hours  float64
		Amount float64
	}
	err := db.Model(&models.TimeEntry{}).
		Select("COALESCE(SUM(hours), 0) AS hours, COALESCE(SUM(amount), 0) AS amount").
		Where("invoice_id IS NULL AND billable = ? AND status <> ?", true, models.TimeWrittenOff).
		Scan(&unbilled).Error
	if err != nil {
		return nil, fmt.Errorf("sum unbilled time: %w", err)
	}
	st.UnbilledHours = billing.Round2(unbilled.Hours)
	st.UnbilledAmount = billing.Round2(unbilled.Amount)

	var outstanding float64
	err = db.Model(&models.Invoice{}).
		Select("COALESCE(SUM(total_amount - amount_paid), 0)").
		Where("status IN ?", []models.InvoiceStatus{models.InvoiceSent, models.InvoicePartiallyPaid, models.InvoiceOverdue}).
		Scan(&outstanding).Error
	if err != nil {
		return nil, fmt.Errorf("sum outstanding: %w", err)
	}
	st.OutstandingTotal = billing.Round2(outstanding)

	now := s.now()
	st.UpcomingEvents, err = s.ListEvents(ctx, EventFilter{From: now, To: now.AddDate(0, 0, 7)})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

type BillableHoursRow struct {
	UserID        uint    `json:"user_id"`
	FullName      string  `json:"full_name"`
	BillableHours float64 `json:"billable_hours"`
	TotalHours    float64 `json:"total_hours"`
	Amount        float64 `json:"amount"`
}

// BillableHours aggregates time per timekeeper in [from, to).
func (s *Store) BillableHours(ctx context.Context, from, to time.Time) ([]BillableHoursRow, error) {
	var rows []BillableHoursRow
	err := s.db.WithContext(ctx).Model(&models.TimeEntry{}).
		Select(`time_entries.user_id AS user_id, users.full_name AS full_name,
			COALESCE(SUM(CASE WHEN time_entries.billable THEN time_entries.hours ELSE 0 END), 0) AS billable_hours,
			COALESCE(SUM(time_entries.hours), 0) AS total_hours,
			COALESCE(SUM(CASE WHEN time_entries.billable THEN time_entries.amount ELSE 0 END), 0) AS amount`).
		Joins("JOIN users ON users.id = time_entries.user_id").
		Where("time_entries.date >= ? AND time_entries.date < ? AND time_entries.status <> ?", from, to, models.TimeWrittenOff).
		Group("time_entries.user_id, users.full_name").
		Order("billable_hours desc, amount desc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("billable hours report: %w", err)
	}
	for i := range rows {
		rows[i].BillableHours = billing.Round2(rows[i].BillableHours)
		rows[i].TotalHours = billing.Round2(rows[i].TotalHours)
		rows[i].Amount = billing.Round2(rows[i].Amount)
	}
	return rows, nil
}

type AgingReport struct {
	Buckets map[string]float64 `json:"buckets"`
	Total   float64            `json:"total"`
	Count   int                `json:"count"`
}

// ARAging buckets open invoice balances by days past due.
func (s *Store) ARAging(ctx context.Context) (*AgingReport, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.InvoiceStatus{models.InvoiceSent, models.InvoicePartiallyPaid, models.InvoiceOverdue}).
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("load open invoices: %w", err)
	}
	rep := &AgingReport{Buckets: map[string]float64{}}
	for _, b := range billing.AgingBuckets {
		rep.Buckets[b] = 0
	}
	now := s.now()
	for _, inv := range invoices {
		bal := inv.Balance()
		if bal <= 0 {
			continue
		}
		b := billing.AgingBucket(inv.DueDate, now)
		rep.Buckets[b] = billing.Round2(rep.Buckets[b] + bal)
		rep.Total = billing.Round2(rep.Total + bal)
		rep.Count++
	}
	return rep, nil
}

// MarkOverdue flips sent/partially paid invoices past their due date to overdue.
func (s *Store) MarkOverdue(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("status IN ? AND due_date < ?", []models.InvoiceStatus{models.InvoiceSent, models.InvoicePartiallyPaid}, s.now()).
		Update("status", models.InvoiceOverdue)
	if res.Error != nil {
		return 0, fmt.Errorf("mark overdue: %w", res.Error)
	}
	return res.RowsAffected, nil
}
