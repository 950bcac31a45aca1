package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lawdesk/internal/config"
	"lawdesk/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// FixturePassword is the password of every seeded demo account.
const FixturePassword = "demo1234"

// OpenSQLite opens and migrates an SQLite database. ":memory:" is pinned
// to a single connection so every query sees the same database.
func OpenSQLite(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := New(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenFixtures returns an in-memory store seeded with a small demo firm.
// It serves the same queries as the Postgres store.
func OpenFixtures(cfg *config.Config) (*Store, error) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	if err := s.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, err
	}
	if err := s.Seed(ctx); err != nil {
		return nil, fmt.Errorf("seed fixtures: %w", err)
	}
	slog.Info("fixture data source ready")
	return s, nil
}

// Seed inserts demo users, clients, cases, time, invoices and events
// through the regular store operations.
func (s *Store) Seed(ctx context.Context) error {
	now := s.now()
	day := func(offset int) time.Time {
		return time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}

	partner := models.User{Email: "partner@lawdesk.local", FullName: "Alice Morgan", Role: models.RolePartner, HourlyRate: 350, Active: true}
	associate := models.User{Email: "associate@lawdesk.local", FullName: "Ben Ortiz", Role: models.RoleAssociate, HourlyRate: 250, Active: true}
	paralegal := models.User{Email: "paralegal@lawdesk.local", FullName: "Carla Diaz", Role: models.RoleParalegal, HourlyRate: 120, Active: true}
	for _, u := range []*models.User{&partner, &associate, &paralegal} {
		if err := s.CreateUser(ctx, u, FixturePassword); err != nil {
			return err
		}
	}

	smith := models.Client{
		Type: models.ClientIndividual, FirstName: "John", LastName: "Smith",
		Email: "john.smith@example.com", Phone: "555-0100",
		Address: "12 Elm Street, Springfield", ResponsibleAttorneyID: &partner.ID,
	}
	acme := models.Client{
		Type: models.ClientBusiness, CompanyName: "Acme Corp",
		Email: "legal@acme.example", Phone: "555-0199",
		Address: "400 Market Avenue, Springfield", ResponsibleAttorneyID: &associate.ID,
	}
	for _, c := range []*models.Client{&smith, &acme} {
		if err := s.CreateClient(ctx, c); err != nil {
			return err
		}
	}

	estate := models.Case{
		Title: "Smith Estate Planning", PracticeArea: "Estate Planning",
		ClientID: smith.ID, Priority: models.PriorityMedium, DateOpened: day(-60),
	}
	if err := s.CreateCase(ctx, &estate, []uint{partner.ID}); err != nil {
		return err
	}
	contract := models.Case{
		Title: "Acme Supply Contract Dispute", PracticeArea: "Commercial Litigation",
		Court: "Springfield District Court", OpposingParty: "Globex LLC",
		ClientID: acme.ID, Priority: models.PriorityHigh, DateOpened: day(-30),
	}
	if err := s.CreateCase(ctx, &contract, []uint{partner.ID, associate.ID}); err != nil {
		return err
	}

	due := day(5)
	tasks := []models.Task{
		{CaseID: contract.ID, Title: "Draft motion to dismiss", DueDate: &due, AssigneeID: &associate.ID},
		{CaseID: estate.ID, Title: "Collect asset statements", AssigneeID: &paralegal.ID},
	}
	for i := range tasks {
		if err := s.CreateTask(ctx, &tasks[i], []string{"priority"}); err != nil {
			return err
		}
	}

	entries := []models.TimeEntry{
		{UserID: partner.ID, CaseID: estate.ID, Date: day(-20), Hours: 2.5, Description: "Initial consultation", Billable: true},
		{UserID: partner.ID, CaseID: estate.ID, Date: day(-18), Hours: 1.5, Description: "Draft will", Billable: true},
		{UserID: associate.ID, CaseID: contract.ID, Date: day(-10), Hours: 4, Description: "Review supply agreement", Billable: true},
		{UserID: paralegal.ID, CaseID: contract.ID, Date: day(-9), Hours: 3, Description: "Organize exhibits", Billable: true},
		{UserID: associate.ID, CaseID: contract.ID, Date: day(-2), Hours: 1, Description: "Internal strategy meeting", Billable: false},
	}
	for i := range entries {
		if err := s.CreateTimeEntry(ctx, &entries[i]); err != nil {
			return err
		}
	}
	filing := models.Expense{CaseID: contract.ID, UserID: associate.ID, Date: day(-8), Description: "Court filing fee", Category: "filing", Amount: 350, Billable: true}
	if err := s.CreateExpense(ctx, &filing); err != nil {
		return err
	}

	inv, err := s.CreateInvoice(ctx, InvoiceDraft{
		ClientID:     smith.ID,
		CaseID:       &estate.ID,
		TimeEntryIDs: []uint{entries[0].ID, entries[1].ID},
		TaxRate:      0.08,
		IssueDate:    day(-15),
		DueDate:      day(15),
	})
	if err != nil {
		return err
	}
	if _, err := s.SetInvoiceStatus(ctx, inv.ID, models.InvoiceSent); err != nil {
		return err
	}

	if err := s.CreateTag(ctx, &models.Tag{Name: "confidential", Color: "#b91c1c"}); err != nil {
		return err
	}

	events := []models.CalendarEvent{
		{Title: "Scheduling conference", Type: models.EventHearing, StartsAt: day(3), EndsAt: day(3).Add(time.Hour), Location: "Courtroom 4B", CaseID: &contract.ID, OwnerID: partner.ID},
		{Title: "Discovery deadline", Type: models.EventDeadline, StartsAt: day(21), EndsAt: day(21), CaseID: &contract.ID, OwnerID: associate.ID},
		{Title: "Will signing", Type: models.EventMeeting, StartsAt: day(6), EndsAt: day(6).Add(time.Hour), CaseID: &estate.ID, OwnerID: partner.ID},
	}
	for i := range events {
		if err := s.CreateEvent(ctx, &events[i]); err != nil {
			return err
		}
	}

	return s.SendMessage(ctx, &models.Message{
		SenderID: partner.ID, RecipientID: associate.ID, CaseID: &contract.ID,
		Subject: "Motion draft", Body: "Please circulate the motion draft by Friday.",
	})
}
