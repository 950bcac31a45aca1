package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lawdesk/internal/models"
)

type EventFilter struct {
	From, To time.Time
	OwnerID  uint
	CaseID   uint
	// IncludeCancelled lists cancelled events too.
	IncludeCancelled bool
}

func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]models.CalendarEvent, error) {
	q := s.db.WithContext(ctx).Order("starts_at asc")
	if !f.From.IsZero() {
		q = q.Where("ends_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("starts_at < ?", f.To)
	}
	if f.OwnerID != 0 {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.CaseID != 0 {
		q = q.Where("case_id = ?", f.CaseID)
	}
	if !f.IncludeCancelled {
		q = q.Where("status <> ?", models.EventCancelled)
	}
	var out []models.CalendarEvent
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

func (s *Store) GetEvent(ctx context.Context, id uint) (*models.CalendarEvent, error) {
	var e models.CalendarEvent
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, lookupErr(err, "event", id)
	}
	return &e, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *models.CalendarEvent) error {
	if err := validateEvent(e); err != nil {
		return err
	}
	if e.CaseID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Case{}).Where("id = ?", *e.CaseID).Count(&count).Error; err != nil {
			return fmt.Errorf("check case: %w", err)
		}
		if count == 0 {
			return invalid("case %d does not exist", *e.CaseID)
		}
	}
	e.Status = models.EventScheduled
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, e *models.CalendarEvent) error {
	if err := validateEvent(e); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(e).Error; err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// CancelEvent is the event "delete".
func (s *Store) CancelEvent(ctx context.Context, id uint) (*models.CalendarEvent, error) {
	e, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Status = models.EventCancelled
	if err := s.db.WithContext(ctx).Save(e).Error; err != nil {
		return nil, fmt.Errorf("cancel event: %w", err)
	}
	return e, nil
}

func validateEvent(e *models.CalendarEvent) error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return invalid("event title is required")
	}
	if e.Type == "" {
		e.Type = models.EventOther
	}
	if !e.Type.Valid() {
		return invalid("invalid event type %q", e.Type)
	}
	if e.StartsAt.IsZero() {
		return invalid("event start is required")
	}
	if e.EndsAt.IsZero() {
		e.EndsAt = e.StartsAt.Add(time.Hour)
	}
	if e.EndsAt.Before(e.StartsAt) {
		return invalid("event ends before it starts")
	}
	return nil
}

func (s *Store) SendMessage(ctx context.Context, m *models.Message) error {
	m.Body = strings.TrimSpace(m.Body)
	m.Subject = strings.TrimSpace(m.Subject)
	if m.Body == "" {
		return invalid("message body is required")
	}
	if m.RecipientID == m.SenderID {
		return invalid("cannot send a message to yourself")
	}
	if _, err := s.GetUser(ctx, m.RecipientID); err != nil {
		return invalid("recipient %d does not exist", m.RecipientID)
	}
	m.ReadAt = nil
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// ListMessages returns the inbox (or sent box) of userID, newest first.
func (s *Store) ListMessages(ctx context.Context, userID uint, sent bool) ([]models.Message, error) {
	q := s.db.WithContext(ctx).Preload("Sender").Order("created_at desc, id desc")
	if sent {
		q = q.Where("sender_id = ?", userID)
	} else {
		q = q.Where("recipient_id = ?", userID)
	}
	var out []models.Message
	if err := q.Limit(200).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

// MarkMessageRead marks a message addressed to userID as read.
func (s *Store) MarkMessageRead(ctx context.Context, id, userID uint) (*models.Message, error) {
	var m models.Message
	if err := s.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", id, userID).First(&m).Error; err != nil {
		return nil, lookupErr(err, "message", id)
	}
	if m.ReadAt == nil {
		now := s.now()
		m.ReadAt = &now
		if err := s.db.WithContext(ctx).Save(&m).Error; err != nil {
			return nil, fmt.Errorf("mark message read: %w", err)
		}
	}
	return &m, nil
}
