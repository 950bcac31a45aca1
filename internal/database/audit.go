package database

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"lawdesk/internal/models"

	"gorm.io/datatypes"
)

type AuditEntry struct {
	UserID       uint
	Action       string
	ResourceType string
	ResourceID   uint
	Old          any
	New          any
	IPAddress    string
	UserAgent    string
}

// WriteAudit appends a row to the audit log. Old/New are stored as JSON.
func (s *Store) WriteAudit(ctx context.Context, e AuditEntry) error {
	record := models.AuditLog{
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IPAddress:    e.IPAddress,
		UserAgent:    truncate(e.UserAgent, 255),
	}
	if e.UserID != 0 {
		uid := e.UserID
		record.UserID = &uid
	}
	var err error
	if record.OldValues, err = toJSON(e.Old); err != nil {
		return fmt.Errorf("encode old values: %w", err)
	}
	if record.NewValues, err = toJSON(e.New); err != nil {
		return fmt.Errorf("encode new values: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

type AuditFilter struct {
	ResourceType string
	ResourceID   uint
	UserID       uint
	Limit        int
}

func (s *Store) ListAudit(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Preload("User").Order("created_at desc, id desc")
	if f.ResourceType != "" {
		q = q.Where("resource_type = ?", f.ResourceType)
	}
	if f.ResourceID != 0 {
		q = q.Where("resource_id = ?", f.ResourceID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 200
	}

	var logs []models.AuditLog
	if err := q.Limit(f.Limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

func toJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
