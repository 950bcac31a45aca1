package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog rows are append-only.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID *uint `gorm:"index" json:"user_id,omitempty"`
	User   *User `json:"user,omitempty"`

	Action       string         `gorm:"size:50;not null" json:"action"`
	ResourceType string         `gorm:"size:50;not null;index" json:"resource_type"`
	ResourceID   uint           `json:"resource_id"`
	OldValues    datatypes.JSON `json:"old_values,omitempty"`
	NewValues    datatypes.JSON `json:"new_values,omitempty"`
	IPAddress    string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent    string         `gorm:"size:255" json:"user_agent,omitempty"`
}

type Session struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Token     string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	IPAddress string     `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent string     `gorm:"size:255" json:"user_agent,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
