package models

import "time"

type EventType string
type EventStatus string

const (
	EventHearing  EventType = "hearing"
	EventDeadline EventType = "deadline"
	EventMeeting  EventType = "meeting"
	EventOther    EventType = "other"

	EventScheduled EventStatus = "scheduled"
	EventCancelled EventStatus = "cancelled"
)

func (t EventType) Valid() bool {
	switch t {
	case EventHearing, EventDeadline, EventMeeting, EventOther:
		return true
	}
	return false
}

type CalendarEvent struct {
	Model
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	Type        EventType   `gorm:"type:varchar(20);not null" json:"type"`
	StartsAt    time.Time   `gorm:"index" json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	Location    string      `gorm:"size:255" json:"location,omitempty"`
	Status      EventStatus `gorm:"type:varchar(20);not null" json:"status"`
	CaseID      *uint       `gorm:"index" json:"case_id,omitempty"`
	OwnerID     uint        `gorm:"not null;index" json:"owner_id"`
}

type Message struct {
	Model
	SenderID    uint       `gorm:"not null;index" json:"sender_id"`
	Sender      *User      `json:"sender,omitempty"`
	RecipientID uint       `gorm:"not null;index" json:"recipient_id"`
	CaseID      *uint      `gorm:"index" json:"case_id,omitempty"`
	Subject     string     `gorm:"size:255" json:"subject"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
