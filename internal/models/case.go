package models

import (
	"time"

	"gorm.io/gorm"
)

type CaseStatus string
type CasePriority string

const (
	CaseOpen    CaseStatus = "open"
	CasePending CaseStatus = "pending"
	CaseOnHold  CaseStatus = "on_hold"
	CaseClosed  CaseStatus = "closed"

	PriorityLow    CasePriority = "low"
	PriorityMedium CasePriority = "medium"
	PriorityHigh   CasePriority = "high"
	PriorityUrgent CasePriority = "urgent"
)

func (s CaseStatus) Valid() bool {
	switch s {
	case CaseOpen, CasePending, CaseOnHold, CaseClosed:
		return true
	}
	return false
}

func (p CasePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Case struct {
	Model
	CaseNumber    string       `gorm:"uniqueIndex;size:32;not null" json:"case_number"`
	Title         string       `gorm:"size:255;not null" json:"title"`
	Description   string       `gorm:"type:text" json:"description,omitempty"`
	PracticeArea  string       `gorm:"size:100" json:"practice_area,omitempty"`
	Court         string       `gorm:"size:255" json:"court,omitempty"`
	OpposingParty string       `gorm:"size:255" json:"opposing_party,omitempty"`
	Status        CaseStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	Priority      CasePriority `gorm:"type:varchar(20);not null" json:"priority"`

	ClientID uint    `gorm:"not null;index" json:"client_id"`
	Client   *Client `json:"client,omitempty"`

	DateOpened time.Time  `json:"date_opened"`
	DateClosed *time.Time `json:"date_closed,omitempty"`

	Attorneys []User `gorm:"many2many:case_attorneys;" json:"attorneys,omitempty"`
	Tasks     []Task `json:"tasks,omitempty"`
}

// SetStatus moves the case to s, keeping DateClosed in step with it.
func (c *Case) SetStatus(s CaseStatus, now time.Time) {
	c.Status = s
	if s == CaseClosed {
		if c.DateClosed == nil {
			t := now
			c.DateClosed = &t
		}
		return
	}
	c.DateClosed = nil
}

// BeforeSave keeps date_closed set iff status is closed.
func (c *Case) BeforeSave(tx *gorm.DB) error {
	if c.Status == "" {
		c.Status = CaseOpen
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}
	c.SetStatus(c.Status, time.Now().UTC())
	return nil
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone, TaskCancelled:
		return true
	}
	return false
}

type Task struct {
	Model
	CaseID      uint       `gorm:"not null;index" json:"case_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      TaskStatus `gorm:"type:varchar(20);not null" json:"status"`
	AssigneeID  *uint      `json:"assignee_id,omitempty"`
	Assignee    *User      `json:"assignee,omitempty"`
	Tags        []Tag      `gorm:"many2many:task_tags;" json:"tags,omitempty"`
}
