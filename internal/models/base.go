package models

import (
	"time"

	"gorm.io/gorm"
)

// Model replaces gorm.Model so that the JSON API uses snake_case keys.
type Model struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
