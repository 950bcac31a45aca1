package models

import (
	"strings"

	"gorm.io/gorm"
)

type ClientType string
type ClientStatus string

const (
	ClientIndividual ClientType = "individual"
	ClientBusiness   ClientType = "business"

	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
	ClientArchived ClientStatus = "archived"
)

func (t ClientType) Valid() bool { return t == ClientIndividual || t == ClientBusiness }

func (s ClientStatus) Valid() bool {
	return s == ClientActive || s == ClientInactive || s == ClientArchived
}

type Client struct {
	Model
	Type        ClientType   `gorm:"type:varchar(20);not null" json:"type"`
	Name        string       `gorm:"size:255;not null;index" json:"name"` // derived, see DisplayName
	FirstName   string       `gorm:"size:100" json:"first_name,omitempty"`
	LastName    string       `gorm:"size:100" json:"last_name,omitempty"`
	CompanyName string       `gorm:"size:255" json:"company_name,omitempty"`
	Email       string       `gorm:"size:255" json:"email,omitempty"`
	Phone       string       `gorm:"size:50" json:"phone,omitempty"`
	Address     string       `gorm:"type:text" json:"address,omitempty"`
	Status      ClientStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Notes       string       `gorm:"type:text" json:"notes,omitempty"`

	ResponsibleAttorneyID *uint `json:"responsible_attorney_id,omitempty"`
	ResponsibleAttorney   *User `json:"responsible_attorney,omitempty"`

	Cases []Case `json:"cases,omitempty"`
}

// DisplayName is "First Last" for individuals and the company name for businesses.
func (c Client) DisplayName() string {
	if c.Type == ClientBusiness {
		return strings.TrimSpace(c.CompanyName)
	}
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

func (c *Client) BeforeSave(tx *gorm.DB) error {
	c.Name = c.DisplayName()
	if c.Status == "" {
		c.Status = ClientActive
	}
	return nil
}
