package models

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RolePartner   UserRole = "partner"
	RoleAttorney  UserRole = "attorney"
	RoleAssociate UserRole = "associate"
	RoleParalegal UserRole = "paralegal"
	RoleClient    UserRole = "client"
)

// StaffRoles are the roles that work inside the firm.
var StaffRoles = []UserRole{RoleAdmin, RolePartner, RoleAttorney, RoleAssociate, RoleParalegal}

// BillingRoles may issue invoices and move money.
var BillingRoles = []UserRole{RoleAdmin, RolePartner}

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RolePartner, RoleAttorney, RoleAssociate, RoleParalegal, RoleClient:
		return true
	}
	return false
}

// IsLawyer reports whether the role can be assigned to a case as attorney.
func (r UserRole) IsLawyer() bool {
	return r == RolePartner || r == RoleAttorney || r == RoleAssociate
}

type User struct {
	Model
	Email           string   `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName        string   `gorm:"size:255" json:"full_name"`
	PasswordHash    string   `gorm:"not null" json:"-"`
	Role            UserRole `gorm:"type:varchar(20);not null" json:"role"`
	HourlyRate      float64  `json:"hourly_rate"`
	Active          bool     `json:"active"`
	StripeAccountID string   `gorm:"size:64" json:"stripe_account_id,omitempty"`
}
