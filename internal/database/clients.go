package database

import (
	"context"
	"fmt"
	"strings"

	"lawdesk/internal/models"

	"gorm.io/gorm"
)

type ClientFilter struct {
	Status models.ClientStatus
	Type   models.ClientType
	Query  string
}

func (s *Store) ListClients(ctx context.Context, f ClientFilter) ([]models.Client, error) {
	q := s.db.WithContext(ctx).Order("name asc")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Query != "" {
		p := likePattern(f.Query)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", p, p)
	}
	var clients []models.Client
	if err := q.Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

func (s *Store) GetClient(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	err := s.db.WithContext(ctx).
		Preload("ResponsibleAttorney").
		Preload("Cases", func(db *gorm.DB) *gorm.DB { return db.Order("date_opened desc") }).
		First(&c, id).Error
	if err != nil {
		return nil, lookupErr(err, "client", id)
	}
	return &c, nil
}

func (s *Store) CreateClient(ctx context.Context, c *models.Client) error {
	if err := s.validateClient(ctx, c); err != nil {
		return err
	}
	if c.Status == "" {
		c.Status = models.ClientActive
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// UpdateClient overwrites the editable fields of the stored client.
func (s *Store) UpdateClient(ctx context.Context, c *models.Client) error {
	if c.ID == 0 {
		return invalid("client id is required")
	}
	if err := s.validateClient(ctx, c); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Omit("Cases", "ResponsibleAttorney").Save(c).Error; err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return nil
}

// ArchiveClient is the client "delete": the row stays, the status flips.
func (s *Store) ArchiveClient(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, lookupErr(err, "client", id)
	}
	c.Status = models.ClientArchived
	if err := s.db.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, fmt.Errorf("archive client: %w", err)
	}
	return &c, nil
}

func (s *Store) validateClient(ctx context.Context, c *models.Client) error {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.CompanyName = strings.TrimSpace(c.CompanyName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)

	if !c.Type.Valid() {
		return invalid("client type must be individual or business")
	}
	if c.Status != "" && !c.Status.Valid() {
		return invalid("invalid client status %q", c.Status)
	}
	switch c.Type {
	case models.ClientIndividual:
		if c.FirstName == "" || c.LastName == "" {
			return invalid("first and last name are required for individual clients")
		}
	case models.ClientBusiness:
		if len(c.CompanyName) < 2 {
			return invalid("company name is required for business clients")
		}
	}

	if c.Email != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Client{}).
			Where("LOWER(email) = LOWER(?) AND id <> ?", c.Email, c.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check client email: %w", err)
		}
		if count > 0 {
			return conflict("client with email %s", c.Email)
		}
	}
	if c.Phone != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Client{}).
			Where("phone = ? AND id <> ?", c.Phone, c.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check client phone: %w", err)
		}
		if count > 0 {
			return conflict("client with phone %s", c.Phone)
		}
	}
	if c.ResponsibleAttorneyID != nil {
		if _, err := s.GetUser(ctx, *c.ResponsibleAttorneyID); err != nil {
			return invalid("responsible attorney %d does not exist", *c.ResponsibleAttorneyID)
		}
	}
	return nil
}
