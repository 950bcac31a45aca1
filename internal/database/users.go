package database

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"lawdesk/internal/apperr"
	"lawdesk/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// CreateUser validates u, hashes password and inserts the row.
func (s *Store) CreateUser(ctx context.Context, u *models.User, password string) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.FullName = strings.TrimSpace(u.FullName)
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return invalid("invalid email %q", u.Email)
	}
	if len(password) < 6 {
		return invalid("password must be at least 6 characters")
	}
	if !u.Role.Valid() {
		return invalid("invalid role %q", u.Role)
	}
	if u.HourlyRate < 0 {
		return invalid("hourly rate must not be negative")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ?", u.Email).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return conflict("user with email %s", u.Email)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Authenticate returns the active user matching the credentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	if !u.Active {
		return nil, fmt.Errorf("account disabled: %w", apperr.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, lookupErr(err, "user", id)
	}
	return &u, nil
}

// ListUsers returns users ordered by name; roles narrows the result when given.
func (s *Store) ListUsers(ctx context.Context, roles ...models.UserRole) ([]models.User, error) {
	q := s.db.WithContext(ctx).Order("full_name asc, email asc")
	if len(roles) > 0 {
		q = q.Where("role IN ?", roles)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Store) UpdateUserRole(ctx context.Context, id uint, role models.UserRole) (*models.User, error) {
	if !role.Valid() {
		return nil, invalid("invalid role %q", role)
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}
	return u, nil
}

func (s *Store) SetUserActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Active = active
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *Store) SetStripeAccount(ctx context.Context, id uint, accountID string) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("stripe_account_id", accountID).Error
	if err != nil {
		return fmt.Errorf("set stripe account: %w", err)
	}
	return nil
}
