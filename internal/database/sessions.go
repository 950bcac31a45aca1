package database

import (
	"context"
	"fmt"
	"time"

	"lawdesk/internal/models"

	"github.com/google/uuid"
)

// CreateSession records a login and returns the session with its token.
func (s *Store) CreateSession(ctx context.Context, userID uint, ip, userAgent string, ttl time.Duration) (*models.Session, error) {
	sess := models.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		IPAddress: ip,
		UserAgent: truncate(userAgent, 255),
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &sess, nil
}

func (s *Store) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&sess).Error; err != nil {
		return nil, lookupErr(err, "session", "token")
	}
	return &sess, nil
}

func (s *Store) RevokeSession(ctx context.Context, token string) error {
	now := s.now()
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("token = ? AND revoked_at IS NULL", token).
		Update("revoked_at", &now).Error
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Store) ListActiveSessions(ctx context.Context, userID uint) ([]models.Session, error) {
	var out []models.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, s.now()).
		Order("created_at desc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// RevokeUserSessions revokes every live session of userID and returns the
// revoked tokens so the caller can drop them from the mirror.
func (s *Store) RevokeUserSessions(ctx context.Context, userID uint) ([]string, error) {
	var tokens []string
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	now := s.now()
	err = s.db.WithContext(ctx).Model(&models.Session{}).
		Where("token IN ? AND revoked_at IS NULL", tokens).
		Update("revoked_at", &now).Error
	if err != nil {
		return nil, fmt.Errorf("revoke user sessions: %w", err)
	}
	return tokens, nil
}
