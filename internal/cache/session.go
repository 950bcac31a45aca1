package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const SessionTTL = 24 * time.Hour

// SessionMirror keeps session:<token> → user id with a TTL so sessions can
// be revoked server-side even though the cookie is still valid.
type SessionMirror struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionMirror(client *redis.Client, ttl time.Duration) *SessionMirror {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &SessionMirror{client: client, ttl: ttl}
}

func (m *SessionMirror) Enabled() bool { return m != nil && m.client != nil }

func sessionKey(token string) string { return "session:" + token }

func (m *SessionMirror) Put(ctx context.Context, token string, userID uint) error {
	if !m.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := m.client.Set(ctx, sessionKey(token), userID, m.ttl).Err(); err != nil {
		return fmt.Errorf("mirror session: %w", err)
	}
	return nil
}

// Lookup resolves token to a user id. Without Redis every token is
// reported as present.
func (m *SessionMirror) Lookup(ctx context.Context, token string) (uint, bool, error) {
	if !m.Enabled() {
		return 0, true, nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	val, err := m.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup session: %w", err)
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("lookup session: bad user id %q", val)
	}
	return uint(id), true, nil
}

func (m *SessionMirror) Delete(ctx context.Context, token string) error {
	if !m.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := m.client.Del(ctx, sessionKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
