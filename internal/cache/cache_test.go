package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheRoundTripAndTTL(t *testing.T) {
	mr, client := newRedis(t)
	c := New(client, "test", 0)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "dashboard", map[string]int{"open_cases": 3}))
	assert.Equal(t, DefaultTTL, mr.TTL("test:dashboard"))

	var got map[string]int
	ok, err := c.GetJSON(ctx, "dashboard", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got["open_cases"])

	require.NoError(t, c.Delete(ctx, "dashboard"))
	ok, err = c.GetJSON(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c := New(nil, "test", time.Minute)
	ctx := context.Background()
	assert.False(t, c.Enabled())
	require.NoError(t, c.SetJSON(ctx, "k", 1))
	var v int
	ok, err := c.GetJSON(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConnectWithEmptyURL(t *testing.T) {
	client, err := Connect(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestSessionMirror(t *testing.T) {
	mr, client := newRedis(t)
	m := NewSessionMirror(client, 0)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "tok", 42))
	assert.Equal(t, SessionTTL, mr.TTL("session:tok"))

	id, ok, err := m.Lookup(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	require.NoError(t, m.Delete(ctx, "tok"))
	_, ok, err = m.Lookup(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionMirrorDisabledAcceptsTokens(t *testing.T) {
	m := NewSessionMirror(nil, 0)
	_, ok, err := m.Lookup(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter(t *testing.T) {
	mr, client := newRedis(t)
	l := NewRateLimiter(client, "test:login", 2, time.Minute)
	l.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "10.0.0.1"))
	assert.True(t, l.Allow(ctx, "10.0.0.1"))
	assert.False(t, l.Allow(ctx, "10.0.0.1"))
	assert.True(t, l.Allow(ctx, "10.0.0.2"))

	mr.Close()
	assert.False(t, l.Allow(ctx, "10.0.0.3"), "redis errors fail closed")
}

func TestRateLimiterWithoutRedisAllows(t *testing.T) {
	l := NewRateLimiter(nil, "", 1, time.Minute)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(context.Background(), "ip"))
	}
}
