package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedLimiter returns a limiter on a controllable clock so refill behavior
// is deterministic.
func fixedLimiter(tiers []Tier) (*Limiter, *time.Time) {
	l := New(tiers)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestSessionCreateBurst(t *testing.T) {
	l, _ := fixedLimiter(nil)

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("10.0.0.1", "/sessions", "POST")
		require.True(t, allowed, "request %d should pass", i)
		assert.Equal(t, 30, info.Limit)
	}

	allowed, info := l.Allow("10.0.0.1", "/sessions", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
}

func TestRefillRestoresTokens(t *testing.T) {
	l, now := fixedLimiter(nil)

	for i := 0; i < 5; i++ {
		l.Allow("10.0.0.1", "/sessions", "POST")
	}
	allowed, _ := l.Allow("10.0.0.1", "/sessions", "POST")
	require.False(t, allowed)

	// 30 per hour refills one token every two minutes.
	*now = now.Add(2*time.Minute + time.Second)
	allowed, _ = l.Allow("10.0.0.1", "/sessions", "POST")
	assert.True(t, allowed)

	allowed, _ = l.Allow("10.0.0.1", "/sessions", "POST")
	assert.False(t, allowed)
}

func TestClientsIndependent(t *testing.T) {
	l, _ := fixedLimiter(nil)

	for i := 0; i < 5; i++ {
		l.Allow("10.0.0.1", "/sessions", "POST")
	}
	allowed, _ := l.Allow("10.0.0.1", "/sessions", "POST")
	require.False(t, allowed)

	allowed, _ = l.Allow("10.0.0.2", "/sessions", "POST")
	assert.True(t, allowed)
}

func TestSessionOperationsShareOneTier(t *testing.T) {
	l, _ := fixedLimiter(nil)

	// Analyze and confirm on different sessions drain the same bucket.
	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/sessions/abc/analyze", "POST")
		require.True(t, allowed)
		allowed, _ = l.Allow("10.0.0.1", "/sessions/def/confirm", "POST")
		require.True(t, allowed)
	}

	allowed, info := l.Allow("10.0.0.1", "/sessions/abc/autofill", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 120, info.Limit)
}

func TestReadsAndHealthUnthrottled(t *testing.T) {
	l, _ := fixedLimiter(nil)

	for i := 0; i < 100; i++ {
		allowed, info := l.Allow("10.0.0.1", "/health", "GET")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)

		allowed, _ = l.Allow("10.0.0.1", "/sessions/abc", "GET")
		require.True(t, allowed)
	}
}

func TestConfigWriteTier(t *testing.T) {
	l, _ := fixedLimiter(nil)

	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/config/confirmation-phrases", "PUT")
		require.True(t, allowed)
	}
	allowed, info := l.Allow("10.0.0.1", "/config/confirmation-phrases", "PUT")
	assert.False(t, allowed)
	assert.Equal(t, 100, info.Limit)
}

func TestBurstDefaultsToLimit(t *testing.T) {
	tiers := []Tier{{Name: "tiny", Method: "POST", Path: "/x", Limit: 3, Window: time.Hour}}
	l, _ := fixedLimiter(tiers)

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("c", "/x", "POST")
		require.True(t, allowed)
	}
	allowed, _ := l.Allow("c", "/x", "POST")
	assert.False(t, allowed)
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	l, now := fixedLimiter(nil)

	l.Allow("10.0.0.1", "/sessions", "POST")
	l.mu.Lock()
	require.Contains(t, l.buckets, "session-create|10.0.0.1")
	l.mu.Unlock()

	// A request from another client past the idle cutoff triggers the sweep
	// that forgets the first client entirely.
	*now = now.Add(idleAfter + time.Minute)
	l.Allow("10.0.0.2", "/sessions", "POST")

	l.mu.Lock()
	assert.NotContains(t, l.buckets, "session-create|10.0.0.1")
	assert.Contains(t, l.buckets, "session-create|10.0.0.2")
	l.mu.Unlock()
}
