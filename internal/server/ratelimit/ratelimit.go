// Package ratelimit throttles the session and config endpoints per client
// with token buckets. Session routes provision and drive a real browser tab,
// so their budgets are far tighter than reads, which are not throttled.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Tier is the request budget shared by a group of routes. Path is matched
// exactly, or as a prefix when it ends with "/".
type Tier struct {
	Name   string
	Method string
	Path   string
	Limit  int           // sustained requests per Window
	Window time.Duration
	Burst  int           // bucket capacity; defaults to Limit when zero
}

// DefaultTiers returns the budgets for the session API. Session creation is
// the most expensive call in the system, so it carries the smallest burst.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "session-create", Method: "POST", Path: "/sessions", Limit: 30, Window: time.Hour, Burst: 5},
		{Name: "session-op", Method: "POST", Path: "/sessions/", Limit: 120, Window: time.Hour, Burst: 10},
		{Name: "config-write", Method: "PUT", Path: "/config/", Limit: 100, Window: time.Minute, Burst: 10},
	}
}

// Info reports one decision plus the values the server exposes as
// X-RateLimit headers. Limit is zero for unthrottled routes.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Buckets idle longer than this are dropped; sweeps run at most once per
// sweepEvery so Allow stays cheap.
const (
	idleAfter  = time.Hour
	sweepEvery = 5 * time.Minute
)

// Limiter holds one token bucket per client and tier.
type Limiter struct {
	tiers []Tier
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

type bucket struct {
	tokens  float64
	touched time.Time
}

// New builds a limiter over the given tiers, or DefaultTiers when nil.
func New(tiers []Tier) *Limiter {
	if tiers == nil {
		tiers = DefaultTiers()
	}
	return &Limiter{
		tiers:   tiers,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow decides one request. Requests outside every tier are never throttled.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	tier := l.tierFor(method, path)
	if tier == nil {
		return true, Info{Allowed: true}
	}

	capacity := float64(tier.Burst)
	if capacity <= 0 {
		capacity = float64(tier.Limit)
	}
	rate := float64(tier.Limit) / tier.Window.Seconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	key := tier.Name + "|" + clientID
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity}
		l.buckets[key] = b
	} else {
		b.tokens = min(capacity, b.tokens+now.Sub(b.touched).Seconds()*rate)
	}
	b.touched = now

	info := Info{Limit: tier.Limit}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	} else {
		info.RetryAfter = time.Duration((1 - b.tokens) / rate * float64(time.Second))
	}
	info.Remaining = int(b.tokens)
	info.ResetTime = now.Add(time.Duration((capacity - b.tokens) / rate * float64(time.Second)))
	return info.Allowed, info
}

// tierFor classifies a request. Exact paths win over prefixes, so
// POST /sessions never falls into the per-session prefix tier.
func (l *Limiter) tierFor(method, path string) *Tier {
	for i := range l.tiers {
		t := &l.tiers[i]
		if t.Method == method && !strings.HasSuffix(t.Path, "/") && t.Path == path {
			return t
		}
	}
	for i := range l.tiers {
		t := &l.tiers[i]
		if t.Method == method && strings.HasSuffix(t.Path, "/") && strings.HasPrefix(path, t.Path) {
			return t
		}
	}
	return nil
}

// sweep drops idle buckets. Caller holds l.mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.swept) < sweepEvery {
		return
	}
	l.swept = now
	for key, b := range l.buckets {
		if now.Sub(b.touched) > idleAfter {
			delete(l.buckets, key)
		}
	}
}
