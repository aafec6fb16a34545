// Package ratelimit throttles security sensitive actions per source address using a
// trailing time window over recorded attempts.
package ratelimit

import (
	"context"
	"time"
)

// Actions throttled by the service.
const (
	ActionLogin    = "login"
	ActionRegister = "registration"
)

// Policy is a maximum number of attempts inside a trailing window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Store persists attempt timestamps. Implementations: Postgres
// (repository.RateLimitRepository), Redis (RedisStore) and the in-memory store.
type Store interface {
	CountSince(ctx context.Context, action, addr string, since time.Time) (int, error)
	Record(ctx context.Context, action, addr string, at time.Time) error
	Clear(ctx context.Context, action, addr string) error
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

// Limiter answers whether an (action, address) pair has exhausted its policy.
type Limiter struct {
	store Store
	now   func() time.Time
}

// NewLimiter builds a limiter over store.
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// WithClock replaces the time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// IsLimited reports true once the attempts recorded inside the window reach the limit.
// A non-positive limit disables throttling.
func (l *Limiter) IsLimited(ctx context.Context, action, addr string, policy Policy) (bool, error) {
	if policy.Limit <= 0 {
		return false, nil
	}
	count, err := l.store.CountSince(ctx, action, addr, l.now().Add(-policy.Window))
	if err != nil {
		return false, err
	}
	return count >= policy.Limit, nil
}

// RecordAttempt logs one attempt at the current time.
func (l *Limiter) RecordAttempt(ctx context.Context, action, addr string) error {
	return l.store.Record(ctx, action, addr, l.now())
}

// Clear forgets every attempt for the pair, used after a successful login.
func (l *Limiter) Clear(ctx context.Context, action, addr string) error {
	return l.store.Clear(ctx, action, addr)
}

// Purge drops attempts older than maxWindow. It only bounds storage; counting
// ignores stale rows regardless.
func (l *Limiter) Purge(ctx context.Context, maxWindow time.Duration) (int64, error) {
	return l.store.PurgeBefore(ctx, l.now().Add(-maxWindow))
}
