package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/campusdesk/internal/ratelimit"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*ratelimit.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ratelimit.NewRedisStore(client, "rl", ttl), server
}

func TestRedisStoreCountsStrictlyInsideWindow(t *testing.T) {
	ctx := context.Background()
	store, server := newRedisStore(t, time.Hour)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := store.Record(ctx, ratelimit.ActionLogin, "10.0.0.1", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := store.Record(ctx, ratelimit.ActionLogin, "10.0.0.2", base); err != nil {
		t.Fatalf("record other addr: %v", err)
	}

	cases := []struct {
		name  string
		addr  string
		since time.Time
		want  int
	}{
		{"bound excludes attempt at since", "10.0.0.1", base, 2},
		{"just before first attempt", "10.0.0.1", base.Add(-time.Millisecond), 3},
		{"after last attempt", "10.0.0.1", base.Add(2 * time.Minute), 0},
		{"other address isolated", "10.0.0.2", base.Add(-time.Millisecond), 1},
		{"unknown address", "10.0.0.3", base.Add(-time.Hour), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.CountSince(ctx, ratelimit.ActionLogin, tc.addr, tc.since)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if got != tc.want {
				t.Fatalf("count = %d, want %d", got, tc.want)
			}
		})
	}

	if ttl := server.TTL("rl:login:10.0.0.1"); ttl != time.Hour {
		t.Fatalf("key ttl = %v, want 1h", ttl)
	}
}

func TestRedisStoreClearDropsOnlyOnePair(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Hour)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	since := at.Add(-time.Minute)

	_ = store.Record(ctx, ratelimit.ActionLogin, "10.0.0.1", at)
	_ = store.Record(ctx, ratelimit.ActionRegister, "10.0.0.1", at)

	if err := store.Clear(ctx, ratelimit.ActionLogin, "10.0.0.1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n, _ := store.CountSince(ctx, ratelimit.ActionLogin, "10.0.0.1", since); n != 0 {
		t.Fatalf("login attempts after clear = %d", n)
	}
	if n, _ := store.CountSince(ctx, ratelimit.ActionRegister, "10.0.0.1", since); n != 1 {
		t.Fatalf("registration attempts after clear = %d, want 1", n)
	}
}

func TestRedisStorePurgeBeforeAcrossKeys(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, 0)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	_ = store.Record(ctx, ratelimit.ActionLogin, "10.0.0.1", base.Add(-2*time.Hour))
	_ = store.Record(ctx, ratelimit.ActionLogin, "10.0.0.1", base.Add(-time.Hour))
	_ = store.Record(ctx, ratelimit.ActionRegister, "10.0.0.2", base.Add(-90*time.Minute))
	_ = store.Record(ctx, ratelimit.ActionLogin, "10.0.0.1", base.Add(-time.Minute))

	removed, err := store.PurgeBefore(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	if n, _ := store.CountSince(ctx, ratelimit.ActionLogin, "10.0.0.1", base.Add(-24*time.Hour)); n != 1 {
		t.Fatalf("remaining login attempts = %d, want 1", n)
	}
}

func TestLimiterOverRedisStore(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, 15*time.Minute)
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	limiter := ratelimit.NewLimiter(store).WithClock(clock.Now)
	policy := ratelimit.Policy{Limit: 5, Window: 15 * time.Minute}

	for i := 0; i < policy.Limit; i++ {
		if err := limiter.RecordAttempt(ctx, ratelimit.ActionLogin, "10.0.0.1"); err != nil {
			t.Fatalf("record: %v", err)
		}
		clock.Advance(time.Second)
	}
	limited, err := limiter.IsLimited(ctx, ratelimit.ActionLogin, "10.0.0.1", policy)
	if err != nil || !limited {
		t.Fatalf("expected limited, got %v (err %v)", limited, err)
	}

	clock.Advance(policy.Window)
	limited, err = limiter.IsLimited(ctx, ratelimit.ActionLogin, "10.0.0.1", policy)
	if err != nil || limited {
		t.Fatalf("expected window to expire, got %v (err %v)", limited, err)
	}
}
