package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	l, err := New(Config{Scope: "auth", Limit: limit, Window: window}, store, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, store, clock
}

func TestLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()
	l, _, clock := newTestLimiter(t, 3, time.Minute)
	start := clock.Now()

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow #%d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("request #%d rejected", i)
		}
		if d.Remaining != 3-i {
			t.Fatalf("request #%d remaining = %d, want %d", i, d.Remaining, 3-i)
		}
		if !d.ResetAt.Equal(start.Add(time.Minute)) {
			t.Fatalf("request #%d resetAt = %v", i, d.ResetAt)
		}
	}

	clock.Advance(20 * time.Second)
	d, err := l.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if d.Allowed || d.Remaining != 0 || d.Scope != "auth" || d.Limit != 3 {
		t.Fatalf("4th request decision = %+v", d)
	}
	if d.ResetIn != 40*time.Second {
		t.Fatalf("4th request resetIn = %v, want 40s", d.ResetIn)
	}

	// другой ключ живёт в своём окне
	if d, _ := l.Allow(ctx, "5.6.7.8"); !d.Allowed {
		t.Fatalf("independent key rejected")
	}

	clock.Advance(time.Minute)
	d, err = l.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow after window: %v", err)
	}
	if !d.Allowed || d.Remaining != 2 {
		t.Fatalf("fresh window decision = %+v", d)
	}
	if !d.ResetAt.Equal(clock.Now().Add(time.Minute)) {
		t.Fatalf("fresh window resetAt = %v", d.ResetAt)
	}
}

func TestLimiterScopesDoNotShareBuckets(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	auth, _ := New(Config{Scope: "auth", Limit: 1, Window: time.Minute}, store)
	billing, _ := New(Config{Scope: "billing", Limit: 1, Window: time.Minute}, store)

	if d, _ := auth.Allow(ctx, "ip"); !d.Allowed {
		t.Fatalf("auth rejected")
	}
	if d, _ := billing.Allow(ctx, "ip"); !d.Allowed {
		t.Fatalf("billing rejected after auth request")
	}
	if d, _ := auth.Allow(ctx, "ip"); d.Allowed {
		t.Fatalf("second auth request allowed")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	store := NewMemoryStore()
	tests := []struct {
		name  string
		cfg   Config
		store BucketStore
	}{
		{"zero limit", Config{Limit: 0, Window: time.Second}, store},
		{"zero window", Config{Limit: 1}, store},
		{"nil store", Config{Limit: 1, Window: time.Second}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, tt.store); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

	_, _ = store.Increment(ctx, "a", now, time.Minute)
	_, _ = store.Increment(ctx, "b", now.Add(30*time.Second), time.Minute)

	removed, err := store.Sweep(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 || store.Len() != 1 {
		t.Fatalf("removed = %d, len = %d", removed, store.Len())
	}
}

func TestDefaultKeyFunc(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		trustXFF bool
		headers  map[string]string
		remote   string
		wantKey  string
	}{
		{"api key header", "X-API-Key", false, map[string]string{"X-API-Key": "k1"}, "10.0.0.1:1234", "k1"},
		{"xff trusted", "", true, map[string]string{"X-Forwarded-For": "9.9.9.9, 10.0.0.2"}, "10.0.0.1:1234", "9.9.9.9"},
		{"xff ignored", "", false, map[string]string{"X-Forwarded-For": "9.9.9.9"}, "10.0.0.1:1234", "10.0.0.1"},
		{"remote addr without port", "", false, nil, "10.0.0.1", "10.0.0.1"},
		{"nothing", "", false, nil, "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := DefaultKeyFunc(tt.header, tt.trustXFF)(r); got != tt.wantKey {
				t.Fatalf("key = %q, want %q", got, tt.wantKey)
			}
		})
	}
}
