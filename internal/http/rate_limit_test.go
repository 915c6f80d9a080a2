package httpx

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func TestMemoryRateLimiterWindow(t *testing.T) {
	rl := NewMemoryRateLimiter().(*localLimiter)
	defer rl.Close()
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 1; i <= 2; i++ {
		if d := rl.Allow("ip:1", 2, time.Minute); !d.allowed || d.used != i {
			t.Fatalf("request %d: unexpected decision %+v", i, d)
		}
	}
	d := rl.Allow("ip:1", 2, time.Minute)
	if d.allowed {
		t.Fatalf("expected third request to be limited")
	}
	if got := d.retryAfter(now.Add(20 * time.Second)); got != 40 {
		t.Fatalf("expected retry after 40s, got %d", got)
	}
	if d := rl.Allow("ip:2", 2, time.Minute); !d.allowed {
		t.Fatalf("keys must be limited independently")
	}
	now = now.Add(time.Minute)
	if d := rl.Allow("ip:1", 2, time.Minute); !d.allowed || d.used != 1 {
		t.Fatalf("expected fresh window, got %+v", d)
	}

	rl.prune(now.Add(time.Hour))
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.windows) != 0 {
		t.Fatalf("expected prune to drop expired windows, got %d", len(rl.windows))
	}
}

func TestRetryAfterFloor(t *testing.T) {
	now := time.Now()
	if got := (rateDecision{}).retryAfter(now); got != 1 {
		t.Fatalf("zero reset: got %d", got)
	}
	if got := (rateDecision{resetAt: now.Add(-time.Second)}).retryAfter(now); got != 1 {
		t.Fatalf("past reset: got %d", got)
	}
	if got := (rateDecision{resetAt: now.Add(1500 * time.Millisecond)}).retryAfter(now); got != 2 {
		t.Fatalf("fractional reset should round up: got %d", got)
	}
}

func TestRedisRateLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rl := NewRedisRateLimiter(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer rl.Close()

	for i := 1; i <= 3; i++ {
		if d := rl.Allow("user:u1", 3, time.Minute); !d.allowed || d.used != i {
			t.Fatalf("request %d: unexpected decision %+v", i, d)
		}
	}
	d := rl.Allow("user:u1", 3, time.Minute)
	if d.allowed || d.used != 4 {
		t.Fatalf("expected fourth request to be limited, got %+v", d)
	}
	if ttl := mr.TTL(redisLimiterPrefix + "user:u1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if d := rl.Allow("user:u1", 3, time.Minute); !d.allowed || d.used != 1 {
		t.Fatalf("expected new window after expiry, got %+v", d)
	}
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	rl := NewRedisRateLimiter(client, nil)
	if d := rl.Allow("ip:1", 1, time.Minute); !d.allowed {
		t.Fatalf("expected limiter to fail open when redis is down")
	}
}

func TestRateMetricKey(t *testing.T) {
	cases := map[string]string{"ip:10.0.0.1": "ip", "user:abc": "user", "": "unknown", "plain": "plain"}
	for in, want := range cases {
		if got := rateMetricKey(in); got != want {
			t.Fatalf("rateMetricKey(%q) = %q, want %q", in, got, want)
		}
	}
}
