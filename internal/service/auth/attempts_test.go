package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func TestMemoryAttemptTrackerWindowExpiry(t *testing.T) {
	tracker := NewMemoryAttemptTracker(3, time.Minute, 5*time.Minute).(*memoryAttemptTracker)
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		count, _ := tracker.RecordFailure(ctx, "ip")
		if count != i {
			t.Fatalf("expected count %d, got %d", i, count)
		}
	}
	now = now.Add(2 * time.Minute)
	if count, _ := tracker.RecordFailure(ctx, "ip"); count != 1 {
		t.Fatalf("expected window reset, got count %d", count)
	}
}

func TestMemoryAttemptTrackerBlocksAndReleases(t *testing.T) {
	tracker := NewMemoryAttemptTracker(2, time.Minute, 5*time.Minute).(*memoryAttemptTracker)
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }
	ctx := context.Background()

	tracker.RecordFailure(ctx, "ip")
	tracker.RecordFailure(ctx, "ip")
	if blocked, _ := tracker.Blocked(ctx, "ip"); !blocked {
		t.Fatalf("expected address to be blocked")
	}
	now = now.Add(6 * time.Minute)
	if blocked, _ := tracker.Blocked(ctx, "ip"); blocked {
		t.Fatalf("expected block to expire")
	}
}

func TestRedisAttemptTracker(t *testing.T) {
	mr, client := newMiniredisClient(t)
	tracker := NewRedisAttemptTracker(client, 2, time.Minute, 10*time.Minute)
	ctx := context.Background()

	if count, err := tracker.RecordFailure(ctx, "203.0.113.9"); err != nil || count != 1 {
		t.Fatalf("unexpected first failure: %d %v", count, err)
	}
	if ttl := mr.TTL("mediapp:login_attempts:203.0.113.9"); ttl != time.Minute {
		t.Fatalf("expected attempts ttl of 1m, got %v", ttl)
	}
	if blocked, _ := tracker.Blocked(ctx, "203.0.113.9"); blocked {
		t.Fatalf("unexpected block after one failure")
	}
	if _, err := tracker.RecordFailure(ctx, "203.0.113.9"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if blocked, _ := tracker.Blocked(ctx, "203.0.113.9"); !blocked {
		t.Fatalf("expected block after reaching the limit")
	}
	if mr.Exists("mediapp:login_attempts:203.0.113.9") {
		t.Fatalf("expected attempt counter cleared once blocked")
	}
	mr.FastForward(11 * time.Minute)
	if blocked, _ := tracker.Blocked(ctx, "203.0.113.9"); blocked {
		t.Fatalf("expected block to expire")
	}
}

func TestRedisRefreshStore(t *testing.T) {
	mr, client := newMiniredisClient(t)
	store := NewRedisRefreshStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, "tok", "user-1", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	userID, err := store.Lookup(ctx, "tok")
	if err != nil || userID != "user-1" {
		t.Fatalf("unexpected lookup: %q %v", userID, err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := store.Lookup(ctx, "tok"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after expiry, got %v", err)
	}
}

func TestMemoryRefreshStoreExpiry(t *testing.T) {
	store := NewMemoryRefreshStore().(*memoryRefreshStore)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()
	_ = store.Save(ctx, "tok", "user-1", time.Minute)
	now = now.Add(2 * time.Minute)
	if _, err := store.Lookup(ctx, "tok"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}
