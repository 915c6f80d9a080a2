package auth

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// AttemptTracker counts failed logins per client address and blocks an
// address once it reaches Limit failures inside the window.
type AttemptTracker interface {
	Blocked(ctx context.Context, ip string) (bool, error)
	RecordFailure(ctx context.Context, ip string) (int, error)
	Reset(ctx context.Context, ip string) error
	Limit() int
}

type attemptState struct {
	failures     int
	windowEnd    time.Time
	blockedUntil time.Time
}

type memoryAttemptTracker struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	block   time.Duration
	now     func() time.Time
	entries map[string]attemptState
}

// NewMemoryAttemptTracker keeps counters in process memory.
func NewMemoryAttemptTracker(limit int, window, block time.Duration) AttemptTracker {
	return &memoryAttemptTracker{
		limit:   normalizeLimit(limit),
		window:  normalizeDuration(window),
		block:   normalizeDuration(block),
		now:     time.Now,
		entries: make(map[string]attemptState),
	}
}

func (t *memoryAttemptTracker) Blocked(_ context.Context, ip string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.entries[ip]
	if !ok {
		return false, nil
	}
	now := t.now()
	if !state.blockedUntil.IsZero() && now.Before(state.blockedUntil) {
		return true, nil
	}
	if now.After(state.windowEnd) && now.After(state.blockedUntil) {
		delete(t.entries, ip)
	}
	return false, nil
}

func (t *memoryAttemptTracker) RecordFailure(_ context.Context, ip string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	state := t.entries[ip]
	if state.windowEnd.IsZero() || now.After(state.windowEnd) {
		state = attemptState{windowEnd: now.Add(t.window)}
	}
	state.failures++
	count := state.failures
	if state.failures >= t.limit {
		state = attemptState{blockedUntil: now.Add(t.block), windowEnd: now.Add(t.block)}
	}
	t.entries[ip] = state
	return count, nil
}

func (t *memoryAttemptTracker) Reset(_ context.Context, ip string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, ip)
	return nil
}

func (t *memoryAttemptTracker) Limit() int { return t.limit }

type redisAttemptTracker struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	block  time.Duration
}

// NewRedisAttemptTracker stores counters under mediapp:login_attempts:<ip> and
// blocks under mediapp:blocked_ip:<ip>.
func NewRedisAttemptTracker(client *redis.Client, limit int, window, block time.Duration) AttemptTracker {
	return &redisAttemptTracker{
		client: client,
		prefix: "mediapp:",
		limit:  normalizeLimit(limit),
		window: normalizeDuration(window),
		block:  normalizeDuration(block),
	}
}

func (t *redisAttemptTracker) attemptsKey(ip string) string { return t.prefix + "login_attempts:" + ip }
func (t *redisAttemptTracker) blockedKey(ip string) string  { return t.prefix + "blocked_ip:" + ip }

func (t *redisAttemptTracker) Blocked(ctx context.Context, ip string) (bool, error) {
	n, err := t.client.Exists(ctx, t.blockedKey(ip)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *redisAttemptTracker) RecordFailure(ctx context.Context, ip string) (int, error) {
	key := t.attemptsKey(ip)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return int(count), err
		}
	}
	if int(count) >= t.limit {
		pipe := t.client.TxPipeline()
		pipe.Set(ctx, t.blockedKey(ip), "blocked", t.block)
		pipe.Del(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			return int(count), err
		}
	}
	return int(count), nil
}

func (t *redisAttemptTracker) Reset(ctx context.Context, ip string) error {
	return t.client.Del(ctx, t.attemptsKey(ip)).Err()
}

func (t *redisAttemptTracker) Limit() int { return t.limit }

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 5
	}
	return limit
}

func normalizeDuration(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Minute
	}
	return d
}
