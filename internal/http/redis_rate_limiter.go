package httpx

import (
	"context"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisLimiterPrefix = "mediapp:ratelimit:"

type redisLimiter struct {
	client  *redis.Client
	logger  *slog.Logger
	timeout time.Duration
}

// NewRedisRateLimiter shares fixed windows across API replicas. The caller
// owns client; Close leaves it open.
func NewRedisRateLimiter(client *redis.Client, logger *slog.Logger) RateLimiter {
	return &redisLimiter{client: client, logger: logger, timeout: 250 * time.Millisecond}
}

// Allow fails open when Redis cannot be reached.
func (l *redisLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = rateWindowDefault
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	redisKey := redisLimiterPrefix + key
	var incr *redis.IntCmd
	var pttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		l.warn("incr", err)
		return rateDecision{allowed: true}
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		if err := l.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			l.warn("pexpire", err)
		}
		ttl = window
	}
	used := int(incr.Val())
	return rateDecision{allowed: used <= limit, used: used, resetAt: time.Now().Add(ttl)}
}

func (l *redisLimiter) Close() {}

func (l *redisLimiter) warn(op string, err error) {
	if l.logger != nil {
		l.logger.Warn("redis rate limiter unavailable, allowing request", "op", op, "error", err)
	}
}
