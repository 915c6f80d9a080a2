package httpx

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const limiterPruneEvery = 5 * time.Minute

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

type rateDecision struct {
	allowed bool
	used    int
	resetAt time.Time
}

// retryAfter is the whole number of seconds until the window resets, at least one.
func (d rateDecision) retryAfter(now time.Time) int {
	if d.resetAt.IsZero() {
		return 1
	}
	secs := int(math.Ceil(d.resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

type fixedWindow struct {
	used    int
	resetAt time.Time
}

type localLimiter struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	now     func() time.Time
	done    chan struct{}
	stop    sync.Once
}

// NewMemoryRateLimiter keeps windows in process memory. A background janitor
// drops expired windows until Close.
func NewMemoryRateLimiter() RateLimiter {
	l := &localLimiter{
		windows: make(map[string]*fixedWindow),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

func (l *localLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = rateWindowDefault
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &fixedWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	if w.used >= limit {
		return rateDecision{used: w.used, resetAt: w.resetAt}
	}
	w.used++
	return rateDecision{allowed: true, used: w.used, resetAt: w.resetAt}
}

func (l *localLimiter) janitor() {
	ticker := time.NewTicker(limiterPruneEvery)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.prune(l.now())
		}
	}
}

func (l *localLimiter) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

func (l *localLimiter) Close() {
	l.stop.Do(func() { close(l.done) })
}

// withRateLimit rejects requests over limit with 429 and a Retry-After header.
// keyFn may return "" to fall back to the client address.
func (r *Router) withRateLimit(route string, limit int, window time.Duration, keyFn func(*http.Request) string, next http.HandlerFunc) http.HandlerFunc {
	if limit <= 0 || r.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, req *http.Request) {
		key := keyFn(req)
		if key == "" {
			key = rateLimitKeyIP(req)
		}
		decision := r.limiter.Allow(key, limit, window)
		r.applyRateHeaders(w, limit, decision)
		if decision.allowed {
			next(w, req)
			return
		}
		r.recordRateLimitHit(route, rateMetricKey(key))
		w.Header().Set("Retry-After", strconv.Itoa(decision.retryAfter(time.Now())))
		writeError(w, http.StatusTooManyRequests, "too many requests, try again later")
	}
}

// handlerAuthRate authenticates first so the limit applies per user.
func (r *Router) handlerAuthRate(route string, limit int, window time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return r.requireAuth(r.withRateLimit(route, limit, window, rateLimitKeyUser, next))
}

func rateLimitKeyUser(req *http.Request) string {
	info, ok := authInfoFromContext(req.Context())
	if !ok || info.UserID == "" {
		return ""
	}
	return "user:" + info.UserID
}

func rateLimitKeyIP(req *http.Request) string {
	if ip := clientIP(req); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}

// rateMetricKey reduces a limiter key to its kind so metric labels stay bounded.
func rateMetricKey(key string) string {
	kind, _, found := strings.Cut(key, ":")
	switch {
	case key == "":
		return "unknown"
	case found && kind != "":
		return kind
	default:
		return key
	}
}
