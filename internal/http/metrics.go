package httpx

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
)

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediapp",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		r.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediapp",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})

		r.rateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediapp",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route", "key"})

		r.loginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediapp",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"})

		r.loginFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediapp",
			Subsystem: "auth",
			Name:      "login_failures_total",
			Help:      "Failed logins by reason",
		}, []string{"reason"})

		counters := map[string]**prometheus.CounterVec{
			"requests":    &r.requestTotal,
			"rate_limit":  &r.rateLimitHits,
			"login":       &r.loginAttempts,
			"login_fails": &r.loginFailures,
		}
		for _, target := range counters {
			if err := r.registry.Register(*target); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
						*target = existing
					}
				}
			}
		}
		if err := r.registry.Register(r.requestLatency); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
					r.requestLatency = existing
				}
			}
		}
		r.metricsInitialized = true
	})
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}

// recordLogin counts one login attempt. reason is empty on success.
func (r *Router) recordLogin(reason string) {
	if !r.metricsInitialized {
		return
	}
	if reason == "" {
		r.loginAttempts.With(prometheus.Labels{"outcome": "success"}).Inc()
		return
	}
	r.loginAttempts.With(prometheus.Labels{"outcome": "failure"}).Inc()
	r.loginFailures.With(prometheus.Labels{"reason": reason}).Inc()
}
