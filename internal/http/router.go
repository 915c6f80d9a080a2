package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FolkodeGroup/mediapp/internal/service/auth"
	"github.com/FolkodeGroup/mediapp/internal/service/patient"
)

const serviceName = "mediapp-api"

// Router wires HTTP endpoints to services.
type Router struct {
	mux            *http.ServeMux
	handler        http.Handler
	logger         *slog.Logger
	auth           auth.Service
	patients       patient.Service
	limiter        RateLimiter
	validate       *validator.Validate
	registry       prometheus.Registerer
	gatherer       prometheus.Gatherer
	version        string
	production     bool
	allowedOrigins []string
	userRate       int
	loginRate      int
	dbHealth       func(context.Context) error
	redisHealth    func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	loginAttempts      *prometheus.CounterVec
	loginFailures      *prometheus.CounterVec
}

// Options carries the router settings that do not come from services.
type Options struct {
	Version            string
	Production         bool
	AllowedOrigins     []string
	RateLimitPerMinute int
	LoginRatePerMinute int
	DBHealth           func(context.Context) error
	RedisHealth        func(context.Context) error
	// Registry receives the HTTP metrics; nil uses the Prometheus default registry.
	Registry *prometheus.Registry
}

const (
	rateWindowDefault   = time.Minute
	rateLimitRegister   = 5
	rateLimitRefresh    = 30
	rateLimitLoginFloor = 1
	healthCheckTimeout  = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, patientSvc patient.Service, limiter RateLimiter, opts Options) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:            http.NewServeMux(),
		logger:         logger,
		auth:           authSvc,
		patients:       patientSvc,
		limiter:        limiter,
		validate:       newValidator(),
		registry:       prometheus.DefaultRegisterer,
		gatherer:       prometheus.DefaultGatherer,
		version:        opts.Version,
		production:     opts.Production,
		allowedOrigins: opts.AllowedOrigins,
		userRate:       opts.RateLimitPerMinute,
		loginRate:      max(opts.LoginRatePerMinute, rateLimitLoginFloor),
		dbHealth:       opts.DBHealth,
		redisHealth:    opts.RedisHealth,
	}
	if opts.Registry != nil {
		r.registry = opts.Registry
		r.gatherer = opts.Registry
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	r.handler = withRequestID(r.withSecurityHeaders(r.withCORS(r.mux)))
	return r
}

// ServeHTTP delegates to the middleware chain in front of the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	login := r.withRateLimit("login", r.loginRate, rateWindowDefault, rateLimitKeyIP, r.handleLogin)
	patients := r.handlerAuthRate("patients", r.userRate, rateWindowDefault, r.handleListPatients)
	patientByID := r.handlerAuthRate("patient", r.userRate, rateWindowDefault, r.handleGetPatient)
	health := r.audit("healthz", r.handleHealthz)
	metrics := promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})

	r.mux.HandleFunc("/", r.audit("root", r.handleRoot))
	r.mux.HandleFunc("/healthz", health)
	r.mux.HandleFunc("/health", health)
	r.mux.HandleFunc("/metrics", r.audit("metrics", metrics.ServeHTTP))
	r.mux.HandleFunc("/login", r.audit("login", login))
	r.mux.HandleFunc("/api/auth/login", r.audit("login", login))
	r.mux.HandleFunc("/refresh", r.audit("refresh", r.withRateLimit("refresh", rateLimitRefresh, rateWindowDefault, rateLimitKeyIP, r.handleRefresh)))
	r.mux.HandleFunc("/register", r.audit("register", r.withRateLimit("register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/protected", r.audit("protected", r.handlerAuthRate("protected", r.userRate, rateWindowDefault, r.handleProtected)))
	r.mux.HandleFunc("/api/patients", r.audit("patients", patients))
	r.mux.HandleFunc("/api/v1/patients", r.audit("patients", patients))
	r.mux.HandleFunc("/api/patients/{id}", r.audit("patient", patientByID))
	r.mux.HandleFunc("/api/v1/patients/{id}", r.audit("patient", patientByID))
}

func (r *Router) handleRoot(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		r.notFound(w)
		return
	}
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"version": r.version,
		"status":  "running",
	})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	check := func(name string, ping func(context.Context) error) {
		if ping == nil {
			return
		}
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := ping(ctx); err != nil {
			status = "degraded"
			components[name] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
			return
		}
		components[name] = map[string]any{"status": "up"}
	}
	check("database", r.dbHealth)
	check("redis", r.redisHealth)

	payload := map[string]any{
		"status":     status,
		"version":    r.version,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := requestIDFromContext(ctx); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
			if info.Role != "" {
				fields = append(fields, "role", info.Role)
			}
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address. Header values that do not parse as an IP are ignored so they
// cannot mint limiter or attempt-tracker keys.
func clientIP(req *http.Request) string {
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := canonicalIP(first); ip != "" {
			return ip
		}
	}
	if ip := canonicalIP(req.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	remote := strings.TrimSpace(req.RemoteAddr)
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}

func canonicalIP(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	return ip.String()
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.used
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.resetAt.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.resetAt.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
