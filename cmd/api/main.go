package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/FolkodeGroup/mediapp/internal/app/migrate"
	httpx "github.com/FolkodeGroup/mediapp/internal/http"
	"github.com/FolkodeGroup/mediapp/internal/repository/postgres"
	"github.com/FolkodeGroup/mediapp/internal/service/auth"
	"github.com/FolkodeGroup/mediapp/internal/service/patient"
	"github.com/FolkodeGroup/mediapp/pkg/config"
	"github.com/FolkodeGroup/mediapp/pkg/logger"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	if cfg.Production() && cfg.JWTSecret == config.DefaultJWTSecret {
		log.Error("JWT_SECRET_KEY must be set in production")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	if cfg.AutoMigrate {
		runner, err := migrate.New(cfg.DatabaseURL, cfg.MigrationsDir, log)
		if err != nil {
			log.Error("failed to configure migrations", "error", err)
			os.Exit(1)
		}
		if err := runner.Up(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	repo := postgres.New(pool)

	attempts := auth.NewMemoryAttemptTracker(cfg.IPMaxFailures, cfg.LockoutWindow, cfg.IPBlockDuration)
	refresh := auth.NewMemoryRefreshStore()
	limiter := httpx.NewMemoryRateLimiter()
	var redisHealth func(context.Context) error
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unavailable, using in-memory stores", "addr", addr, "error", err)
			_ = rdb.Close()
		} else {
			defer rdb.Close()
			attempts = auth.NewRedisAttemptTracker(rdb, cfg.IPMaxFailures, cfg.LockoutWindow, cfg.IPBlockDuration)
			refresh = auth.NewRedisRefreshStore(rdb)
			limiter.Close()
			limiter = httpx.NewRedisRateLimiter(rdb, log)
			redisHealth = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			log.Info("redis connected", "addr", addr)
		}
	}

	authSvc := auth.New(repo, attempts, refresh, log, cfg)
	patientSvc := patient.New(repo, log)

	router := httpx.NewRouter(log, authSvc, patientSvc, limiter, httpx.Options{
		Version:            cfg.Version,
		Production:         cfg.Production(),
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		DBHealth:           pool.Ping,
		RedisHealth:        redisHealth,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(router, "mediapp-api"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "environment", cfg.Environment, "version", cfg.Version)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
