package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const runTimeout = time.Minute

// Runner applies the SQL migrations under a directory with goose.
type Runner struct {
	dsn           string
	migrationsDir string
	log           *slog.Logger
}

// New returns a migration runner for the database at dsn.
func New(dsn, migrationsDir string, log *slog.Logger) (Runner, error) {
	if dsn == "" {
		return Runner{}, errors.New("empty database dsn")
	}
	if migrationsDir == "" {
		return Runner{}, errors.New("empty migrations directory")
	}
	if _, err := os.Stat(migrationsDir); err != nil {
		return Runner{}, fmt.Errorf("locate migrations dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return Runner{dsn: dsn, migrationsDir: migrationsDir, log: log}, nil
}

// Up applies pending migrations.
func (r Runner) Up(ctx context.Context) error {
	return r.withProvider(ctx, func(ctx context.Context, p *goose.Provider) error {
		results, err := p.Up(ctx)
		for _, res := range results {
			r.logResult(res)
		}
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		r.log.Info("migrations applied", "count", len(results))
		return nil
	})
}

// Status logs applied and pending migrations.
func (r Runner) Status(ctx context.Context) error {
	return r.withProvider(ctx, func(ctx context.Context, p *goose.Provider) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, st := range statuses {
			fields := []any{"version", st.Source.Version, "path", st.Source.Path, "state", string(st.State)}
			if !st.AppliedAt.IsZero() {
				fields = append(fields, "applied_at", st.AppliedAt.UTC().Format(time.RFC3339))
			}
			r.log.Info("migration", fields...)
		}
		return nil
	})
}

// Down rolls back the latest migration, or down to targetVersion when positive.
func (r Runner) Down(ctx context.Context, targetVersion int64) error {
	return r.withProvider(ctx, func(ctx context.Context, p *goose.Provider) error {
		if targetVersion > 0 {
			results, err := p.DownTo(ctx, targetVersion)
			for _, res := range results {
				r.logResult(res)
			}
			if err != nil {
				return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
			}
			return nil
		}
		res, err := p.Down(ctx)
		if res != nil {
			r.logResult(res)
		}
		if err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
		return nil
	})
}

func (r Runner) withProvider(ctx context.Context, fn func(context.Context, *goose.Provider) error) error {
	db, err := sql.Open("pgx", r.dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	defer db.Close()

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	if err := db.PingContext(runCtx); err != nil {
		return fmt.Errorf("ping sql connection: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(r.migrationsDir))
	if err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return fn(runCtx, provider)
}

func (r Runner) logResult(res *goose.MigrationResult) {
	if res == nil || res.Source == nil {
		return
	}
	fields := []any{
		"version", res.Source.Version,
		"direction", res.Direction,
		"duration_ms", res.Duration.Milliseconds(),
	}
	if res.Error != nil {
		r.log.Error("migration failed", append(fields, "error", res.Error)...)
		return
	}
	r.log.Info("migration applied", fields...)
}
