package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/FolkodeGroup/mediapp/pkg/api/client"
	"github.com/FolkodeGroup/mediapp/pkg/config"
	"github.com/FolkodeGroup/mediapp/pkg/logger"
	"github.com/FolkodeGroup/mediapp/pkg/session"
)

// ErrReported marks a failure whose message was already printed.
var ErrReported = errors.New("cli: failure already reported")

// Options wires the CLI to its environment.
type Options struct {
	In            io.Reader
	Out           io.Writer
	Err           io.Writer
	Version       string
	RedirectDelay time.Duration
	NoticeTTL     time.Duration
}

type globalFlags struct {
	configPath  string
	apiBaseURL  string
	storage     string
	storagePath string
	verbose     bool
	timeout     time.Duration
}

// app is built once per invocation and shared by every subcommand.
type app struct {
	opts    Options
	cfg     config.CLIConfig
	cfgPath string
	log     *slog.Logger
	api     *client.Client
	storage session.Storage
	store   *session.Store
	gate    session.Gate
	prompt  *prompter
	timeout time.Duration
	closeFn func() error
}

func newApp(opts Options, flags globalFlags) (*app, error) {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	log := logger.NewWithWriter(opts.Err, "mediapp-cli", level)

	path := flags.configPath
	if path == "" {
		if p, err := config.DefaultCLIConfigPath(); err == nil {
			path = p
		}
	}
	cfg, err := config.LoadCLIConfig(path)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(flags.apiBaseURL); v != "" {
		cfg.APIBaseURL = v
	}
	if v := strings.TrimSpace(flags.storage); v != "" {
		cfg.Storage = strings.ToLower(v)
	}
	if v := strings.TrimSpace(flags.storagePath); v != "" {
		cfg.StoragePath = v
	}

	api, err := client.New(cfg.APIBaseURL, client.WithTimeout(flags.timeout))
	if err != nil {
		return nil, err
	}

	a := &app{
		opts:    opts,
		cfg:     cfg,
		cfgPath: path,
		log:     log,
		api:     api,
		prompt:  newPrompter(opts.In, opts.Out),
		timeout: flags.timeout,
		closeFn: func() error { return nil },
	}
	switch cfg.Storage {
	case config.StorageMemory:
		a.storage = session.NewMemoryStorage()
	case config.StorageSQLite:
		db, err := session.OpenSQLiteStorage(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		a.storage = db
		a.closeFn = db.Close
	case config.StorageFile:
		fs, err := session.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		a.storage = fs
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want file, sqlite or memory)", cfg.Storage)
	}

	a.store = session.NewStore(api, a.storage, log)
	a.gate = session.NewGate(a.store)
	a.store.Restore()
	log.Debug("session restored", "storage", cfg.Storage, "authenticated", a.store.IsAuthenticated())
	return a, nil
}

// storageLocation describes where the session is kept.
func (a *app) storageLocation() string {
	if p, ok := a.storage.(interface{ Path() string }); ok {
		return a.cfg.Storage + " (" + p.Path() + ")"
	}
	return a.cfg.Storage
}

func (a *app) close() {
	if err := a.closeFn(); err != nil {
		a.log.Warn("close session storage", "error", err)
	}
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.opts.Out, args...)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.opts.Out, format, args...)
}
