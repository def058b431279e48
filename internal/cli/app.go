// Package cli wires configuration into a running reroll host: logger,
// metrics, engine, history store and session manager. The cobra commands in
// cmd/reroll are thin shells around an App.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/reroll"
	"github.com/aretw0/reroll/internal/config"
	"github.com/aretw0/reroll/internal/logging"
	fileAdapter "github.com/aretw0/reroll/pkg/adapters/file"
	"github.com/aretw0/reroll/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/reroll/pkg/adapters/redis"
	"github.com/aretw0/reroll/pkg/adapters/sqlite"
	"github.com/aretw0/reroll/pkg/observability"
	"github.com/aretw0/reroll/pkg/ports"
	"github.com/aretw0/reroll/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// LockPrefix namespaces the per-session Redis locks.
const LockPrefix = "reroll:lock:"

// App is a configured host.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *reroll.Engine
	Manager  *session.Manager
	Registry *prometheus.Registry

	closers []io.Closer
}

// AppOption adjusts NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	logger *slog.Logger
	loader ports.CorpusLoader
}

// WithAppLogger replaces the logger built from log_level.
func WithAppLogger(logger *slog.Logger) AppOption {
	return func(o *appOptions) { o.logger = logger }
}

// WithAppLoader replaces the corpus loader built from corpus and lists_dir.
func WithAppLoader(loader ports.CorpusLoader) AppOption {
	return func(o *appOptions) { o.loader = loader }
}

// NewApp builds every host component from cfg.
// Callers must Close the App to release the history store.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
		}
		logger = logging.New(level)
	}

	app := &App{Config: cfg, Logger: logger}

	hooks := observability.LogHooks(logger)
	if cfg.Metrics {
		app.Registry = prometheus.NewRegistry()
		hooks = observability.Combine(hooks, observability.NewMetrics(app.Registry).Hooks())
	}

	loader := o.loader
	if loader == nil {
		var err error
		loader, err = corpusLoader(cfg)
		if err != nil {
			return nil, err
		}
	}

	engineOpts := []reroll.Option{
		reroll.WithLoader(loader),
		reroll.WithLogger(logger),
		reroll.WithMaxDepth(cfg.MaxDepth),
		reroll.WithLifecycleHooks(hooks),
	}
	if cfg.Seed != 0 {
		engineOpts = append(engineOpts, reroll.WithSeed(cfg.Seed))
	}
	engine, err := reroll.New(cfg.CorpusPath(), engineOpts...)
	if err != nil {
		return nil, err
	}
	app.Engine = engine

	store, locker, err := app.openStore()
	if err != nil {
		return nil, err
	}

	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLimit(cfg.History.Limit),
	}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
	}
	app.Manager = session.NewManager(engine, store, managerOpts...)
	return app, nil
}

// corpusLoader opens the corpus file and the lists directory; when both are
// configured the directory's lists win over the file's.
func corpusLoader(cfg *config.Config) (ports.CorpusLoader, error) {
	var loaders ports.MultiLoader
	for _, path := range []string{cfg.Corpus, cfg.ListsDir} {
		if path == "" {
			continue
		}
		l, err := reroll.OpenLoader(path)
		if err != nil {
			return nil, err
		}
		loaders = append(loaders, l)
	}
	switch len(loaders) {
	case 0:
		return nil, fmt.Errorf("%w: set corpus or lists_dir", config.ErrInvalid)
	case 1:
		return loaders[0], nil
	}
	return loaders, nil
}

// openStore builds the configured history store. The Redis backend also
// provides a distributed lock so several hosts can share sessions.
func (a *App) openStore() (ports.HistoryStore, ports.DistributedLocker, error) {
	cfg := a.Config
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewStore(), nil, nil
	case config.StoreFile, "":
		return fileAdapter.NewStore(cfg.StorePath), nil, nil
	case config.StoreRedis:
		store := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisAdapter.WithTTL(cfg.Redis.TTL))
		a.closers = append(a.closers, store)
		return store, redisAdapter.NewLocker(store.Client(), LockPrefix), nil
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalid, cfg.Store)
}

// Close releases the history store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Session resolves the session flag, falling back to def.
func Session(flag, def string) string {
	if flag != "" {
		return flag
	}
	return def
}
