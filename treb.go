package treb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	httpadapter "github.com/trebframework/treb/internal/adapters/http"
	"github.com/trebframework/treb/internal/adapters/memory"
	"github.com/trebframework/treb/internal/adapters/postgres"
	redisadapter "github.com/trebframework/treb/internal/adapters/redis"
	"github.com/trebframework/treb/internal/config"
	"github.com/trebframework/treb/internal/dispatch"
	"github.com/trebframework/treb/internal/logging"
	"github.com/trebframework/treb/internal/record"
	"github.com/trebframework/treb/internal/session"
	"github.com/trebframework/treb/pkg/filter"
	"github.com/trebframework/treb/pkg/ports"
)

// App is the high-level entry point for the Treb framework. It wires the
// configured adapters into the dispatch pipeline and exposes the http.Handler
// a server mounts.
type App struct {
	cfg      *config.Config
	log      *slog.Logger
	cache    ports.Cache
	locker   ports.Locker
	pools    ports.Pools
	sessions *session.Manager
	records  *record.Store
	filter   *filter.Filter
	registry *dispatch.Registry
	metrics  *dispatch.Metrics
	prom     *prometheus.Registry

	dbClose func()
	cfgErr  error
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithConfig injects an already-parsed configuration tree.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.cfg = cfg
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) {
		a.log = log
	}
}

// WithCache injects a custom cache and locker, bypassing the configured
// backend.
func WithCache(cache ports.Cache, locker ports.Locker) Option {
	return func(a *App) {
		a.cache = cache
		a.locker = locker
	}
}

// WithPools injects custom database pools, bypassing the configured ones.
func WithPools(pools ports.Pools) Option {
	return func(a *App) {
		a.pools = pools
	}
}

// WithConfigFile loads the configuration tree from a YAML file. A load
// failure surfaces from New.
func WithConfigFile(path string) Option {
	return func(a *App) {
		cfg, err := config.Load(path)
		if err != nil {
			a.cfg = nil
			a.cfgErr = err
			return
		}
		a.cfg = cfg
	}
}

// New initializes the framework: configuration, logging, cache backend,
// database pools, session manager, and the empty controller registry.
func New(opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfgErr != nil {
		return nil, a.cfgErr
	}
	if a.cfg == nil {
		a.cfg = config.Default()
	}
	if a.log == nil {
		a.log = logging.New(logging.ParseLevel(a.cfg.String("log.level", "info")))
	}

	cacheCfg, err := a.cfg.CacheConfig()
	if err != nil {
		return nil, err
	}
	if a.cache == nil {
		if err := a.openCache(cacheCfg); err != nil {
			return nil, err
		}
	}

	if a.pools == nil {
		if err := a.openPools(); err != nil {
			return nil, err
		}
	}

	sessCfg, err := a.cfg.SessionSettings()
	if err != nil {
		return nil, err
	}
	a.sessions = session.NewManager(a.cache, sessCfg, logging.For(a.log, "session"))
	a.records = record.NewStore(a.pools, a.cache, cacheCfg.TTL, logging.For(a.log, "record"))
	a.filter = filter.New()
	a.registry = dispatch.NewRegistry()
	a.prom = prometheus.NewRegistry()
	a.metrics = dispatch.NewMetrics(a.prom)

	return a, nil
}

func (a *App) openCache(cacheCfg config.CacheSettings) error {
	switch cacheCfg.Backend {
	case "", "memory":
		mem := memory.NewCache()
		a.cache = mem
		a.locker = mem
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     cacheCfg.Address,
			Password: cacheCfg.Password,
			DB:       cacheCfg.DB,
		})
		a.cache = redisadapter.NewFromClient(client, redisadapter.WithPrefix(cacheCfg.Prefix))
		a.locker = redisadapter.NewLocker(client, cacheCfg.Prefix, cacheCfg.LockAttempts, cacheCfg.LockBackoff)
	default:
		return fmt.Errorf("unknown cache backend %q", cacheCfg.Backend)
	}
	return nil
}

func (a *App) openPools() error {
	dbs, err := a.cfg.Databases()
	if err != nil {
		return err
	}
	if len(dbs) == 0 {
		a.pools = noPools{}
		return nil
	}
	pools, err := postgres.Open(context.Background(), dbs, logging.For(a.log, "db"))
	if err != nil {
		return err
	}
	a.pools = pools
	a.dbClose = pools.Close
	return nil
}

// Register adds a controller to the route tree under an optional namespace
// path.
func (a *App) Register(c *dispatch.Controller, namespace ...string) error {
	return a.registry.Register(c, namespace...)
}

// Filter exposes the sanitizer so applications can register lookup tables.
func (a *App) Filter() *filter.Filter {
	return a.filter
}

// Records returns the record store.
func (a *App) Records() *record.Store {
	return a.records
}

// Cache returns the shared cache.
func (a *App) Cache() ports.Cache {
	return a.cache
}

// Locker returns the advisory locker.
func (a *App) Locker() ports.Locker {
	return a.locker
}

// Sessions returns the session manager.
func (a *App) Sessions() *session.Manager {
	return a.sessions
}

// Log returns the application logger.
func (a *App) Log() *slog.Logger {
	return a.log
}

// Config returns the settings tree.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Routes lists every registered action for introspection.
func (a *App) Routes() []dispatch.RouteInfo {
	return a.registry.Routes()
}

// Handler builds the full HTTP surface: the front controller behind the
// standard middleware, plus /healthz and /metrics.
func (a *App) Handler() http.Handler {
	security, err := a.cfg.SecuritySettings()
	if err != nil {
		a.log.Warn("invalid security settings, using defaults", "err", err)
	}
	sessCfg, _ := a.cfg.SessionSettings()
	d := dispatch.New(a.registry, a.filter, a.sessions, security, sessCfg.LoginURL, a.log, a.metrics)
	return httpadapter.NewHandler(d, a.prom, logging.For(a.log, "http"))
}

// Close releases the database pools.
func (a *App) Close() {
	if a.dbClose != nil {
		a.dbClose()
	}
}

// noPools serves apps with no configured databases; any lookup errors.
type noPools struct{}

func (noPools) Pool(string) (*sql.DB, error) {
	return nil, errors.New("no database pools configured")
}
