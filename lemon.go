package lemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/lemon/internal/config"
	"github.com/aretw0/lemon/internal/logging"
	"github.com/aretw0/lemon/internal/presentation/web"
	"github.com/aretw0/lemon/pkg/adapters/file"
	httpAdapter "github.com/aretw0/lemon/pkg/adapters/http"
	"github.com/aretw0/lemon/pkg/adapters/memory"
	"github.com/aretw0/lemon/pkg/adapters/redis"
	"github.com/aretw0/lemon/pkg/adapters/sqlite"
	"github.com/aretw0/lemon/pkg/gate"
	"github.com/aretw0/lemon/pkg/observability"
	"github.com/aretw0/lemon/pkg/persistence/middleware"
	"github.com/aretw0/lemon/pkg/ports"
	"github.com/aretw0/lemon/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is the release version, overridden at build time with -ldflags.
var Version = "0.1.0-dev"

// App is a fully wired lemon service.
type App struct {
	Config   config.Config
	Manager  *session.Manager
	Gate     *gate.Gate
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Handler  http.Handler

	storage ports.Storage
	purger  idlePurger
	closers []func() error
	logger  *slog.Logger
}

// idlePurger is implemented by backends that do not expire sessions on their own.
type idlePurger interface {
	PurgeIdle(ctx context.Context, maxIdle time.Duration) (int64, error)
}

// Option configures the App.
type Option func(*App)

// WithLogger sets a custom structured logger for the App.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithStorage bypasses the configured backend.
func WithStorage(store ports.Storage) Option {
	return func(a *App) {
		a.storage = store
	}
}

// New wires storage, session manager, gate, metrics and the HTTP handler
// from cfg.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}

	order, err := cfg.Order()
	if err != nil {
		return nil, err
	}

	var locker ports.DistributedLocker
	if a.storage == nil {
		if a.storage, locker, err = a.openStorage(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	store, err := a.wrapStorage(a.storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = observability.NewMetrics(a.Registry)
	hooks := a.Metrics.Hooks(a.logger)

	managerOpts := []session.Option{
		session.WithLogger(a.logger),
		session.WithHooks(hooks),
		session.WithLockTTL(cfg.Storage.LockTTL),
	}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
	}
	a.Manager = session.NewManager(store, managerOpts...)

	a.Gate = gate.New(order,
		gate.WithHub(cfg.Gate.Hub),
		gate.WithDelay(cfg.Gate.Delay),
		gate.WithMessage(cfg.Gate.Message),
		gate.WithHooks(hooks),
	)

	renderer, err := web.NewRenderer(web.Site{Title: cfg.Title, Hub: cfg.Gate.Hub, MusicSrc: cfg.MusicSrc})
	if err != nil {
		a.Close()
		return nil, err
	}
	pages := make(map[string]httpAdapter.Page, len(cfg.Pages))
	for _, p := range cfg.Pages {
		body, err := renderer.Markdown(p.Body)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("page %q: %w", p.Key, err)
		}
		pages[p.Key] = httpAdapter.Page{Title: p.Title, Body: body, Gallery: p.Gallery}
	}

	a.Handler = httpAdapter.NewHandler(&httpAdapter.Server{
		Manager:    a.Manager,
		Gate:       a.Gate,
		Renderer:   renderer,
		Pages:      pages,
		Invite:     cfg.Invite,
		Metrics:    promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		AssetsDir:  cfg.AssetsDir,
		CORSOrigin: cfg.CORSOrigin,

		CookieSecret: []byte(cfg.CookieSecret),
		SecureCookie: cfg.SecureCookie,
		Logger:       a.logger,
	})
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (ports.Storage, ports.DistributedLocker, error) {
	sc := a.Config.Storage
	switch sc.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil, nil

	case config.BackendRedis:
		store := redis.New(sc.Redis.Addr, sc.Redis.Password, sc.Redis.DB,
			redis.WithPrefix(sc.Redis.Prefix),
			redis.WithTTL(sc.Redis.TTL),
		)
		a.track(store)
		if err := store.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", sc.Redis.Addr, err)
		}
		var locker ports.DistributedLocker
		if sc.Redis.Lock {
			locker = redis.NewLocker(store.Client(), sc.Redis.Prefix)
		}
		a.logger.Info("Using redis storage", "addr", sc.Redis.Addr, "ttl", sc.Redis.TTL, "lock", sc.Redis.Lock)
		return store, locker, nil

	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, sc.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.track(store)
		a.purger = store
		a.logger.Info("Using sqlite storage", "path", sc.SQLitePath)
		return store, nil, nil

	case config.BackendFile:
		a.logger.Info("Using file storage", "dir", sc.FileDir)
		return file.NewStore(sc.FileDir, file.WithLogger(a.logger)), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
}

// track schedules store for Close when it holds external resources.
func (a *App) track(store ports.Storage) {
	if c, ok := store.(ports.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
}

func (a *App) wrapStorage(store ports.Storage) (ports.Storage, error) {
	var mws []middleware.Middleware
	if a.Config.MaxValueBytes > 0 {
		mws = append(mws, middleware.NewLimitMiddleware(a.Config.MaxValueBytes))
	}
	if a.Config.EncryptionKey != "" {
		key, err := middleware.ParseKey(a.Config.EncryptionKey)
		if err != nil {
			return nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}

// RunJanitor purges idle sessions from backends without native expiry until
// ctx is done. It returns immediately for other backends.
func (a *App) RunJanitor(ctx context.Context) {
	maxIdle := a.Config.Storage.IdleTTL
	if a.purger == nil || maxIdle <= 0 {
		return
	}
	interval := max(maxIdle/4, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.purger.PurgeIdle(ctx, maxIdle)
			if err != nil {
				a.logger.Warn("Idle session purge failed", "err", err)
				continue
			}
			if n > 0 {
				a.logger.Info("Purged idle sessions", "items", n)
			}
		}
	}
}

// Close releases storage resources.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
