// Package bootstrap opens the stores, notifier and dispatcher a process
// needs from its configuration. The server and the CLI share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbook/backend/internal/application/dispatch"
	"github.com/pocketbook/backend/internal/application/workspace"
	"github.com/pocketbook/backend/internal/domain/shared"
	"github.com/pocketbook/backend/internal/domain/shared/valueobject"
	"github.com/pocketbook/backend/internal/domain/store"
	"github.com/pocketbook/backend/internal/infrastructure/auth"
	"github.com/pocketbook/backend/internal/infrastructure/blobstore"
	"github.com/pocketbook/backend/internal/infrastructure/config"
	"github.com/pocketbook/backend/internal/infrastructure/docstore"
	"github.com/pocketbook/backend/internal/infrastructure/event"
	"github.com/pocketbook/backend/internal/infrastructure/logger"
	"github.com/pocketbook/backend/internal/infrastructure/migration"
	"github.com/pocketbook/backend/internal/infrastructure/persistence"
	"github.com/pocketbook/backend/internal/infrastructure/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend is everything built from one configuration
type Backend struct {
	Config      *config.Config
	DB          *persistence.Database // nil for the in-memory store
	Store       store.DocumentStore
	Blobs       store.BlobStore
	Dispatcher  *dispatch.Dispatcher
	Stamper     *shared.Stamper
	Currency    valueobject.Currency
	Revocations auth.Revocations
	Logger      *zap.Logger

	closers []func() error
}

// Open connects to the configured database, applies the schema and wires the
// change notifier. An in-memory sqlite path selects the process-local stores.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Backend{
		Config:     cfg,
		Dispatcher: dispatch.New(log.Named("dispatch")),
		Stamper: &shared.Stamper{
			Clock:      time.Now,
			DateLayout: cfg.Display.DateLayout,
			TimeLayout: cfg.Display.TimeLayout,
		},
		Currency: valueobject.Currency(cfg.Display.Currency),
		Logger:   log,
	}
	b.closers = append(b.closers, func() error { b.Dispatcher.Close(); return nil })

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr(), err)
		}
		b.closers = append(b.closers, rdb.Close)
		b.Revocations = auth.NewRedisRevocations(rdb)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		b.Revocations = auth.NewMemoryRevocations()
	}

	if cfg.Database.Driver == config.DriverSQLite && cfg.Database.Path == ":memory:" {
		b.Store = docstore.NewMemoryStore(docstore.WithMemoryLogger(log.Named("docstore")))
		b.Blobs = blobstore.NewMemoryStore()
		log.Warn("Using in-memory stores; nothing survives a restart")
		return b, nil
	}

	if err := b.openDatabase(log); err != nil {
		b.Close()
		return nil, err
	}

	var notifier docstore.Notifier
	if rdb != nil {
		rn := docstore.NewRedisNotifierWithClient(rdb,
			docstore.WithNotifyChannel(cfg.Redis.Channel),
			docstore.WithNotifierLogger(log.Named("notifier")))
		if err := rn.Start(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("start change notifier: %w", err)
		}
		b.closers = append(b.closers, rn.Close)
		notifier = rn
	} else {
		bus := event.NewInMemoryEventBus(log.Named("events"))
		if err := bus.Start(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() error { return bus.Stop(context.Background()) })
		notifier = docstore.NewEventBusNotifier(bus)
	}

	gs := docstore.NewGormStore(b.DB.DB,
		docstore.WithNotifier(notifier),
		docstore.WithGormLogger(log.Named("docstore")))
	b.closers = append(b.closers, func() error { gs.Close(); return nil })
	b.Store = gs
	b.Blobs = blobstore.NewGormStore(b.DB.DB)
	return b, nil
}

func (b *Backend) openDatabase(log *zap.Logger) error {
	var opts []logger.GormLoggerOption
	if b.Config.Database.SlowQuery > 0 {
		opts = append(opts, logger.WithSlowThreshold(b.Config.Database.SlowQuery))
	}
	gormLog := logger.NewGormLogger(log.Named("gorm"), logger.MapGormLogLevel(b.Config.Log.Level), opts...)
	tel := b.Config.Telemetry
	db, err := persistence.NewDatabase(&b.Config.Database,
		persistence.WithLogger(gormLog),
		persistence.WithPlugin(telemetry.DBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:    tel.Enabled && tel.DBTraceEnabled,
			LogFullSQL: tel.DBLogFullSQL,
			DBSystem:   b.Config.Database.Driver,
		}, nil)))
	if err != nil {
		return err
	}
	b.DB = db
	b.closers = append(b.closers, db.Close)

	if db.Driver != config.DriverPostgres {
		return db.AutoMigrate()
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, log.Named("migrate"))
	if err != nil {
		return err
	}
	// the migrator shares the pool; closing it would close sqlDB
	return m.Up()
}

// Registry returns a workspace registry over the backend's stores; idle
// workspaces are released after http.workspace_idle
func (b *Backend) Registry() *workspace.Registry {
	return workspace.NewRegistry(workspace.Deps{
		Store:      b.Store,
		Dispatcher: b.Dispatcher,
		Stamper:    b.Stamper,
		Logger:     b.Logger,
	}, workspace.WithIdleTimeout(b.Config.HTTP.WorkspaceIdle))
}

// Close releases everything Open acquired, newest first
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
