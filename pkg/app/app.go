// Package app assembles the shopfront application from configuration: the
// repository backend chosen by DB_DRIVER, cache, event bus, job queue,
// realtime feeds, storage disk and the services on top of them.
//
//	a, err := app.Boot(ctx)
//	if err != nil { ... }
//	defer a.Close(context.Background())
//	return a.Serve(ctx)
//
// The cobra commands in cmd/shopfront are thin wrappers over this package.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	appgraphql "github.com/shashiranjanraj/shopfront/app/graphql"
	"github.com/shashiranjanraj/shopfront/app/jobs"
	"github.com/shashiranjanraj/shopfront/app/listeners"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/app/repositories/gormrepo"
	"github.com/shashiranjanraj/shopfront/app/repositories/mongorepo"
	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/pkg/cache"
	"github.com/shashiranjanraj/shopfront/pkg/database"
	"github.com/shashiranjanraj/shopfront/pkg/event"
	pkggraphql "github.com/shashiranjanraj/shopfront/pkg/graphql"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/migration"
	"github.com/shashiranjanraj/shopfront/pkg/notification"
	"github.com/shashiranjanraj/shopfront/pkg/queue"
	"github.com/shashiranjanraj/shopfront/pkg/schedule"
	"github.com/shashiranjanraj/shopfront/pkg/sse"
	"github.com/shashiranjanraj/shopfront/pkg/storage"
	"github.com/shashiranjanraj/shopfront/pkg/workerpool"
	"github.com/shashiranjanraj/shopfront/pkg/ws"

	// Schema migrations register themselves from init().
	_ "github.com/shashiranjanraj/shopfront/database/migrations"
)

// PurgeAbandonedTask is the scheduler entry that drops stale open carts.
const PurgeAbandonedTask = "carts:purge-abandoned"

// Application holds every long-lived component. Fields are exported for
// the CLI and tests; treat them as read-only after Boot.
type Application struct {
	Repos     *repositories.Repositories
	Services  *services.Services
	Bus       *event.Bus
	Pool      *workerpool.Pool
	Queue     *queue.Manager
	Hub       *ws.Hub
	Stream    *sse.Broker
	Disk      storage.Disk
	Scheduler *schedule.Scheduler
	GraphQL   http.Handler

	// DB is set only for the SQL drivers.
	DB *gorm.DB

	flushLogs func()
}

// Boot loads configuration and builds the application. Redis and the
// storage disk are optional: when they fail the app runs without them.
func Boot(ctx context.Context) (*Application, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("app: config: %w", err)
	}
	flush, err := logger.Setup()
	if err != nil {
		return nil, fmt.Errorf("app: logger: %w", err)
	}
	a := &Application{flushLogs: flush}

	if err := cache.Connect(ctx); err != nil {
		logger.Warn("redis unavailable, caching disabled", "addr", config.RedisAddr(), "error", err)
	}

	if err := a.openRepositories(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Pool = workerpool.New(8, 256)
	a.Bus = event.NewBus(a.Pool)
	a.Hub = ws.NewHub().AllowOrigins(config.CORSOrigins())
	a.Stream = sse.NewBroker()

	disk, err := storage.FromConfig(ctx)
	if err != nil {
		logger.Warn("storage disk unavailable, thumbnail uploads disabled", "error", err)
		disk = nil
	}
	a.Disk = disk
	a.Services = services.New(a.Repos, a.Bus, a.Disk)

	a.Queue = a.newQueue()
	jobs.Register(a.Queue, jobs.Deps{Repos: a.Repos, Notifier: notification.FromConfig()})
	listeners.Register(a.Bus, listeners.Deps{Queue: a.Queue, Feed: a.Hub, Stream: a.Stream})

	schema, err := appgraphql.NewCatalog(a.Services.Products, a.Services.Stores).Schema()
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("app: graphql schema: %w", err)
	}
	a.GraphQL = pkggraphql.Handler(schema)

	a.Scheduler = schedule.New()
	a.Scheduler.Hourly(PurgeAbandonedTask, func(ctx context.Context) error {
		n, err := a.Services.Carts.PurgeAbandoned(ctx, config.CartAbandonAfter())
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("abandoned carts purged", "count", n)
		}
		return nil
	}).WithoutOverlapping()

	logger.Info("application booted",
		"app", config.AppName(),
		"db_driver", config.DatabaseDriver(),
		"queue_driver", config.QueueDriver(),
		"cache", cache.Available(),
	)
	return a, nil
}

// openRepositories connects the backend named by DB_DRIVER.
func (a *Application) openRepositories(ctx context.Context) error {
	driver := config.DatabaseDriver()
	switch {
	case driver == "memory":
		a.Repos = repositories.NewMemory()

	case driver == "mongo":
		client, err := database.ConnectMongo(ctx, config.MongoURI())
		if err != nil {
			return fmt.Errorf("app: mongo: %w", err)
		}
		repos, err := mongorepo.New(ctx, client, client.Database(config.MongoDatabase()),
			mongorepo.Options{Transactions: config.MongoTransactions()})
		if err != nil {
			client.Disconnect(ctx)
			return fmt.Errorf("app: mongo indexes: %w", err)
		}
		a.Repos = repos

	case config.UsesSQL():
		db, err := OpenDB()
		if err != nil {
			return err
		}
		if config.Get("AUTO_MIGRATE", "true") == "true" {
			if err := migration.New(db).Quiet().Run(); err != nil && !errors.Is(err, migration.ErrNoMigrations) {
				database.Close(db)
				return fmt.Errorf("app: migrate: %w", err)
			}
		}
		a.DB = db
		a.Repos = gormrepo.New(db)

	default:
		return fmt.Errorf("app: unsupported DB_DRIVER %q", driver)
	}
	return nil
}

// OpenDB connects the configured SQL database. It fails for the mongo and
// memory drivers, which have no migrations.
func OpenDB() (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("app: config: %w", err)
	}
	if !config.UsesSQL() {
		return nil, fmt.Errorf("app: DB_DRIVER %q is not a SQL driver", config.DatabaseDriver())
	}
	if err := database.Connect(); err != nil {
		return nil, fmt.Errorf("app: database: %w", err)
	}
	return database.DB, nil
}

// newQueue picks the Redis list when QUEUE_DRIVER=redis and Redis is up,
// otherwise the in-process channel. Failed jobs land in the failed_jobs
// table on SQL backends.
func (a *Application) newQueue() *queue.Manager {
	var driver queue.Driver
	switch {
	case config.QueueDriver() == "redis" && cache.Available():
		driver = queue.NewRedisDriver(cache.RDB)
	default:
		if config.QueueDriver() == "redis" {
			logger.Warn("QUEUE_DRIVER=redis but redis is unavailable, using in-memory queue")
		}
		driver = queue.NewMemoryDriver()
	}
	q := queue.New(driver)
	if a.DB != nil {
		q.UseStore(queue.GormFailedStore{DB: a.DB})
	}
	return q
}

// Close releases every connection Boot opened. It is safe on a partially
// booted application.
func (a *Application) Close(ctx context.Context) {
	if a.Pool != nil {
		a.Pool.Shutdown()
	}
	if err := a.Repos.Shutdown(ctx); err != nil {
		logger.Warn("closing repositories", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warn("closing redis", "error", err)
	}
	if a.flushLogs != nil {
		a.flushLogs()
	}
}

