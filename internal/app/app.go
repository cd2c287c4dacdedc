// Package app assembles the store, services and background plumbing from a
// Config so main and the integration tests build the same graph.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/api"
	"github.com/Alexjoshwa/agri-1.0/internal/cache"
	"github.com/Alexjoshwa/agri-1.0/internal/config"
	"github.com/Alexjoshwa/agri-1.0/internal/db"
	"github.com/Alexjoshwa/agri-1.0/internal/events"
	"github.com/Alexjoshwa/agri-1.0/internal/platform/metrics"
	"github.com/Alexjoshwa/agri-1.0/internal/pricefeed"
	"github.com/Alexjoshwa/agri-1.0/internal/services"
	"github.com/Alexjoshwa/agri-1.0/internal/storage"
	"github.com/Alexjoshwa/agri-1.0/internal/store"
	"github.com/Alexjoshwa/agri-1.0/internal/tasks"
)

// App is the wired application. Close releases every connection it opened.
type App struct {
	Config        *config.Config
	Log           *zap.SugaredLogger
	Store         *store.EntityStore
	Services      api.Services
	Metrics       *metrics.MetricsManager
	TaskProcessor *tasks.TaskProcessor
	Redis         *redis.Client // nil unless the redis backend or tasks need it
	TaskClient    *asynq.Client // nil unless tasks are enabled

	closers []func() error
}

// Build connects the configured backends and constructs every service.
func Build(cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: metrics.NewMetricsManager("agri")}

	if cfg.StoreBackend == config.BackendRedis || cfg.TasksEnabled {
		rdb, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.Redis = rdb
		a.closers = append(a.closers, func() error { return cache.DisconnectRedis(rdb) })
	}

	kv, err := a.openKV()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store.New(kv, log)

	publisher := events.NewNoopPublisher()
	if cfg.NatsURL != "" {
		nc, err := events.Connect(cfg.NatsURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error { nc.Close(); return nil })
		if publisher, err = events.NewNATSPublisher(nc); err != nil {
			a.Close()
			return nil, err
		}
		log.Infow("Publishing domain events to NATS", "url", cfg.NatsURL)
	}

	publisher = a.Metrics.InstrumentPublisher(publisher)

	conversationService := services.NewConversationService(a.Store, publisher, log)
	orderService := services.NewOrderService(a.Store, conversationService, publisher, log)
	priceService := services.NewPriceService(a.Store, pricefeed.NewSimulator(cfg.PriceJitter, time.Now().UnixNano()), publisher, log)
	a.Services = api.Services{
		Listings:      services.NewListingService(a.Store, cfg, log),
		Orders:        orderService,
		Conversations: conversationService,
		Sessions:      services.NewSessionService(a.Store, cfg, log),
		Prices:        priceService,
		Admin:         services.NewAdminService(a.Store, cfg, log),
	}
	a.TaskProcessor = tasks.NewTaskProcessor(priceService, orderService, conversationService, log)

	if cfg.TasksEnabled {
		a.TaskClient = tasks.NewClient(a.Redis)
		a.closers = append(a.closers, a.TaskClient.Close)
	}

	return a, nil
}

func (a *App) openKV() (store.KV, error) {
	cfg := a.Config
	switch cfg.StoreBackend {
	case config.BackendRedis:
		a.Log.Infow("Using Redis store", "addr", cfg.RedisAddr, "prefix", cfg.KeyPrefix)
		return cache.NewRedisKV(a.Redis, cfg.KeyPrefix), nil
	case config.BackendMongo:
		client, database, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		a.closers = append(a.closers, func() error { return db.DisconnectDB(client) })
		a.Log.Infow("Using MongoDB store", "db", cfg.MongoDbName, "collection", cfg.MongoKVCollection)
		return db.NewMongoKV(database, cfg.MongoKVCollection), nil
	case config.BackendSQLite:
		kv, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv.Close)
		a.Log.Infow("Using SQLite store", "path", cfg.SQLitePath)
		return kv, nil
	case config.BackendMySQL:
		kv, err := db.OpenMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv.Close)
		a.Log.Infow("Using MySQL store")
		return kv, nil
	case config.BackendS3:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		kv, err := storage.NewObjectKV(ctx, storage.ObjectKVConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.KeyPrefix,
			UseSSL:    cfg.S3UseSSL,
		}, a.Log)
		if err != nil {
			return nil, err
		}
		a.Log.Infow("Using object storage store", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		return kv, nil
	default:
		a.Log.Infow("Using in-memory store; state is lost on exit")
		return store.NewMemoryKV(), nil
	}
}

// Seed writes the demo dataset when SEED_ON_START is set.
func (a *App) Seed(ctx context.Context) error {
	if !a.Config.SeedOnStart {
		return nil
	}
	return a.Services.Admin.Seed(ctx)
}

// TaskEnqueuer returns the client handlers should queue work on, or nil when
// tasks are disabled.
func (a *App) TaskEnqueuer() tasks.IAsynqClient {
	if a.TaskClient == nil {
		return nil
	}
	return a.TaskClient
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warnw("Error during close", "error", err)
		}
	}
	a.closers = nil
}
