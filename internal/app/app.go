package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"news_reader/internal/config"
	"news_reader/internal/notifier"
	"news_reader/internal/scheduler"
	"news_reader/internal/service"
	"news_reader/internal/source/hn"
	"news_reader/internal/storage"
	"news_reader/internal/storage/memory"
	"news_reader/internal/storage/redis"
	"news_reader/internal/storage/sqldb"
)

type dispatcher interface {
	service.Notifier
	Close() error
}

// App wires storage, the search source, the dispatcher and the services.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       *storage.Store
	Source      *hn.Source
	Articles    *service.ArticleRepository
	Preferences *service.PreferencesManager
	Sync        *service.SyncService
	Scheduler   *scheduler.Scheduler

	kv       storage.KV
	notifier dispatcher
}

// New builds the application and loads persisted state.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	kv, err := openKV(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Info("storage ready", "driver", cfg.Storage.Driver)

	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  storage.New(kv, logger),
		kv:     kv,
	}

	a.Source = hn.New(hn.Config{
		BaseURL:        cfg.API.BaseURL,
		DefaultQuery:   cfg.API.DefaultQuery,
		HitsPerPage:    cfg.API.HitsPerPage,
		Timeout:        cfg.API.Timeout,
		MaxAttempts:    cfg.API.Retry.MaxAttempts,
		InitialBackoff: cfg.API.Retry.InitialBackoff,
		MaxBackoff:     cfg.API.Retry.MaxBackoff,
	}, logger)

	switch cfg.Notifications.Driver {
	case "rabbitmq":
		a.notifier = notifier.NewRabbitMQ(notifier.Config{
			URL:        cfg.Notifications.RabbitMQ.URL,
			Exchange:   cfg.Notifications.RabbitMQ.Exchange,
			RoutingKey: cfg.Notifications.RabbitMQ.RoutingKey,
			QueueName:  cfg.Notifications.RabbitMQ.QueueName,
		}, logger)
	default:
		a.notifier = notifier.NewLog(logger)
	}

	a.Articles = service.NewArticleRepository(a.Source, a.Store, cfg.API.DefaultQuery, logger)
	a.Sync = service.NewSyncService(a.Source, a.Store, a.Store, a.notifier, logger)
	a.Scheduler = scheduler.NewScheduler(a.Sync, cfg.Sync.Interval, cfg.Sync.Timeout, logger)
	a.Preferences = service.NewPreferencesManager(a.Store, a.notifier, a.Scheduler, logger)

	a.load(ctx)

	return a, nil
}

func openKV(ctx context.Context, cfg config.StorageConfig) (storage.KV, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "redis":
		kv, err := redis.New(ctx, redis.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		return kv, nil
	case "sqlite", "postgres":
		kv, err := sqldb.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s storage: %w", cfg.Driver, err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func (a *App) load(ctx context.Context) {
	a.Articles.LoadFromStorage(ctx)
	a.Preferences.Load(ctx)
}

// Start re-registers the background sync if it was on before a restart.
func (a *App) Start(ctx context.Context) {
	a.Preferences.EnsureBackgroundSync(ctx)
}

// Reset wipes the persisted articles, statuses, preferences and fetch time
// and reloads the services from the empty store.
func (a *App) Reset(ctx context.Context) error {
	if err := a.Store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	a.load(ctx)

	a.Logger.Info("storage cleared")
	return nil
}

func (a *App) Close() error {
	return errors.Join(a.notifier.Close(), a.kv.Close())
}
