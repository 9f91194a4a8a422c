package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	appinv "github.com/Zhima-Mochi/inventory-tracker/internal/application/inventory"
	dominv "github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/config"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/jsonfile"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/redisstore"
	"github.com/Zhima-Mochi/inventory-tracker/internal/observability"
)

// App owns the inventory of one process and everything wired around it.
type App struct {
	Config   *config.Config
	Logger   zaplogger.Logger
	Tel      observability.Observability
	Registry *prometheus.Registry
	Service  *appinv.Service
	Stdout   io.Writer

	closers []func() error
}

// NewApp wires logger, metrics, tracer, snapshot store, repository and service.
func NewApp(ctx context.Context, cfg *config.Config, stdout io.Writer, opts ...appinv.Option) (*App, error) {
	logger, err := zaplogger.New(cfg.Log,
		observability.F("service", cfg.App.Name),
		observability.F("env", cfg.App.Env),
	)
	if err != nil {
		return nil, fmt.Errorf("cli: logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tel := infraobs.NewPrometheus(reg, oteltrace.New(cfg.App.Name), logger)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Tel:      tel,
		Registry: reg,
		Stdout:   stdout,
	}

	store := app.snapshotStore(ctx)
	app.Service = appinv.NewService(memory.NewInventoryRepository(), store, tel, opts...)
	return app, nil
}

// snapshotStore picks Redis when configured and reachable, else the JSON file.
func (a *App) snapshotStore(ctx context.Context) dominv.SnapshotStore {
	if a.Config.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			a.Logger.Error("redis_unavailable_falling_back_to_file",
				observability.F("addr", a.Config.Redis.Addr),
				observability.F("file", a.Config.Inventory.File),
				observability.F("error", err),
			)
			_ = client.Close()
		} else {
			a.closers = append(a.closers, client.Close)
			return redisstore.NewRedisStore(client, a.Config.Redis.Key)
		}
	}
	return jsonfile.NewFileStore(a.Config.Inventory.File)
}

// Close releases backends and flushes the logger.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.Logger.Sync() // stderr sync errors are expected on some platforms
	return errors.Join(errs...)
}
