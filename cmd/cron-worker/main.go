package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/printloom/printsync-backend/internal/cron"
	"github.com/printloom/printsync-backend/internal/health"
	"github.com/printloom/printsync-backend/internal/importer"
	"github.com/printloom/printsync-backend/internal/orders"
	"github.com/printloom/printsync-backend/internal/products"
	"github.com/printloom/printsync-backend/internal/progress"
	"github.com/printloom/printsync-backend/internal/scheduler"
	"github.com/printloom/printsync-backend/internal/synclog"
	"github.com/printloom/printsync-backend/pkg/config"
	"github.com/printloom/printsync-backend/pkg/db"
	"github.com/printloom/printsync-backend/pkg/logger"
	"github.com/printloom/printsync-backend/pkg/metrics"
	"github.com/printloom/printsync-backend/pkg/migrate"
	"github.com/printloom/printsync-backend/pkg/printify"
	"github.com/printloom/printsync-backend/pkg/redis"
)

const lockKeyFormat = "ps:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	vendorClient, err := printify.NewClient(cfg.Printify, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create printify client", err)
		os.Exit(1)
	}

	progressStore, err := progress.NewStore(redisClient, cfg.Sync.ProgressTTL, cfg.Sync.QueueTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create progress store", err)
		os.Exit(1)
	}

	importQueue, err := scheduler.NewQueue(redisClient, importer.QueueName)
	if err != nil {
		logg.Error(context.Background(), "failed to create import queue", err)
		os.Exit(1)
	}

	syncLog, err := synclog.NewService(dbClient.DB(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync log service", err)
		os.Exit(1)
	}

	importService, err := importer.NewService(importer.ServiceParams{
		Logger:   logg,
		Vendor:   vendorClient,
		Progress: progressStore,
		Lease:    redisClient,
		Queue:    importQueue,
		Products: products.NewRepository(dbClient.DB()),
		Orders:   orders.NewRepository(dbClient.DB()),
		SyncLog:  syncLog,
		Metrics:  metrics.NewSyncMetrics(nil),
		Sync:     cfg.Sync,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create import service", err)
		os.Exit(1)
	}

	healthService, err := health.NewService(health.ServiceParams{
		Logger:      logg,
		Vendor:      vendorClient,
		Store:       progressStore,
		CatchUp:     importService,
		EndpointURL: cfg.Printify.WebhookURL,
		Timeout:     cfg.Webhook.HealthTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create health service", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()

	if len(cfg.Printify.ShopIDs) > 0 {
		healthJob, err := cron.NewWebhookHealthJob(cron.WebhookHealthJobParams{
			Logger:  logg,
			Checker: healthService,
			ShopIDs: cfg.Printify.ShopIDs,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook health job", err)
			os.Exit(1)
		}
		registry.Register(healthJob)
	} else {
		logg.Warn(context.Background(), "no shop ids configured, webhook health job disabled")
	}

	retentionJob, err := cron.NewSyncLogRetentionJob(cron.SyncLogRetentionJobParams{
		Logger:    logg,
		Pruner:    syncLog,
		Retention: cfg.Sync.LogRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync log retention job", err)
		os.Exit(1)
	}
	registry.Register(retentionJob)

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Webhook.CronInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
