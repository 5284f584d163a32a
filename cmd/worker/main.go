package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lacasita-io/storefront-backend/internal/notifications"
	"github.com/lacasita-io/storefront-backend/pkg/config"
	"github.com/lacasita-io/storefront-backend/pkg/db"
	"github.com/lacasita-io/storefront-backend/pkg/logger"
	"github.com/lacasita-io/storefront-backend/pkg/metrics"
	"github.com/lacasita-io/storefront-backend/pkg/migrate"
	"github.com/lacasita-io/storefront-backend/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	registry := prometheus.NewRegistry()
	outboxMetrics := metrics.NewOutboxMetrics(registry)

	gormDB := dbClient.DB()
	notificationRepo := notifications.NewRepository(gormDB)
	notificationService, err := notifications.NewService(notifications.ServiceParams{
		Repo: notificationRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		OutboxRepo:   outbox.NewRepository(gormDB),
		Notification: notificationService,
		ContactRepo:  notificationRepo,
		Email:        &notifications.LogEmailSender{Logger: logg},
		SMS:          &notifications.LogSMSSender{Logger: logg},
		Config:       cfg.Outbox,
		Logger:       logg,
		Metrics:      outboxMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox dispatcher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":              cfg.App.Env,
		"poll_interval_ms": cfg.Outbox.PollIntervalMS,
		"batch_size":       cfg.Outbox.BatchSize,
	})
	logg.Info(ctx, "starting outbox dispatcher")

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox dispatcher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox dispatcher shutting down gracefully")
}
