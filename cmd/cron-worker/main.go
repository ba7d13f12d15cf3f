package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/librisvault/librisvault-backend/internal/books"
	"github.com/librisvault/librisvault-backend/internal/cron"
	"github.com/librisvault/librisvault-backend/internal/promotions"
	"github.com/librisvault/librisvault-backend/pkg/config"
	"github.com/librisvault/librisvault-backend/pkg/db"
	"github.com/librisvault/librisvault-backend/pkg/instance"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/metrics"
	"github.com/librisvault/librisvault-backend/pkg/migrate"
	"github.com/librisvault/librisvault-backend/pkg/outbox"
	"github.com/librisvault/librisvault-backend/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	jobName := flag.String("job", "", "run only the named job once and exit")
	flag.Parse()

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

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	pricingMetrics := metrics.NewPricingMetrics(prometheus.DefaultRegisterer)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, pricingMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"interval":    cfg.Cron.Interval.String(),
	})

	if *jobName != "" {
		logg.Info(ctx, "running single cron job")
		if err := service.RunJob(ctx, *jobName); err != nil {
			logg.Error(ctx, "cron job failed", err)
			os.Exit(1)
		}
		return
	}

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildRegistry orders the jobs so the pricing refresh sees the state left by
// the expiry sweep in the same cycle.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, pricingMetrics *metrics.PricingMetrics) (*cron.Registry, error) {
	promoRepo := promotions.NewRepository(dbClient.DB())
	bookRepo := books.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)

	expiry, err := cron.NewPromotionExpiryJob(cron.PromotionExpiryJobParams{
		Logger:     logg,
		DB:         dbClient,
		Promotions: promoRepo,
		Books:      bookRepo,
		Outbox:     outboxSvc,
		Metrics:    pricingMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("promotion expiry job: %w", err)
	}

	annotator, err := books.NewAnnotator(books.AnnotatorParams{
		Repo:      bookRepo,
		Resolver:  promotions.NewResolver(promoRepo),
		Metrics:   pricingMetrics,
		BatchSize: cfg.Pricing.RefreshBatchSize,
		Logger:    logg,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog annotator: %w", err)
	}
	refresh, err := cron.NewCatalogPricingRefreshJob(logg, annotator)
	if err != nil {
		return nil, fmt.Errorf("catalog pricing job: %w", err)
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	return cron.NewRegistry(expiry, refresh, retention)
}
