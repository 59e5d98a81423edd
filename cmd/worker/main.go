package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/silaibook/silaibook/internal/app"
	"github.com/silaibook/silaibook/internal/clothstock"
	jobmetrics "github.com/silaibook/silaibook/internal/jobs"
	"github.com/silaibook/silaibook/internal/orders"
	"github.com/silaibook/silaibook/internal/platform/cache"
	"github.com/silaibook/silaibook/internal/platform/db"
	"github.com/silaibook/silaibook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("parse redis address", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)
	reconciler := clothstock.NewReconciler(
		clothstock.NewRepository(pool),
		db.NewTxManager(pool),
		cache.NewLocker(redisClient),
		orders.ReservingStatuses(),
		logger,
	)
	reconcileJob := jobs.NewReconcileJob(reconciler, logger, metrics)

	nightlyTask, err := jobs.NewStockReconcileTask("scheduler")
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpt,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockReconcile, Handler: reconcileJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.NightlyReconcileSpec, Task: nightlyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("worker started", slog.String("schedule", jobs.NightlyReconcileSpec))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
