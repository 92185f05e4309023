package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/procureflow/procureflow/internal/app"
	jobmetrics "github.com/procureflow/procureflow/internal/jobs"
	"github.com/procureflow/procureflow/internal/notify"
	"github.com/procureflow/procureflow/internal/platform/db"
	"github.com/procureflow/procureflow/internal/procurement"
	"github.com/procureflow/procureflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := jobmetrics.NewMetrics(nil)

	mailJob := jobs.NewMailJob(notify.LogSink{Logger: logger}, logger, metrics)
	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
	}
	var cron []jobs.CronRegistration

	if cfg.PersistenceEnabled() {
		pool, err := db.New(ctx, cfg.PGDSN, cfg.Postgres())
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool, procurement.Schema...); err != nil {
			logger.Error("migrate schema", slog.Any("error", err))
			os.Exit(1)
		}

		scanJob := jobs.NewWorkflowScanJob(procurement.NewRepository(pool, cfg.SnapshotRetention), logger, metrics)
		scanTask, err := jobs.NewWorkflowScanTask(1)
		if err != nil {
			logger.Error("build workflow scan task", slog.Any("error", err))
			os.Exit(1)
		}
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskWorkflowScan, Handler: scanJob.Handle})
		cron = append(cron, jobs.CronRegistration{Spec: "0 6 * * *", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	} else {
		logger.Warn("PG_DSN not set, workflow scan disabled")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.Redis().Asynq(),
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
