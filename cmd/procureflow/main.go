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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/procureflow/procureflow/internal/app"
	"github.com/procureflow/procureflow/internal/notify"
	"github.com/procureflow/procureflow/internal/observability"
	"github.com/procureflow/procureflow/internal/platform/cache"
	"github.com/procureflow/procureflow/internal/platform/db"
	"github.com/procureflow/procureflow/internal/procurement"
	"github.com/procureflow/procureflow/internal/shared"
	"github.com/procureflow/procureflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	metrics := observability.NewMetrics()

	opts := []procurement.ServiceOption{
		procurement.WithMetrics(metrics),
		procurement.WithSuppliers(procurement.SampleSupplierDirectory()),
		procurement.WithCompany(cfg.CompanyName),
		procurement.WithMailbox(cfg.MailFrom),
	}

	var pool *pgxpool.Pool
	if cfg.PersistenceEnabled() {
		pool, err = db.New(ctx, cfg.PGDSN, cfg.Postgres())
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		schema := append(append([]string{}, shared.Schema...), procurement.Schema...)
		if err := db.Migrate(ctx, pool, schema...); err != nil {
			logger.Error("migrate schema", slog.Any("error", err))
			os.Exit(1)
		}
		opts = append(opts,
			procurement.WithAudit(shared.NewAuditLogger(pool)),
			procurement.WithApprovals(shared.NewApprovalRecorder(pool, logger)),
			procurement.WithSnapshots(procurement.NewRepository(pool, cfg.SnapshotRetention)),
		)
	} else {
		logger.Warn("PG_DSN not set, workflow state is kept in memory only")
	}

	var (
		redisClient *redis.Client
		idempotency procurement.IdempotencyPort
		inspector   *asynq.Inspector
		delivery    notify.Sink = notify.LogSink{Logger: logger}
	)
	redisClient, err = cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, idempotency keys and mail queue disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		idempotency = shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)

		redisOpts := cfg.Redis().Asynq()
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer jobClient.Close()
		delivery = jobs.MailQueue{Client: jobClient}

		inspector = asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
	}
	opts = append(opts, procurement.WithNotifier(&notify.Outbox{Next: delivery}))

	store := procurement.NewStore()
	service := procurement.NewService(store, logger, opts...)
	loaded, err := service.Load(ctx)
	if err != nil {
		logger.Error("load workflow snapshot", slog.Any("error", err))
		os.Exit(1)
	}
	if !loaded && cfg.SeedSampleData {
		if err := procurement.SeedSampleData(store); err != nil {
			logger.Error("seed sample data", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("seeded sample procurement data")
	}

	var jobHandler *jobs.Handler
	if inspector != nil {
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ProcurementHandler: procurement.NewHandler(logger, service, idempotency),
		JobHandler:         jobHandler,
		Metrics:            metrics,
		Ready: func(r *http.Request) error {
			if pool != nil {
				if err := pool.Ping(r.Context()); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Ping(r.Context()).Err()
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		persistPeriodically(gctx, service, cfg.SnapshotInterval, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
		}
		if err := service.Persist(shutdownCtx); err != nil {
			logger.Error("persist workflow snapshot", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}

func persistPeriodically(ctx context.Context, service *procurement.Service, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := service.Persist(ctx); err != nil {
				logger.Warn("periodic snapshot", slog.Any("error", err))
			}
		}
	}
}
