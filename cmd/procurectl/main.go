package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/procureflow/procureflow/cmd/procurectl/cli"
	"github.com/procureflow/procureflow/internal/app"
	"github.com/procureflow/procureflow/internal/platform/db"
	"github.com/procureflow/procureflow/internal/procurement"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	deps := cli.Deps{
		Jobs: func() (cli.JobQueue, error) {
			return cli.NewJobsCLI(cfg.Redis().Asynq())
		},
	}
	if cfg.PersistenceEnabled() {
		deps.Snapshots = func(ctx context.Context) (procurement.Snapshot, error) {
			pool, err := db.New(ctx, cfg.PGDSN, cfg.Postgres())
			if err != nil {
				return procurement.Snapshot{}, err
			}
			defer pool.Close()
			return procurement.NewRepository(pool, cfg.SnapshotRetention).Latest(ctx)
		}
	}

	if err := cli.NewRootCommand(deps).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
