// Package cli implements procurectl, the operator tool for ProcureFlow.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/procureflow/procureflow/internal/procurement"
)

// JobQueue is the subset of JobsCLI used by the jobs commands.
type JobQueue interface {
	Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
	Close() error
}

// Deps opens the backends lazily so commands that need neither database nor
// Redis run without them.
type Deps struct {
	// Snapshots returns the persisted workflow state. When nil, commands fall
	// back to the built-in sample data.
	Snapshots func(ctx context.Context) (procurement.Snapshot, error)
	Jobs      func() (JobQueue, error)
}

// NewRootCommand builds the procurectl command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "procurectl",
		Short:         "ProcureFlow operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		routeCommand(),
		stockCheckCommand(deps),
		snapshotCommand(deps),
		jobsCommand(deps),
	)
	return root
}

func routeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "route <amount>",
		Short: "Show the approval routing for a purchase order amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("parse amount: %w", err)
			}
			routing, err := procurement.Route(amount)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), routing)
		},
	}
}

func stockCheckCommand(deps Deps) *cobra.Command {
	var req procurement.StockRequest
	cmd := &cobra.Command{
		Use:   "stock-check",
		Short: "Check whether inventory covers a requested quantity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(req.Name) == "" {
				return fmt.Errorf("--name is required")
			}
			if req.Quantity < 1 {
				return fmt.Errorf("--qty must be at least 1")
			}
			store, err := loadStore(cmd.Context(), deps)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), store.CheckStock(req))
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "inventory item name (case-insensitive)")
	cmd.Flags().IntVar(&req.Quantity, "qty", 1, "requested quantity")
	cmd.Flags().StringVar(&req.Unit, "unit", "", "requested unit (informational)")
	return cmd
}

func snapshotCommand(deps Deps) *cobra.Command {
	snapshot := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect persisted workflow snapshots",
	}
	var full bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the latest snapshot summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := loadStore(cmd.Context(), deps)
			if err != nil {
				return err
			}
			if full {
				return writeJSON(cmd.OutOrStdout(), store.Snapshot())
			}
			summary := struct {
				procurement.Counts
				LowStock       int             `json:"lowStock"`
				InventoryValue decimal.Decimal `json:"inventoryValue"`
			}{
				Counts:         store.Counts(),
				LowStock:       len(store.LowStockItems()),
				InventoryValue: store.InventoryValue(),
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
	show.Flags().BoolVar(&full, "full", false, "print every record instead of a summary")
	snapshot.AddCommand(show)
	return snapshot
}

func jobsCommand(deps Deps) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}
	trigger := &cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a background job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(deps, func(q JobQueue) error {
				info, err := q.Trigger(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
				return err
			})
		},
	}
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show default queue statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withQueue(deps, func(q JobQueue) error {
				s, err := q.InspectQueue(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), s)
			})
		},
	}
	jobsCmd.AddCommand(trigger, stats)
	return jobsCmd
}

func withQueue(deps Deps, fn func(JobQueue) error) error {
	if deps.Jobs == nil {
		return fmt.Errorf("jobs: queue not configured")
	}
	q, err := deps.Jobs()
	if err != nil {
		return err
	}
	defer q.Close()
	return fn(q)
}

func loadStore(ctx context.Context, deps Deps) (*procurement.Store, error) {
	store := procurement.NewStore()
	if deps.Snapshots == nil {
		if err := procurement.SeedSampleData(store); err != nil {
			return nil, err
		}
		return store, nil
	}
	snap, err := deps.Snapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if err := store.Restore(snap); err != nil {
		return nil, err
	}
	return store, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
