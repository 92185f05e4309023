package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/procureflow/procureflow/internal/jobs"
	"github.com/procureflow/procureflow/internal/procurement"
)

const (
	// TaskWorkflowScan inspects the latest workflow snapshot for stock and delivery issues.
	TaskWorkflowScan = "procurement:workflow-scan"
)

// WorkflowScanPayload tunes a scan run.
type WorkflowScanPayload struct {
	// GraceDays is how many days past the scheduled date a delivery may be
	// before it is reported as overdue.
	GraceDays int `json:"graceDays"`
}

// NewWorkflowScanTask builds a scan task.
func NewWorkflowScanTask(graceDays int) (*asynq.Task, error) {
	body, err := json.Marshal(WorkflowScanPayload{GraceDays: graceDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWorkflowScan, body, asynq.Queue(QueueDefault)), nil
}

// SnapshotSource returns the most recently persisted workflow state.
type SnapshotSource interface {
	Latest(ctx context.Context) (procurement.Snapshot, error)
}

// ScanReport summarises one scan run.
type ScanReport struct {
	TakenAt           time.Time                   `json:"takenAt"`
	LowStock          []procurement.InventoryItem `json:"lowStock"`
	OutOfStock        []procurement.InventoryItem `json:"outOfStock"`
	OverdueDeliveries []procurement.Delivery      `json:"overdueDeliveries"`
}

// WorkflowScanJob reports low stock and overdue deliveries from the latest snapshot.
type WorkflowScanJob struct {
	Snapshots SnapshotSource
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewWorkflowScanJob initialises the scan handler.
func NewWorkflowScanJob(snapshots SnapshotSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *WorkflowScanJob {
	return &WorkflowScanJob{
		Snapshots: snapshots,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *WorkflowScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("workflow scan: handler not configured")
	}
	var payload WorkflowScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskWorkflowScan)
	report, err := j.Scan(ctx, payload)
	if errors.Is(err, procurement.ErrNotFound) {
		j.logger().Info("no workflow snapshot persisted yet")
		return tracker.End(nil)
	}
	if err != nil {
		j.logger().Error("scan failed", slog.Any("error", err))
		return tracker.End(err)
	}

	logger := j.logger().With(slog.Time("snapshot_taken_at", report.TakenAt))
	for _, item := range append(report.OutOfStock, report.LowStock...) {
		logger.Warn("inventory below minimum",
			slog.String("item_id", item.ID),
			slog.String("name", item.Name),
			slog.Int("current_stock", item.CurrentStock),
			slog.Int("minimum_stock", item.MinimumStock),
			slog.String("status", string(item.Status)),
		)
	}
	for _, d := range report.OverdueDeliveries {
		logger.Warn("delivery overdue",
			slog.String("delivery_id", d.ID),
			slog.String("po_id", d.POID),
			slog.String("scheduled_date", d.ScheduledDate.String()),
			slog.String("status", string(d.Status)),
		)
	}
	j.metrics().SetFindings(TaskWorkflowScan, string(procurement.StockStatusLowStock), len(report.LowStock))
	j.metrics().SetFindings(TaskWorkflowScan, string(procurement.StockStatusOutOfStock), len(report.OutOfStock))
	j.metrics().SetFindings(TaskWorkflowScan, "overdue-delivery", len(report.OverdueDeliveries))
	logger.Info("completed workflow scan",
		slog.Int("low_stock", len(report.LowStock)),
		slog.Int("out_of_stock", len(report.OutOfStock)),
		slog.Int("overdue_deliveries", len(report.OverdueDeliveries)),
	)
	return tracker.End(nil)
}

// Scan loads the latest snapshot into a scratch store and inspects it.
func (j *WorkflowScanJob) Scan(ctx context.Context, payload WorkflowScanPayload) (ScanReport, error) {
	if j.Snapshots == nil {
		return ScanReport{}, errors.New("workflow scan: snapshot source not configured")
	}
	snap, err := j.Snapshots.Latest(ctx)
	if err != nil {
		return ScanReport{}, err
	}
	store := procurement.NewStore(procurement.WithClock(j.now))
	if err := store.Restore(snap); err != nil {
		return ScanReport{}, err
	}

	report := ScanReport{TakenAt: snap.TakenAt}
	for _, item := range store.LowStockItems() {
		if item.Status == procurement.StockStatusOutOfStock {
			report.OutOfStock = append(report.OutOfStock, item)
			continue
		}
		report.LowStock = append(report.LowStock, item)
	}

	grace := max(payload.GraceDays, 0)
	cutoff := procurement.NewDate(j.now()).AddDate(0, 0, -grace)
	for _, d := range store.ListDeliveries("") {
		if d.Status == procurement.DeliveryStatusDelivered || d.ScheduledDate.IsZero() {
			continue
		}
		if d.ScheduledDate.Before(cutoff) {
			report.OverdueDeliveries = append(report.OverdueDeliveries, d)
		}
	}
	return report, nil
}

func (j *WorkflowScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskWorkflowScan))
	}
	return slog.Default().With(slog.String("job", TaskWorkflowScan))
}

func (j *WorkflowScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *WorkflowScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
