package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/silaibook/silaibook/internal/clothstock"
	jobmetrics "github.com/silaibook/silaibook/internal/jobs"
	"github.com/silaibook/silaibook/internal/platform/cache"
)

// Reconciler is the ledger operation the job drives.
type Reconciler interface {
	Run(ctx context.Context) ([]clothstock.ReconcileRow, error)
}

// ReconcileJob handles TaskStockReconcile.
type ReconcileJob struct {
	reconciler Reconciler
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
}

// NewReconcileJob constructs the job handler.
func NewReconcileJob(reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileJob{reconciler: reconciler, logger: logger, metrics: metrics}
}

// Handle runs one reconciliation. A run already in progress elsewhere makes
// this one a no-op.
func (j *ReconcileJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload ReconcilePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("%w: decode payload: %v", asynq.SkipRetry, err)
		}
	}
	tracker := j.metrics.Track("stock_reconcile")
	report, err := j.reconciler.Run(ctx)
	if errors.Is(err, cache.ErrLockHeld) {
		j.logger.Info("stock reconcile skipped, lock held", slog.String("requested_by", payload.RequestedBy))
		return tracker.End(nil)
	}
	if err != nil {
		return tracker.End(err)
	}
	changed := 0
	for _, row := range report {
		if row.Changed() {
			changed++
		}
	}
	j.metrics.AddCorrections(changed)
	j.logger.Info("stock reconcile job done",
		slog.String("requested_by", payload.RequestedBy),
		slog.Int("lots", len(report)),
		slog.Int("changed", changed))
	return tracker.End(nil)
}
