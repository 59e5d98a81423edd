package clothstock

import (
	"context"
	"log/slog"
	"time"
)

const (
	reconcileLockKey = "silaibook:lock:stock-reconcile"
	reconcileLockTTL = 2 * time.Minute
)

// Locker provides a cross-process mutual exclusion section.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Reconciler recomputes used_meters of every active lot from its consumed
// balance and the meters reserved by in-flight orders.
type Reconciler struct {
	repo      Repository
	tx        Transactor
	locker    Locker
	reserving []string
	logger    *slog.Logger
	now       func() time.Time
}

// NewReconciler constructs a Reconciler. reserving lists the order statuses
// whose allocations still count as reserved.
func NewReconciler(repo Repository, tx Transactor, locker Locker, reserving []string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		repo:      repo,
		tx:        tx,
		locker:    locker,
		reserving: append([]string(nil), reserving...),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run reconciles all active lots in one transaction while holding the
// reconcile lock. Rerunning on unchanged data yields the same report.
func (r *Reconciler) Run(ctx context.Context) ([]ReconcileRow, error) {
	var report []ReconcileRow
	err := r.locker.WithLock(ctx, reconcileLockKey, reconcileLockTTL, func(ctx context.Context) error {
		return r.tx.WithinTx(ctx, func(ctx context.Context) error {
			rows, err := r.repo.Reconcile(ctx, r.reserving, r.now())
			if err != nil {
				return err
			}
			report = rows
			return nil
		})
	})
	if err != nil {
		r.logger.Error("stock reconcile failed", slog.Any("error", err))
		return nil, err
	}
	changed := 0
	for _, row := range report {
		if row.Changed() {
			changed++
			r.logger.Info("stock lot reconciled",
				slog.Int64("stock_id", row.StockID),
				slog.String("previous_used", row.PreviousUsed.String()),
				slog.String("used", row.UsedMeters.String()),
				slog.String("reserved", row.ReservedMeters.String()))
		}
	}
	r.logger.Info("stock reconcile finished", slog.Int("lots", len(report)), slog.Int("changed", changed))
	return report, nil
}
