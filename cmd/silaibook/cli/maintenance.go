package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/silaibook/silaibook/internal/clothstock"
	"github.com/silaibook/silaibook/internal/platform/cache"
)

// ClearedTables lists the tables wiped by clear-data, children before
// parents. Users and employees survive.
var ClearedTables = []string{
	"order_cloth_items",
	"order_status_history",
	"cloth_usage",
	"orders",
	"order_counters",
	"payments",
	"expenses",
	"owners",
	"cloth_stock",
	"customers",
	"messages",
}

// Reconciler recomputes stock lot balances.
type Reconciler interface {
	Run(ctx context.Context) ([]clothstock.ReconcileRow, error)
}

// DataStore deletes every row of the named tables in one transaction and
// returns the deleted counts in table order.
type DataStore interface {
	Clear(ctx context.Context, tables []string) ([]int64, error)
}

// Enqueuer submits background jobs.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, requestedBy string) (*asynq.TaskInfo, error)
}

// MaintenanceCLI implements the operator commands of silaictl.
type MaintenanceCLI struct {
	reconciler Reconciler
	store      DataStore
	queue      Enqueuer
}

// NewMaintenanceCLI wires the command implementations. Dependencies a
// command does not need may be nil.
func NewMaintenanceCLI(reconciler Reconciler, store DataStore, queue Enqueuer) *MaintenanceCLI {
	return &MaintenanceCLI{reconciler: reconciler, store: store, queue: queue}
}

// Output carries the writers and format of one command run.
type Output struct {
	JSON   bool
	Stdout io.Writer
	Stderr io.Writer
}

func (o *Output) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// ReconcileSummary is the JSON output of the reconcile command.
type ReconcileSummary struct {
	Lots    int                       `json:"lots"`
	Changed int                       `json:"changed"`
	Rows    []clothstock.ReconcileRow `json:"rows"`
}

// ReconcileCommand recomputes used meters and prints one line per lot.
// It exits 2 when another reconcile holds the lock.
func (c *MaintenanceCLI) ReconcileCommand(ctx context.Context, out Output) int {
	out.defaults()
	if c.reconciler == nil {
		_, _ = fmt.Fprintln(out.Stderr, "reconcile: reconciler not configured")
		return 1
	}
	rows, err := c.reconciler.Run(ctx)
	if errors.Is(err, cache.ErrLockHeld) {
		_, _ = fmt.Fprintln(out.Stderr, "reconcile: another reconcile is running")
		return 2
	}
	if err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "reconcile: %v\n", err)
		return 1
	}
	summary := ReconcileSummary{Lots: len(rows), Rows: rows}
	for _, row := range rows {
		if row.Changed() {
			summary.Changed++
		}
	}
	if out.JSON {
		if err := json.NewEncoder(out.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(out.Stderr, "reconcile: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	tw := tabwriter.NewWriter(out.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STOCK\tCLOTH\tTOTAL\tREMAINING\tRESERVED\tUSED BEFORE\tUSED AFTER")
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.StockID, row.ClothType,
			row.TotalMeters.String(), row.RemainingMeters.String(), row.ReservedMeters.String(),
			row.PreviousUsed.String(), row.UsedMeters.String())
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(out.Stdout, "%d lots checked, %d corrected\n", summary.Lots, summary.Changed)
	return 0
}

// ClearDataCommand wipes business data. Without confirm it only lists what
// would be deleted and exits 1.
func (c *MaintenanceCLI) ClearDataCommand(ctx context.Context, confirm bool, out Output) int {
	out.defaults()
	if !confirm {
		_, _ = fmt.Fprintln(out.Stderr, "clear-data: this deletes all rows from:")
		for _, table := range ClearedTables {
			_, _ = fmt.Fprintf(out.Stderr, "  - %s\n", table)
		}
		_, _ = fmt.Fprintln(out.Stderr, "users and employees are kept. Rerun with --yes to proceed.")
		return 1
	}
	if c.store == nil {
		_, _ = fmt.Fprintln(out.Stderr, "clear-data: store not configured")
		return 1
	}
	counts, err := c.store.Clear(ctx, ClearedTables)
	if err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "clear-data: %v\n", err)
		return 1
	}
	if out.JSON {
		result := make(map[string]int64, len(counts))
		for i, n := range counts {
			result[ClearedTables[i]] = n
		}
		if err := json.NewEncoder(out.Stdout).Encode(result); err != nil {
			_, _ = fmt.Fprintf(out.Stderr, "clear-data: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	for i, n := range counts {
		_, _ = fmt.Fprintf(out.Stdout, "cleared %s: %d rows\n", ClearedTables[i], n)
	}
	_, _ = fmt.Fprintln(out.Stdout, "done, users and employees kept")
	return 0
}

// EnqueueReconcileCommand hands a reconcile run to the worker.
func (c *MaintenanceCLI) EnqueueReconcileCommand(ctx context.Context, requestedBy string, out Output) int {
	out.defaults()
	if c.queue == nil {
		_, _ = fmt.Fprintln(out.Stderr, "enqueue-reconcile: queue not configured")
		return 1
	}
	info, err := c.queue.EnqueueReconcile(ctx, requestedBy)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		_, _ = fmt.Fprintln(out.Stdout, "reconcile already queued")
		return 0
	}
	if err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "enqueue-reconcile: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(out.Stdout, "enqueued %s on queue %s\n", info.ID, info.Queue)
	return 0
}
