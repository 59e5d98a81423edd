package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silaibook/silaibook/internal/clothstock"
	"github.com/silaibook/silaibook/internal/platform/cache"
)

type stubReconciler struct {
	rows []clothstock.ReconcileRow
	err  error
}

func (s stubReconciler) Run(ctx context.Context) ([]clothstock.ReconcileRow, error) {
	return s.rows, s.err
}

type stubStore struct {
	tables []string
	err    error
}

func (s *stubStore) Clear(ctx context.Context, tables []string) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tables = tables
	counts := make([]int64, len(tables))
	for i := range counts {
		counts[i] = int64(i)
	}
	return counts, nil
}

type stubQueue struct {
	err error
}

func (s stubQueue) EnqueueReconcile(ctx context.Context, requestedBy string) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: "default"}, nil
}

func reconcileRows() []clothstock.ReconcileRow {
	return []clothstock.ReconcileRow{
		{
			StockID: 1, ClothType: "Cotton",
			TotalMeters: decimal.NewFromInt(50), RemainingMeters: decimal.NewFromInt(20),
			ReservedMeters: decimal.NewFromInt(10), PreviousUsed: decimal.NewFromInt(25), UsedMeters: decimal.NewFromInt(30),
		},
		{
			StockID: 2, ClothType: "Silk",
			TotalMeters: decimal.NewFromInt(10), RemainingMeters: decimal.NewFromInt(10),
			ReservedMeters: decimal.Zero, PreviousUsed: decimal.Zero, UsedMeters: decimal.Zero,
		},
	}
}

func TestReconcileCommandJSON(t *testing.T) {
	cli := NewMaintenanceCLI(stubReconciler{rows: reconcileRows()}, nil, nil)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	code := cli.ReconcileCommand(context.Background(), Output{JSON: true, Stdout: stdout, Stderr: stderr})
	require.Zero(t, code)
	require.Empty(t, stderr.String())

	var summary ReconcileSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Equal(t, 2, summary.Lots)
	assert.Equal(t, 1, summary.Changed)
}

func TestReconcileCommandHuman(t *testing.T) {
	cli := NewMaintenanceCLI(stubReconciler{rows: reconcileRows()}, nil, nil)
	stdout := new(bytes.Buffer)

	code := cli.ReconcileCommand(context.Background(), Output{Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Zero(t, code)
	assert.Contains(t, stdout.String(), "Cotton")
	assert.Contains(t, stdout.String(), "2 lots checked, 1 corrected")
}

func TestReconcileCommandFailures(t *testing.T) {
	stderr := new(bytes.Buffer)
	held := NewMaintenanceCLI(stubReconciler{err: cache.ErrLockHeld}, nil, nil)
	assert.Equal(t, 2, held.ReconcileCommand(context.Background(), Output{Stdout: new(bytes.Buffer), Stderr: stderr}))
	assert.Contains(t, stderr.String(), "another reconcile")

	broken := NewMaintenanceCLI(stubReconciler{err: errors.New("db down")}, nil, nil)
	assert.Equal(t, 1, broken.ReconcileCommand(context.Background(), Output{Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}))
}

func TestClearDataRequiresConfirmation(t *testing.T) {
	store := &stubStore{}
	cli := NewMaintenanceCLI(nil, store, nil)
	stderr := new(bytes.Buffer)

	code := cli.ClearDataCommand(context.Background(), false, Output{Stdout: new(bytes.Buffer), Stderr: stderr})
	assert.Equal(t, 1, code)
	assert.Nil(t, store.tables)
	assert.Contains(t, stderr.String(), "--yes")
	assert.Contains(t, stderr.String(), "cloth_usage")
}

func TestClearDataDeletesBusinessTables(t *testing.T) {
	store := &stubStore{}
	cli := NewMaintenanceCLI(nil, store, nil)
	stdout := new(bytes.Buffer)

	code := cli.ClearDataCommand(context.Background(), true, Output{JSON: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Zero(t, code)
	assert.Equal(t, ClearedTables, store.tables)
	assert.NotContains(t, store.tables, "users")
	assert.NotContains(t, store.tables, "employees")

	var counts map[string]int64
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &counts))
	assert.Len(t, counts, len(ClearedTables))
	assert.Equal(t, int64(2), counts["cloth_usage"])

	failing := NewMaintenanceCLI(nil, &stubStore{err: errors.New("fk violation")}, nil)
	assert.Equal(t, 1, failing.ClearDataCommand(context.Background(), true, Output{Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}))
}

func TestClearedTablesDeleteChildrenFirst(t *testing.T) {
	index := map[string]int{}
	for i, table := range ClearedTables {
		index[table] = i
	}
	assert.Less(t, index["order_cloth_items"], index["orders"])
	assert.Less(t, index["cloth_usage"], index["cloth_stock"])
	assert.Less(t, index["orders"], index["customers"])
	assert.Less(t, index["payments"], index["customers"])
	assert.Less(t, index["expenses"], index["owners"])
}

func TestEnqueueReconcileCommand(t *testing.T) {
	stdout := new(bytes.Buffer)
	cli := NewMaintenanceCLI(nil, nil, stubQueue{})
	require.Zero(t, cli.EnqueueReconcileCommand(context.Background(), "cli", Output{Stdout: stdout, Stderr: new(bytes.Buffer)}))
	assert.Contains(t, stdout.String(), "task-1")

	stdout.Reset()
	dup := NewMaintenanceCLI(nil, nil, stubQueue{err: asynq.ErrDuplicateTask})
	require.Zero(t, dup.EnqueueReconcileCommand(context.Background(), "cli", Output{Stdout: stdout, Stderr: new(bytes.Buffer)}))
	assert.Contains(t, stdout.String(), "already queued")

	failing := NewMaintenanceCLI(nil, nil, stubQueue{err: errors.New("redis down")})
	assert.Equal(t, 1, failing.EnqueueReconcileCommand(context.Background(), "cli", Output{Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}))

	assert.Equal(t, 1, NewMaintenanceCLI(nil, nil, nil).EnqueueReconcileCommand(context.Background(), "cli", Output{Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}))
}
