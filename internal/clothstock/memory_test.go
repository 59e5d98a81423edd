package clothstock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	lots     map[int64]StockLot
	usage    []UsageRecord
	reserved map[int64]decimal.Decimal
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{lots: map[int64]StockLot{}, reserved: map[int64]decimal.Decimal{}}
}

func (m *memoryRepo) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	lots := make(map[int64]StockLot, len(m.lots))
	for id, lot := range m.lots {
		lots[id] = lot
	}
	usage := append([]UsageRecord(nil), m.usage...)
	nextID := m.nextID
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.lots, m.usage, m.nextID = lots, usage, nextID
	}
}

func (m *memoryRepo) UpsertDelivery(ctx context.Context, in DeliveryInput, actor string, at time.Time) (StockLot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, lot := range m.lots {
		if lot.IsActive && lot.DealerName == in.DealerName && lot.ClothType == in.ClothType && lot.PricePerMeter.Equal(in.PricePerMeter) {
			lot.TotalMeters = lot.TotalMeters.Add(in.TotalMeters)
			lot.RemainingMeters = lot.RemainingMeters.Add(in.TotalMeters)
			lot.LastStockedAt = at
			lot.UpdatedAt = at
			m.lots[id] = lot
			return lot, false, nil
		}
	}
	m.nextID++
	lot := StockLot{
		ID: m.nextID, DealerName: in.DealerName, ClothType: in.ClothType, PricePerMeter: in.PricePerMeter,
		TotalMeters: in.TotalMeters, UsedMeters: decimal.Zero, RemainingMeters: in.TotalMeters, IsActive: true,
		PurchaseDate: at, CreatedAt: at, LastStockedAt: at, UpdatedAt: at, CreatedBy: actor,
	}
	m.lots[lot.ID] = lot
	return lot, true, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (StockLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[id]
	if !ok {
		return StockLot{}, shared.ErrNotFound
	}
	return lot, nil
}

func (m *memoryRepo) Decrement(ctx context.Context, id int64, meters decimal.Decimal, at time.Time) (StockLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[id]
	if !ok || !lot.IsActive {
		return StockLot{}, shared.ErrNotFound
	}
	if lot.RemainingMeters.LessThan(meters) {
		return StockLot{}, fmt.Errorf("%w: %s remaining", shared.ErrInsufficientStock, lot.RemainingMeters)
	}
	lot.RemainingMeters = lot.RemainingMeters.Sub(meters)
	lot.UsedMeters = lot.UsedMeters.Add(meters)
	lot.UpdatedAt = at
	m.lots[id] = lot
	return lot, nil
}

func (m *memoryRepo) InsertUsage(ctx context.Context, rec UsageRecord) (UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.usage) + 1)
	m.usage = append(m.usage, rec)
	return rec, nil
}

func (m *memoryRepo) Deactivate(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[id]
	if !ok {
		return shared.ErrNotFound
	}
	lot.IsActive = false
	m.lots[id] = lot
	return nil
}

func (m *memoryRepo) List(ctx context.Context, lowStock bool) ([]StockLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []StockLot{}
	for _, lot := range m.lots {
		if !lot.IsActive || (lowStock && lot.RemainingMeters.GreaterThan(LowStockThreshold)) {
			continue
		}
		out = append(out, lot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, in UpdateInput, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[id]
	if !ok || !lot.IsActive {
		return shared.ErrNotFound
	}
	if in.DealerName != nil {
		lot.DealerName = *in.DealerName
	}
	if in.ClothType != nil {
		lot.ClothType = *in.ClothType
	}
	if in.PricePerMeter != nil {
		lot.PricePerMeter = *in.PricePerMeter
	}
	for otherID, other := range m.lots {
		if otherID != id && other.IsActive && other.DealerName == lot.DealerName && other.ClothType == lot.ClothType && other.PricePerMeter.Equal(lot.PricePerMeter) {
			return shared.ErrDuplicate
		}
	}
	if in.RemainingMeters != nil {
		lot.RemainingMeters = *in.RemainingMeters
		lot.UsedMeters = lot.TotalMeters.Sub(*in.RemainingMeters)
	}
	lot.UpdatedAt = at
	m.lots[id] = lot
	return nil
}

func (m *memoryRepo) UsageHistory(ctx context.Context) ([]UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]UsageRecord(nil), m.usage...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryRepo) Reconcile(ctx context.Context, reserving []string, at time.Time) ([]ReconcileRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report := []ReconcileRow{}
	for id, lot := range m.lots {
		if !lot.IsActive {
			continue
		}
		reserved := m.reserved[id]
		row := ReconcileRow{
			StockID: id, DealerName: lot.DealerName, ClothType: lot.ClothType,
			TotalMeters: lot.TotalMeters, RemainingMeters: lot.RemainingMeters,
			ReservedMeters: reserved, PreviousUsed: lot.UsedMeters,
			UsedMeters: lot.TotalMeters.Sub(lot.RemainingMeters).Add(reserved),
		}
		lot.UsedMeters = row.UsedMeters
		m.lots[id] = lot
		report = append(report, row)
	}
	sort.Slice(report, func(i, j int) bool { return report[i].StockID < report[j].StockID })
	return report, nil
}

type txMarker struct{}

// memoryTx restores the repository snapshot when the outermost unit of work fails.
type memoryTx struct {
	repo *memoryRepo
}

func (t memoryTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	restore := t.repo.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		restore()
		return err
	}
	return nil
}

type recordingLocker struct {
	keys []string
	err  error
}

func (l *recordingLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}
