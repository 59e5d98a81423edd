package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/clothstock"
	"github.com/silaibook/silaibook/internal/customers"
	"github.com/silaibook/silaibook/internal/shared"
)

// store backs every fake so a failed unit of work can roll all of them back.
type store struct {
	mu        sync.Mutex
	customers map[int64]customers.Customer
	lots      map[int64]clothstock.StockLot
	usage     []clothstock.UsageRecord
	orders    map[int64]Order
	counters  map[int]int64
	nextOrder int64
}

func newStore() *store {
	return &store{
		customers: map[int64]customers.Customer{},
		lots:      map[int64]clothstock.StockLot{},
		orders:    map[int64]Order{},
		counters:  map[int]int64{},
	}
}

func (s *store) snapshot() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	lots := make(map[int64]clothstock.StockLot, len(s.lots))
	for k, v := range s.lots {
		lots[k] = v
	}
	orders := make(map[int64]Order, len(s.orders))
	for k, v := range s.orders {
		v.StatusHistory = append([]HistoryEntry(nil), v.StatusHistory...)
		orders[k] = v
	}
	counters := make(map[int]int64, len(s.counters))
	for k, v := range s.counters {
		counters[k] = v
	}
	usage := append([]clothstock.UsageRecord(nil), s.usage...)
	nextOrder := s.nextOrder
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lots, s.orders, s.counters, s.usage, s.nextOrder = lots, orders, counters, usage, nextOrder
	}
}

type txMarker struct{}

type fakeTx struct{ store *store }

func (t fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	restore := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		restore()
		return err
	}
	return nil
}

type fakeCustomers struct{ store *store }

func (f fakeCustomers) Lookup(ctx context.Context, id int64) (customers.Customer, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	c, ok := f.store.customers[id]
	if !ok || !c.IsActive {
		return customers.Customer{}, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	return c, nil
}

type fakeLedger struct {
	store      *store
	consumeErr error
	consumed   int
}

func (f *fakeLedger) Available(ctx context.Context, stockID int64) (clothstock.StockLot, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	lot, ok := f.store.lots[stockID]
	if !ok || !lot.IsActive {
		return clothstock.StockLot{}, fmt.Errorf("%w: stock lot %d", shared.ErrNotFound, stockID)
	}
	return lot, nil
}

func (f *fakeLedger) Consume(ctx context.Context, stockID int64, meters decimal.Decimal, uc clothstock.UsageContext, actor string) (clothstock.UsageRecord, error) {
	if f.consumeErr != nil && f.consumed > 0 {
		return clothstock.UsageRecord{}, f.consumeErr
	}
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	lot, ok := f.store.lots[stockID]
	if !ok || !lot.IsActive {
		return clothstock.UsageRecord{}, shared.ErrNotFound
	}
	if lot.RemainingMeters.LessThan(meters) {
		return clothstock.UsageRecord{}, shared.ErrInsufficientStock
	}
	lot.RemainingMeters = lot.RemainingMeters.Sub(meters)
	lot.UsedMeters = lot.UsedMeters.Add(meters)
	f.store.lots[stockID] = lot
	f.consumed++
	return f.appendUsage(lot, meters, uc, actor), nil
}

func (f *fakeLedger) RecordUsage(ctx context.Context, stockID int64, meters decimal.Decimal, uc clothstock.UsageContext, actor string) (clothstock.UsageRecord, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	lot, ok := f.store.lots[stockID]
	if !ok {
		return clothstock.UsageRecord{}, shared.ErrNotFound
	}
	return f.appendUsage(lot, meters, uc, actor), nil
}

func (f *fakeLedger) appendUsage(lot clothstock.StockLot, meters decimal.Decimal, uc clothstock.UsageContext, actor string) clothstock.UsageRecord {
	orderID := uc.OrderID
	rec := clothstock.UsageRecord{
		ID: int64(len(f.store.usage) + 1), StockID: lot.ID, UsedMeters: meters, Kind: uc.Kind, OrderID: &orderID,
		Stage: uc.Stage, RemainingMeters: lot.RemainingMeters, UsedBy: actor, UsedAt: time.Now(),
	}
	f.store.usage = append(f.store.usage, rec)
	return rec
}

type fakeRepo struct{ store *store }

func (f fakeRepo) NextSequence(ctx context.Context, year int) (int64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.counters[year]++
	return f.store.counters[year], nil
}

func (f fakeRepo) Insert(ctx context.Context, order *Order) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.nextOrder++
	order.ID = f.store.nextOrder
	stored := *order
	stored.StatusHistory = append([]HistoryEntry(nil), order.StatusHistory...)
	f.store.orders[order.ID] = stored
	return nil
}

func (f fakeRepo) Get(ctx context.Context, id int64) (Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	o, ok := f.store.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	o.StatusHistory = append([]HistoryEntry(nil), o.StatusHistory...)
	return o, nil
}

func (f fakeRepo) List(ctx context.Context, filters ListFilters) ([]Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	out := []Order{}
	for _, o := range f.store.orders {
		if !o.IsActive || (filters.CustomerID != 0 && o.CustomerID != filters.CustomerID) || (filters.Status != "" && o.Status != filters.Status) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeRepo) Transition(ctx context.Context, id int64, from, to Status, actor string, at time.Time) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	o, ok := f.store.orders[id]
	if !ok || !o.IsActive || (from != "" && o.Status != from) {
		return shared.ErrNotFound
	}
	o.Status = to
	o.UpdatedAt = at
	if to == StatusReady {
		readyAt := at
		o.ReadyAt = &readyAt
	}
	o.StatusHistory = append(o.StatusHistory, HistoryEntry{Status: to, ChangedAt: at, ChangedBy: actor})
	f.store.orders[id] = o
	return nil
}

func (f fakeRepo) Deactivate(ctx context.Context, id int64, at time.Time) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	o, ok := f.store.orders[id]
	if !ok || !o.IsActive {
		return shared.ErrNotFound
	}
	o.IsActive = false
	f.store.orders[id] = o
	return nil
}

func lot(id int64, cloth, remaining string) clothstock.StockLot {
	meters := decimal.RequireFromString(remaining)
	return clothstock.StockLot{ID: id, DealerName: "A", ClothType: cloth, PricePerMeter: decimal.NewFromInt(100),
		TotalMeters: meters, UsedMeters: decimal.Zero, RemainingMeters: meters, IsActive: true}
}
