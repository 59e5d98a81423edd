package clothstock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/shared"
)

// Transactor runs fn inside a unit of work. Nested calls join the outer one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the inventory ledger: deliveries in, consumption out, and an
// append-only usage log.
type Service struct {
	repo Repository
	tx   Transactor
	now  func() time.Time
}

// NewService constructs the ledger.
func NewService(repo Repository, tx Transactor) *Service {
	return &Service{repo: repo, tx: tx, now: func() time.Time { return time.Now().UTC() }}
}

// RecordDelivery merges meters into the active lot with the same dealer, type
// and price, or opens a new lot.
func (s *Service) RecordDelivery(ctx context.Context, in DeliveryInput, actor string) (DeliveryResult, error) {
	in.DealerName = strings.TrimSpace(in.DealerName)
	in.ClothType = strings.TrimSpace(in.ClothType)
	if in.DealerName == "" || in.ClothType == "" {
		return DeliveryResult{}, fmt.Errorf("%w: dealer_name and cloth_type are required", shared.ErrInvalidInput)
	}
	if in.PricePerMeter.IsNegative() {
		return DeliveryResult{}, fmt.Errorf("%w: price_per_meter cannot be negative", shared.ErrInvalidInput)
	}
	if err := CheckPrecision("price_per_meter", in.PricePerMeter, PricePlaces); err != nil {
		return DeliveryResult{}, err
	}
	if err := CheckMeters("meters", in.TotalMeters); err != nil {
		return DeliveryResult{}, err
	}
	lot, created, err := s.repo.UpsertDelivery(ctx, in, actor, s.now())
	if err != nil {
		return DeliveryResult{}, err
	}
	return DeliveryResult{Lot: lot, Created: created, AddedMeters: in.TotalMeters}, nil
}

// Consume deducts meters from an active lot and logs the use. The balance is
// left untouched when the lot holds fewer than meters.
func (s *Service) Consume(ctx context.Context, stockID int64, meters decimal.Decimal, uc UsageContext, actor string) (UsageRecord, error) {
	if err := CheckMeters("meters", meters); err != nil {
		return UsageRecord{}, err
	}
	var rec UsageRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		lot, err := s.repo.Decrement(ctx, stockID, meters, now)
		if err != nil {
			return lotError(stockID, err)
		}
		rec, err = s.repo.InsertUsage(ctx, newUsage(lot, meters, uc, actor, now))
		return err
	})
	if err != nil {
		return UsageRecord{}, err
	}
	return rec, nil
}

// RecordUsage appends a usage entry without changing the lot's balances. The
// lot may be inactive; it only has to exist.
func (s *Service) RecordUsage(ctx context.Context, stockID int64, meters decimal.Decimal, uc UsageContext, actor string) (UsageRecord, error) {
	if err := CheckMeters("meters", meters); err != nil {
		return UsageRecord{}, err
	}
	lot, err := s.repo.Get(ctx, stockID)
	if err != nil {
		return UsageRecord{}, lotError(stockID, err)
	}
	return s.repo.InsertUsage(ctx, newUsage(lot, meters, uc, actor, s.now()))
}

// Available returns an active lot. Inactive lots are NotFound.
func (s *Service) Available(ctx context.Context, stockID int64) (StockLot, error) {
	lot, err := s.repo.Get(ctx, stockID)
	if err != nil {
		return StockLot{}, lotError(stockID, err)
	}
	if !lot.IsActive {
		return StockLot{}, fmt.Errorf("%w: stock lot %d is inactive", shared.ErrNotFound, stockID)
	}
	return lot, nil
}

// Get returns a lot whether or not it is active.
func (s *Service) Get(ctx context.Context, stockID int64) (StockLot, error) {
	lot, err := s.repo.Get(ctx, stockID)
	if err != nil {
		return StockLot{}, lotError(stockID, err)
	}
	return lot, nil
}

// Deactivate hides a lot from deliveries and consumption. Orders that already
// reference it are not checked.
func (s *Service) Deactivate(ctx context.Context, stockID int64) error {
	if err := s.repo.Deactivate(ctx, stockID, s.now()); err != nil {
		return lotError(stockID, err)
	}
	return nil
}

// List returns active lots, newest first, optionally only those at or below
// LowStockThreshold.
func (s *Service) List(ctx context.Context, lowStock bool) ([]StockLot, error) {
	return s.repo.List(ctx, lowStock)
}

// Update corrects identity fields, price or the remaining balance of an active lot.
func (s *Service) Update(ctx context.Context, stockID int64, in UpdateInput) error {
	if in.Empty() {
		return fmt.Errorf("%w: no valid fields to update", shared.ErrInvalidInput)
	}
	for _, field := range []*string{in.DealerName, in.ClothType} {
		if field != nil {
			*field = strings.TrimSpace(*field)
			if *field == "" {
				return fmt.Errorf("%w: dealer_name and cloth_type cannot be empty", shared.ErrInvalidInput)
			}
		}
	}
	if in.PricePerMeter != nil {
		if in.PricePerMeter.IsNegative() {
			return fmt.Errorf("%w: price_per_meter cannot be negative", shared.ErrInvalidInput)
		}
		if err := CheckPrecision("price_per_meter", *in.PricePerMeter, PricePlaces); err != nil {
			return err
		}
	}
	if in.RemainingMeters != nil {
		if err := CheckPrecision("remaining_meters", *in.RemainingMeters, MeterPlaces); err != nil {
			return err
		}
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lot, err := s.Available(ctx, stockID)
		if err != nil {
			return err
		}
		if in.RemainingMeters != nil {
			if in.RemainingMeters.IsNegative() || in.RemainingMeters.GreaterThan(lot.TotalMeters) {
				return fmt.Errorf("%w: remaining_meters must be between 0 and %s", shared.ErrInvalidInput, lot.TotalMeters)
			}
		}
		err = s.repo.Update(ctx, stockID, in, s.now())
		if errors.Is(err, shared.ErrDuplicate) {
			return fmt.Errorf("%w: another active lot has this dealer, type and price", shared.ErrDuplicate)
		}
		return lotError(stockID, err)
	})
}

// UsageHistory returns the usage log, newest first.
func (s *Service) UsageHistory(ctx context.Context) ([]UsageRecord, error) {
	return s.repo.UsageHistory(ctx)
}

func newUsage(lot StockLot, meters decimal.Decimal, uc UsageContext, actor string, at time.Time) UsageRecord {
	kind := uc.Kind
	if kind == "" {
		kind = UsageAdhoc
	}
	rec := UsageRecord{
		StockID:         lot.ID,
		UsedMeters:      meters,
		Kind:            kind,
		Stage:           uc.Stage,
		RemainingMeters: lot.RemainingMeters,
		UsedBy:          actor,
		UsedAt:          at,
		DealerName:      lot.DealerName,
		ClothType:       lot.ClothType,
	}
	if kind == UsageOrder {
		orderID := uc.OrderID
		rec.OrderID = &orderID
	}
	return rec
}

func lotError(stockID int64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: stock lot %d", shared.ErrNotFound, stockID)
	}
	return err
}
