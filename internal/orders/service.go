package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/clothstock"
	"github.com/silaibook/silaibook/internal/customers"
	"github.com/silaibook/silaibook/internal/shared"
)

// CustomerDirectory resolves active customers.
type CustomerDirectory interface {
	Lookup(ctx context.Context, id int64) (customers.Customer, error)
}

// Ledger is the part of the inventory ledger the workflow drives.
type Ledger interface {
	Available(ctx context.Context, stockID int64) (clothstock.StockLot, error)
	Consume(ctx context.Context, stockID int64, meters decimal.Decimal, uc clothstock.UsageContext, actor string) (clothstock.UsageRecord, error)
	RecordUsage(ctx context.Context, stockID int64, meters decimal.Decimal, uc clothstock.UsageContext, actor string) (clothstock.UsageRecord, error)
}

// Transactor runs fn inside a unit of work. Nested calls join the outer one.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service runs the order workflow.
type Service struct {
	repo      Repository
	customers CustomerDirectory
	ledger    Ledger
	tx        Transactor
	now       func() time.Time
}

// NewService constructs the order workflow.
func NewService(repo Repository, customers CustomerDirectory, ledger Ledger, tx Transactor) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		ledger:    ledger,
		tx:        tx,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder validates the customer and every cloth item, allocates the next
// order number and consumes the cloth. Everything happens in one transaction:
// on any failure neither the order nor a ledger change remains.
func (s *Service) CreateOrder(ctx context.Context, in CreateInput, actor string) (CreateResult, error) {
	in.OrderType = strings.TrimSpace(in.OrderType)
	in.Priority = strings.TrimSpace(in.Priority)
	if in.OrderType == "" || in.Priority == "" {
		return CreateResult{}, fmt.Errorf("%w: order_type and priority are required", shared.ErrInvalidInput)
	}
	if in.Price.IsNegative() || in.AdvanceAmount.IsNegative() {
		return CreateResult{}, fmt.Errorf("%w: price and advance_amount cannot be negative", shared.ErrInvalidInput)
	}
	if err := clothstock.CheckPrecision("price", in.Price, clothstock.PricePlaces); err != nil {
		return CreateResult{}, err
	}
	if err := clothstock.CheckPrecision("advance_amount", in.AdvanceAmount, clothstock.PricePlaces); err != nil {
		return CreateResult{}, err
	}
	deliveryDate, err := time.Parse("2006-01-02", in.DeliveryDate)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: delivery_date must be YYYY-MM-DD", shared.ErrInvalidInput)
	}

	var result CreateResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		customer, err := s.customers.Lookup(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		if err := s.checkAvailability(ctx, in.ClothItems); err != nil {
			return err
		}

		now := s.now()
		seq, err := s.repo.NextSequence(ctx, now.Year())
		if err != nil {
			return fmt.Errorf("orders: next order number: %w", err)
		}
		measurements := in.Measurements
		if len(measurements) == 0 {
			measurements = map[string]any(customer.Measurements)
		}
		if measurements == nil {
			measurements = map[string]any{}
		}
		order := Order{
			OrderNumber:          FormatOrderNumber(now.Year(), seq),
			CustomerID:           customer.ID,
			CustomerName:         customer.Name,
			CustomerMobile:       customer.Mobile,
			OrderType:            in.OrderType,
			Price:                in.Price,
			AdvanceAmount:        in.AdvanceAmount,
			MeasurementsSnapshot: measurements,
			ClothItems:           append([]ClothItem(nil), in.ClothItems...),
			DeliveryDate:         deliveryDate,
			Priority:             in.Priority,
			Status:               StatusReceived,
			StatusHistory:        []HistoryEntry{{Status: StatusReceived, ChangedAt: now, ChangedBy: actor}},
			IsActive:             true,
			CreatedBy:            actor,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := s.repo.Insert(ctx, &order); err != nil {
			return err
		}
		for _, item := range order.ClothItems {
			uc := clothstock.ForOrder(order.ID, clothstock.StageOrderCreated)
			if _, err := s.ledger.Consume(ctx, item.StockID, item.MetersUsed, uc, actor); err != nil {
				return err
			}
		}
		result = CreateResult{OrderID: order.ID, OrderNumber: order.OrderNumber}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}
	return result, nil
}

// checkAvailability rejects the request before any mutation when an item is
// malformed, names a missing lot, or asks for more than a lot holds. Items
// naming the same lot are summed.
func (s *Service) checkAvailability(ctx context.Context, items []ClothItem) error {
	requested := make(map[int64]decimal.Decimal, len(items))
	order := make([]int64, 0, len(items))
	for _, item := range items {
		if err := clothstock.CheckMeters(fmt.Sprintf("meters_used for stock lot %d", item.StockID), item.MetersUsed); err != nil {
			return err
		}
		if _, seen := requested[item.StockID]; !seen {
			order = append(order, item.StockID)
		}
		requested[item.StockID] = requested[item.StockID].Add(item.MetersUsed)
	}
	for _, stockID := range order {
		lot, err := s.ledger.Available(ctx, stockID)
		if err != nil {
			return err
		}
		if requested[stockID].GreaterThan(lot.RemainingMeters) {
			return fmt.Errorf("%w: not enough cloth for %s (requested %s, remaining %s)",
				shared.ErrInsufficientStock, lot.ClothType, requested[stockID], lot.RemainingMeters)
		}
	}
	return nil
}

// AdvanceStatus sets any recognised status except Ready. Moves are not
// restricted to the forward direction.
func (s *Service) AdvanceStatus(ctx context.Context, orderID int64, raw string, actor string) error {
	status, ok := ParseStatus(strings.TrimSpace(raw))
	if !ok {
		return fmt.Errorf("%w: invalid status %q", shared.ErrInvalidInput, raw)
	}
	if status == StatusReady {
		return fmt.Errorf("%w: use mark-ready to set Ready", shared.ErrInvalidInput)
	}
	err := s.repo.Transition(ctx, orderID, "", status, actor, s.now())
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: order %d", shared.ErrNotFound, orderID)
	}
	return err
}

// MarkReady moves a Finishing order to Ready once confirmed. Each cloth item
// is logged again with stage Ready; the ledger balance is not touched.
func (s *Service) MarkReady(ctx context.Context, orderID int64, confirmed bool, actor string) error {
	if !confirmed {
		return fmt.Errorf("%w: confirmation required", shared.ErrInvalidInput)
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusFinishing {
			return fmt.Errorf("%w: order %s is %s, not %s", shared.ErrInvalidState, order.OrderNumber, order.Status, StatusFinishing)
		}
		if err := s.repo.Transition(ctx, orderID, StatusFinishing, StatusReady, actor, s.now()); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("%w: order %s changed concurrently", shared.ErrInvalidState, order.OrderNumber)
			}
			return err
		}
		for _, item := range order.ClothItems {
			uc := clothstock.ForOrder(orderID, clothstock.StageReady)
			if _, err := s.ledger.RecordUsage(ctx, item.StockID, item.MetersUsed, uc, actor); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns an active order.
func (s *Service) Get(ctx context.Context, orderID int64) (Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Order{}, fmt.Errorf("%w: order %d", shared.ErrNotFound, orderID)
		}
		return Order{}, err
	}
	if !order.IsActive {
		return Order{}, fmt.Errorf("%w: order %d", shared.ErrNotFound, orderID)
	}
	return order, nil
}

// List returns active orders, newest first.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Order, error) {
	if filters.Status != "" {
		if _, ok := ParseStatus(string(filters.Status)); !ok {
			return nil, fmt.Errorf("%w: invalid status %q", shared.ErrInvalidInput, filters.Status)
		}
	}
	return s.repo.List(ctx, filters)
}

// Deactivate soft-deletes an order. Its cloth stays consumed.
func (s *Service) Deactivate(ctx context.Context, orderID int64) error {
	err := s.repo.Deactivate(ctx, orderID, s.now())
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: order %d", shared.ErrNotFound, orderID)
	}
	return err
}

// FormatOrderNumber renders the human-readable order number.
func FormatOrderNumber(year int, seq int64) string {
	return fmt.Sprintf("ORD-%d-%04d", year, seq)
}
