package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/silaibook/silaibook/internal/clothstock"
	"github.com/silaibook/silaibook/internal/customers"
	"github.com/silaibook/silaibook/internal/shared"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// ============================================================================
// WORKFLOW SUITE
// ============================================================================

type WorkflowSuite struct {
	suite.Suite
	store   *store
	ledger  *fakeLedger
	service *Service
	ctx     context.Context
}

func (s *WorkflowSuite) SetupTest() {
	s.store = newStore()
	s.ledger = &fakeLedger{store: s.store}
	s.service = NewService(fakeRepo{store: s.store}, fakeCustomers{store: s.store}, s.ledger, fakeTx{store: s.store})
	s.service.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	s.ctx = context.Background()

	s.store.customers[1] = customers.Customer{ID: 1, Name: "Anita", Mobile: "9876543210", IsActive: true,
		Measurements: customers.Measurements{"chest": 36.0}}
	s.store.customers[2] = customers.Customer{ID: 2, Name: "Gone", Mobile: "9000000000", IsActive: false}
	s.addLot(1, "Cotton", "50")
}

func (s *WorkflowSuite) addLot(id int64, cloth, remaining string) {
	s.store.lots[id] = lot(id, cloth, remaining)
}

func (s *WorkflowSuite) input(items ...ClothItem) CreateInput {
	return CreateInput{
		CustomerID: 1, OrderType: "Blouse", Price: d("800"), AdvanceAmount: d("200"),
		ClothItems: items, DeliveryDate: "2025-03-30", Priority: "Normal",
	}
}

func item(stockID int64, meters string) ClothItem {
	return ClothItem{StockID: stockID, MetersUsed: d(meters)}
}

func (s *WorkflowSuite) remaining(stockID int64) decimal.Decimal {
	return s.store.lots[stockID].RemainingMeters
}

func (s *WorkflowSuite) advanceTo(orderID int64, st Status) {
	for _, next := range []Status{StatusCutting, StatusStitching, StatusFinishing} {
		s.Require().NoError(s.service.AdvanceStatus(s.ctx, orderID, string(next), "asha"))
		if next == st {
			return
		}
	}
}

// ----------------------------------------------------------------------------
// CreateOrder
// ----------------------------------------------------------------------------

func (s *WorkflowSuite) TestDeliverThenOrderScenario() {
	s.addLot(1, "Cotton", "70")

	res, err := s.service.CreateOrder(s.ctx, s.input(item(1, "30")), "ravi")
	s.Require().NoError(err)
	s.Equal("ORD-2025-0001", res.OrderNumber)
	s.True(s.remaining(1).Equal(d("40")))

	_, err = s.service.CreateOrder(s.ctx, s.input(item(1, "50")), "ravi")
	s.ErrorIs(err, shared.ErrInsufficientStock)
	s.True(s.remaining(1).Equal(d("40")))
	s.Len(s.store.orders, 1)
}

func (s *WorkflowSuite) TestCreatePersistsSnapshotAndHistory() {
	res, err := s.service.CreateOrder(s.ctx, s.input(item(1, "2.5")), "ravi")
	s.Require().NoError(err)

	order, err := s.service.Get(s.ctx, res.OrderID)
	s.Require().NoError(err)
	s.Equal(StatusReceived, order.Status)
	s.Equal("Anita", order.CustomerName)
	s.Equal("9876543210", order.CustomerMobile)
	s.Equal(36.0, order.MeasurementsSnapshot["chest"], "falls back to the customer profile")
	s.Require().Len(order.StatusHistory, 1)
	s.Equal(HistoryEntry{Status: StatusReceived, ChangedAt: s.service.now(), ChangedBy: "ravi"}, order.StatusHistory[0])
	s.Equal("2025-03-30", order.DeliveryDate.Format("2006-01-02"))

	s.Require().Len(s.store.usage, 1)
	rec := s.store.usage[0]
	s.Equal(clothstock.StageOrderCreated, rec.Stage)
	s.Equal(clothstock.UsageOrder, rec.Kind)
	s.Equal(res.OrderID, *rec.OrderID)

	in := s.input(item(1, "1"))
	in.Measurements = map[string]any{"waist": 30.0}
	res, err = s.service.CreateOrder(s.ctx, in, "ravi")
	s.Require().NoError(err)
	second, err := s.service.Get(s.ctx, res.OrderID)
	s.Require().NoError(err)
	s.Equal(map[string]any{"waist": 30.0}, second.MeasurementsSnapshot)
	s.Equal("ORD-2025-0002", second.OrderNumber)
}

func (s *WorkflowSuite) TestCreateValidatesAllItemsBeforeMutating() {
	s.addLot(2, "Silk", "5")

	_, err := s.service.CreateOrder(s.ctx, s.input(item(1, "10"), item(2, "6")), "ravi")
	s.ErrorIs(err, shared.ErrInsufficientStock)
	s.True(s.remaining(1).Equal(d("50")))
	s.True(s.remaining(2).Equal(d("5")))
	s.Empty(s.store.orders)
	s.Empty(s.store.usage)
	s.Empty(s.store.counters)
}

func (s *WorkflowSuite) TestCreateSumsItemsOnSameLot() {
	_, err := s.service.CreateOrder(s.ctx, s.input(item(1, "30"), item(1, "25")), "ravi")
	s.ErrorIs(err, shared.ErrInsufficientStock)
	s.True(s.remaining(1).Equal(d("50")))

	_, err = s.service.CreateOrder(s.ctx, s.input(item(1, "30"), item(1, "20")), "ravi")
	s.Require().NoError(err)
	s.True(s.remaining(1).IsZero())
}

func (s *WorkflowSuite) TestCreateErrors() {
	in := s.input(item(1, "1"))
	in.CustomerID = 2
	_, err := s.service.CreateOrder(s.ctx, in, "ravi")
	s.ErrorIs(err, shared.ErrNotFound, "inactive customer")

	in.CustomerID = 99
	_, err = s.service.CreateOrder(s.ctx, in, "ravi")
	s.ErrorIs(err, shared.ErrNotFound, "missing customer")

	_, err = s.service.CreateOrder(s.ctx, s.input(item(404, "1")), "ravi")
	s.ErrorIs(err, shared.ErrNotFound, "missing lot")

	_, err = s.service.CreateOrder(s.ctx, s.input(item(1, "0")), "ravi")
	s.ErrorIs(err, shared.ErrInvalidInput)

	in = s.input(item(1, "1"))
	in.DeliveryDate = "30/03/2025"
	_, err = s.service.CreateOrder(s.ctx, in, "ravi")
	s.ErrorIs(err, shared.ErrInvalidInput)

	in = s.input(item(1, "1"))
	in.Price = d("-1")
	_, err = s.service.CreateOrder(s.ctx, in, "ravi")
	s.ErrorIs(err, shared.ErrInvalidInput)

	_, err = s.service.CreateOrder(s.ctx, s.input(item(1, "0.0001")), "ravi")
	s.ErrorIs(err, shared.ErrInvalidInput, "meters finer than millimeters")

	in = s.input(item(1, "1"))
	in.Price = d("10.005")
	_, err = s.service.CreateOrder(s.ctx, in, "ravi")
	s.ErrorIs(err, shared.ErrInvalidInput, "price finer than paise")

	in = s.input(item(1, "1"))
	in.AdvanceAmount = d("0.001")
	_, err = s.service.CreateOrder(s.ctx, in, "ravi")
	s.ErrorIs(err, shared.ErrInvalidInput, "advance finer than paise")

	s.Empty(s.store.orders)
	s.Empty(s.store.usage)
	s.True(s.remaining(1).Equal(d("50")))
}

func (s *WorkflowSuite) TestCreateRollsBackWhenConsumeFails() {
	s.addLot(2, "Silk", "5")
	boom := errors.New("ledger unavailable")
	s.ledger.consumeErr = boom

	_, err := s.service.CreateOrder(s.ctx, s.input(item(1, "10"), item(2, "1")), "ravi")
	s.ErrorIs(err, boom)
	s.Empty(s.store.orders)
	s.Empty(s.store.usage)
	s.True(s.remaining(1).Equal(d("50")))
	s.Empty(s.store.counters, "order number is not burnt")
}

// ----------------------------------------------------------------------------
// AdvanceStatus
// ----------------------------------------------------------------------------

func (s *WorkflowSuite) TestAdvanceStatus() {
	res, err := s.service.CreateOrder(s.ctx, s.input(item(1, "1")), "ravi")
	s.Require().NoError(err)

	s.ErrorIs(s.service.AdvanceStatus(s.ctx, res.OrderID, "Ironing", "asha"), shared.ErrInvalidInput)
	s.ErrorIs(s.service.AdvanceStatus(s.ctx, res.OrderID, "Ready", "asha"), shared.ErrInvalidInput)
	s.ErrorIs(s.service.AdvanceStatus(s.ctx, 404, "Cutting", "asha"), shared.ErrNotFound)

	s.Require().NoError(s.service.AdvanceStatus(s.ctx, res.OrderID, "Stitching", "asha"))
	s.Require().NoError(s.service.AdvanceStatus(s.ctx, res.OrderID, "Cutting", "asha"), "backwards moves are allowed")
	s.Require().NoError(s.service.AdvanceStatus(s.ctx, res.OrderID, "Delivered", "asha"))

	order, err := s.service.Get(s.ctx, res.OrderID)
	s.Require().NoError(err)
	s.Equal(StatusDelivered, order.Status)
	s.Len(order.StatusHistory, 4)
	s.Equal("asha", order.StatusHistory[3].ChangedBy)

	s.Require().NoError(s.service.Deactivate(s.ctx, res.OrderID))
	s.ErrorIs(s.service.AdvanceStatus(s.ctx, res.OrderID, "Cutting", "asha"), shared.ErrNotFound)
	s.ErrorIs(s.service.Deactivate(s.ctx, res.OrderID), shared.ErrNotFound)
}

// ----------------------------------------------------------------------------
// MarkReady
// ----------------------------------------------------------------------------

func (s *WorkflowSuite) TestMarkReadyScenario() {
	s.addLot(2, "Silk", "5")
	res, err := s.service.CreateOrder(s.ctx, s.input(item(1, "3"), item(2, "2")), "ravi")
	s.Require().NoError(err)
	s.advanceTo(res.OrderID, StatusFinishing)

	s.ErrorIs(s.service.MarkReady(s.ctx, res.OrderID, false, "asha"), shared.ErrInvalidInput)

	usageBefore := len(s.store.usage)
	s.Require().NoError(s.service.MarkReady(s.ctx, res.OrderID, true, "asha"))

	order, err := s.service.Get(s.ctx, res.OrderID)
	s.Require().NoError(err)
	s.Equal(StatusReady, order.Status)
	s.Require().NotNil(order.ReadyAt)
	s.Len(order.StatusHistory, 5)
	s.Equal(StatusReady, order.StatusHistory[4].Status)

	ready := s.store.usage[usageBefore:]
	s.Require().Len(ready, 2)
	for _, rec := range ready {
		s.Equal(clothstock.StageReady, rec.Stage)
	}
	s.True(s.remaining(1).Equal(d("47")), "no second deduction")
	s.True(s.remaining(2).Equal(d("3")))

	err = s.service.MarkReady(s.ctx, res.OrderID, true, "asha")
	s.ErrorIs(err, shared.ErrInvalidState)
	s.Len(s.store.usage, usageBefore+2)
}

func (s *WorkflowSuite) TestMarkReadyRequiresFinishing() {
	res, err := s.service.CreateOrder(s.ctx, s.input(item(1, "3")), "ravi")
	s.Require().NoError(err)

	for _, st := range []Status{StatusReceived, StatusCutting, StatusStitching, StatusDelivered} {
		if st != StatusReceived {
			s.Require().NoError(s.service.AdvanceStatus(s.ctx, res.OrderID, string(st), "asha"))
		}
		err := s.service.MarkReady(s.ctx, res.OrderID, true, "asha")
		s.ErrorIs(err, shared.ErrInvalidState, fmt.Sprintf("from %s", st))
	}
	s.ErrorIs(s.service.MarkReady(s.ctx, 404, true, "asha"), shared.ErrNotFound)
}

// ----------------------------------------------------------------------------
// Listing
// ----------------------------------------------------------------------------

func (s *WorkflowSuite) TestListFilters() {
	first, err := s.service.CreateOrder(s.ctx, s.input(item(1, "1")), "ravi")
	s.Require().NoError(err)
	second, err := s.service.CreateOrder(s.ctx, s.input(item(1, "1")), "ravi")
	s.Require().NoError(err)
	s.Require().NoError(s.service.AdvanceStatus(s.ctx, first.OrderID, "Cutting", "asha"))

	all, err := s.service.List(s.ctx, ListFilters{CustomerID: 1})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(second.OrderID, all[0].ID)

	cutting, err := s.service.List(s.ctx, ListFilters{Status: StatusCutting})
	s.Require().NoError(err)
	s.Require().Len(cutting, 1)
	s.Equal(first.OrderID, cutting[0].ID)

	_, err = s.service.List(s.ctx, ListFilters{Status: "Lost"})
	s.ErrorIs(err, shared.ErrInvalidInput)
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func TestStatusHelpers(t *testing.T) {
	st, ok := ParseStatus("Finishing")
	require.True(t, ok)
	require.Equal(t, StatusFinishing, st)
	_, ok = ParseStatus("finishing")
	require.False(t, ok)
	require.Len(t, Statuses(), 6)
	require.Equal(t, []string{"Received", "Cutting", "Stitching", "Finishing"}, ReservingStatuses())
	require.Equal(t, "ORD-2025-0042", FormatOrderNumber(2025, 42))
	require.Equal(t, "ORD-2026-12345", FormatOrderNumber(2026, 12345))
}
