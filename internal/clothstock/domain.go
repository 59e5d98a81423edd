package clothstock

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/shared"
)

// Stored precision of NUMERIC(12,3) meters and NUMERIC(12,2) prices.
const (
	MeterPlaces = 3
	PricePlaces = 2
)

// CheckPrecision rejects v when it has more fractional digits than places.
// Trailing zeros do not count.
func CheckPrecision(field string, v decimal.Decimal, places int32) error {
	if !v.Equal(v.Truncate(places)) {
		return fmt.Errorf("%w: %s allows at most %d decimal places", shared.ErrInvalidInput, field, places)
	}
	return nil
}

// CheckMeters requires a positive meter amount the ledger can store exactly.
func CheckMeters(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", shared.ErrInvalidInput, field)
	}
	return CheckPrecision(field, v, MeterPlaces)
}

// LowStockThreshold is the remaining balance at or below which a lot is
// reported as low stock.
var LowStockThreshold = decimal.NewFromInt(10)

// UsageKind tells whether meters were used ad hoc or for an order.
type UsageKind string

const (
	UsageAdhoc UsageKind = "adhoc"
	UsageOrder UsageKind = "order"
)

// Stages recorded on order usage.
const (
	StageOrderCreated = "Order Created"
	StageReady        = "Ready"
)

// StockLot is a batch of cloth from one dealer, type and price.
type StockLot struct {
	ID              int64           `json:"id"`
	DealerName      string          `json:"dealer_name"`
	ClothType       string          `json:"cloth_type"`
	PricePerMeter   decimal.Decimal `json:"price_per_meter"`
	TotalMeters     decimal.Decimal `json:"total_meters"`
	UsedMeters      decimal.Decimal `json:"used_meters"`
	RemainingMeters decimal.Decimal `json:"remaining_meters"`
	IsActive        bool            `json:"is_active"`
	PurchaseDate    time.Time       `json:"purchase_date"`
	CreatedAt       time.Time       `json:"created_at"`
	LastStockedAt   time.Time       `json:"last_stocked_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CreatedBy       string          `json:"created_by"`
}

// UsageContext describes why meters left a lot.
type UsageContext struct {
	Kind    UsageKind
	OrderID int64
	Stage   string
}

// Adhoc is the context of a free-standing use.
func Adhoc() UsageContext {
	return UsageContext{Kind: UsageAdhoc}
}

// ForOrder is the context of a use on behalf of an order at a given stage.
func ForOrder(orderID int64, stage string) UsageContext {
	return UsageContext{Kind: UsageOrder, OrderID: orderID, Stage: stage}
}

// UsageRecord is an append-only entry in the usage log.
type UsageRecord struct {
	ID              int64           `json:"id"`
	StockID         int64           `json:"stock_id"`
	UsedMeters      decimal.Decimal `json:"used_meters"`
	Kind            UsageKind       `json:"kind"`
	OrderID         *int64          `json:"order_id,omitempty"`
	Stage           string          `json:"stage,omitempty"`
	RemainingMeters decimal.Decimal `json:"remaining_meters"`
	UsedBy          string          `json:"used_by"`
	UsedAt          time.Time       `json:"used_at"`
	DealerName      string          `json:"dealer_name,omitempty"`
	ClothType       string          `json:"cloth_type,omitempty"`
}

// DeliveryInput is a cloth delivery from a dealer.
type DeliveryInput struct {
	DealerName    string          `json:"dealer_name" validate:"required,max=120"`
	ClothType     string          `json:"cloth_type" validate:"required,max=120"`
	PricePerMeter decimal.Decimal `json:"price_per_meter" validate:"gte=0"`
	TotalMeters   decimal.Decimal `json:"total_meters" validate:"gt=0"`
}

// DeliveryResult reports the lot a delivery landed in.
type DeliveryResult struct {
	Lot         StockLot
	Created     bool
	AddedMeters decimal.Decimal
}

// UpdateInput carries optional corrections to a lot.
type UpdateInput struct {
	DealerName      *string          `json:"dealer_name" validate:"omitempty,min=1,max=120"`
	ClothType       *string          `json:"cloth_type" validate:"omitempty,min=1,max=120"`
	PricePerMeter   *decimal.Decimal `json:"price_per_meter"`
	RemainingMeters *decimal.Decimal `json:"remaining_meters"`
}

// Empty reports whether the update changes nothing.
func (u UpdateInput) Empty() bool {
	return u.DealerName == nil && u.ClothType == nil && u.PricePerMeter == nil && u.RemainingMeters == nil
}

// ReconcileRow is the outcome of reconciling one lot.
type ReconcileRow struct {
	StockID         int64           `json:"stock_id"`
	DealerName      string          `json:"dealer_name"`
	ClothType       string          `json:"cloth_type"`
	TotalMeters     decimal.Decimal `json:"total_meters"`
	RemainingMeters decimal.Decimal `json:"remaining_meters"`
	ReservedMeters  decimal.Decimal `json:"reserved_meters"`
	PreviousUsed    decimal.Decimal `json:"previous_used_meters"`
	UsedMeters      decimal.Decimal `json:"used_meters"`
}

// Changed reports whether reconciliation moved used_meters.
func (r ReconcileRow) Changed() bool {
	return !r.PreviousUsed.Equal(r.UsedMeters)
}
