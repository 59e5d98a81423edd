package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is a stage of an order's fulfilment.
type Status string

const (
	StatusReceived  Status = "Received"
	StatusCutting   Status = "Cutting"
	StatusStitching Status = "Stitching"
	StatusFinishing Status = "Finishing"
	StatusReady     Status = "Ready"
	StatusDelivered Status = "Delivered"
)

var statuses = []Status{StatusReceived, StatusCutting, StatusStitching, StatusFinishing, StatusReady, StatusDelivered}

// Statuses returns every status in forward order.
func Statuses() []Status {
	return append([]Status(nil), statuses...)
}

// ParseStatus recognises a status name.
func ParseStatus(raw string) (Status, bool) {
	for _, st := range statuses {
		if string(st) == raw {
			return st, true
		}
	}
	return "", false
}

// ReservingStatuses are the statuses whose cloth allocation is still held by
// the workshop and counted as reserved by stock reconciliation.
func ReservingStatuses() []string {
	return []string{string(StatusReceived), string(StatusCutting), string(StatusStitching), string(StatusFinishing)}
}

// ClothItem is the cloth an order takes from one stock lot.
type ClothItem struct {
	StockID    int64           `json:"cloth_stock_id" validate:"required,gt=0"`
	MetersUsed decimal.Decimal `json:"meters_used"`
}

// HistoryEntry records one status change.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy string    `json:"changed_by"`
}

// Order is a customer work order. Cloth items and the measurement snapshot
// are fixed at creation.
type Order struct {
	ID                   int64           `json:"id"`
	OrderNumber          string          `json:"order_number"`
	CustomerID           int64           `json:"customer_id"`
	CustomerName         string          `json:"customer_name"`
	CustomerMobile       string          `json:"customer_mobile"`
	OrderType            string          `json:"order_type"`
	Price                decimal.Decimal `json:"price"`
	AdvanceAmount        decimal.Decimal `json:"advance_amount"`
	MeasurementsSnapshot map[string]any  `json:"measurements_snapshot"`
	ClothItems           []ClothItem     `json:"cloth_items"`
	DeliveryDate         time.Time       `json:"delivery_date"`
	Priority             string          `json:"priority"`
	Status               Status          `json:"status"`
	StatusHistory        []HistoryEntry  `json:"status_history"`
	ReadyAt              *time.Time      `json:"ready_at,omitempty"`
	IsActive             bool            `json:"is_active"`
	CreatedBy            string          `json:"created_by"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// CreateInput is the request to open an order.
type CreateInput struct {
	CustomerID    int64           `json:"customer_id" validate:"required,gt=0"`
	OrderType     string          `json:"order_type" validate:"required,max=80"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	AdvanceAmount decimal.Decimal `json:"advance_amount" validate:"gte=0"`
	Measurements  map[string]any  `json:"measurements"`
	ClothItems    []ClothItem     `json:"cloth_items" validate:"dive"`
	DeliveryDate  string          `json:"delivery_date" validate:"required,datetime=2006-01-02"`
	Priority      string          `json:"priority" validate:"required,max=40"`
}

// CreateResult identifies a newly created order.
type CreateResult struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

// ListFilters narrows the order list. Zero values match everything.
type ListFilters struct {
	CustomerID int64
	Status     Status
}
