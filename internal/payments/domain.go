package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status summarises how much of a bill is settled.
type Status string

const (
	StatusPaid    Status = "Paid"
	StatusPartial Status = "Partial"
)

// StatusFor returns Paid once nothing remains on the bill.
func StatusFor(remaining decimal.Decimal) Status {
	if remaining.Sign() <= 0 {
		return StatusPaid
	}
	return StatusPartial
}

// Payment is money received from a customer against a bill.
type Payment struct {
	ID              int64           `json:"id"`
	CustomerID      int64           `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	TotalBill       decimal.Decimal `json:"total_bill"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          Status          `json:"status"`
	PaymentMode     string          `json:"payment_mode"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CreateInput records a payment.
type CreateInput struct {
	CustomerID  int64           `json:"customer_id" validate:"required,gt=0"`
	TotalBill   decimal.Decimal `json:"total_bill" validate:"gte=0"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	PaymentMode string          `json:"payment_mode" validate:"max=20"`
	DueDate     string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// CustomerSummary aggregates every payment of one customer.
type CustomerSummary struct {
	CustomerID      int64           `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	TotalBill       decimal.Decimal `json:"total_bill"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          Status          `json:"status"`
	LastPaymentDate time.Time       `json:"last_payment_date"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
}
