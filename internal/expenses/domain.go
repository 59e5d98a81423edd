package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense types recorded by the owners module rather than by hand.
const (
	TypeWithdrawal = "Withdrawal"
	TypeDeposit    = "Deposit"
)

// DrawingsCategory is the category of owner withdrawals and deposits.
const DrawingsCategory = "Salary/Drawings"

// Expense is money spent by the shop.
type Expense struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	ExpenseType string          `json:"expense_type"`
	PaymentMode string          `json:"payment_mode"`
	Remarks     string          `json:"remarks,omitempty"`
	Description string          `json:"description,omitempty"`
	OwnerID     *int64          `json:"owner_id,omitempty"`
	OwnerName   string          `json:"owner_name,omitempty"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreateInput records an expense by hand.
type CreateInput struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Category    string          `json:"category" validate:"required,max=80"`
	ExpenseType string          `json:"expense_type" validate:"required,max=40"`
	PaymentMode string          `json:"payment_mode" validate:"required,max=20"`
	Remarks     string          `json:"remarks" validate:"max=500"`
}

// ListFilters narrows the expense list. Empty values match everything.
type ListFilters struct {
	ExpenseType string
	Category    string
	PaymentMode string
}

// Window selects expenses created in [From, To), optionally of one type.
type Window struct {
	From        time.Time
	To          time.Time
	ExpenseType string
}

// CategoryTotal is one row of the monthly breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// MonthlySummary is the per-category breakdown of one month.
type MonthlySummary struct {
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	ExpenseType string          `json:"expense_type"`
	Breakdown   []CategoryTotal `json:"breakdown"`
}
