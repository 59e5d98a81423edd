package dashboard

import "github.com/shopspring/decimal"

// LowStockThreshold matches the ledger's low-stock cut-off.
const LowStockThreshold = 10

// StockSummary totals the active cloth stock.
type StockSummary struct {
	TotalRemainingMeters decimal.Decimal `json:"total_remaining_meters"`
	LowStockItems        int64           `json:"low_stock_items"`
}

// ProfitLoss is one month's income against its expenses.
type ProfitLoss struct {
	Year         int                        `json:"year"`
	Month        int                        `json:"month"`
	Income       decimal.Decimal            `json:"income"`
	Expenses     map[string]decimal.Decimal `json:"expenses"`
	TotalExpense decimal.Decimal            `json:"total_expense"`
	Profit       decimal.Decimal            `json:"profit"`
}

// MonthTotals is one point of the yearly trend.
type MonthTotals struct {
	Month   int             `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Profit  decimal.Decimal `json:"profit"`
}

// YearlyTrend holds twelve months, January first.
type YearlyTrend struct {
	Year   int           `json:"year"`
	Months []MonthTotals `json:"months"`
}
