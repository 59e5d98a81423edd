package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the rollup queries.
type Repository interface {
	Income(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	PendingAmount(ctx context.Context) (decimal.Decimal, error)
	Stock(ctx context.Context, lowStockBelow int) (StockSummary, error)
	ActiveCustomers(ctx context.Context) (int64, error)
	ExpensesByType(ctx context.Context, from, to time.Time) (map[string]decimal.Decimal, error)
	MonthlyIncome(ctx context.Context, year int) (map[int]decimal.Decimal, error)
	MonthlyExpense(ctx context.Context, year int) (map[int]decimal.Decimal, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the dashboard repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Income(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(paid_amount), 0) FROM payments
WHERE created_at >= $1 AND created_at < $2`, from, to).Scan(&total)
	return total, err
}

func (r *PGRepository) PendingAmount(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(remaining_amount), 0) FROM payments
WHERE status IN ('Partial', 'Unpaid')`).Scan(&total)
	return total, err
}

func (r *PGRepository) Stock(ctx context.Context, lowStockBelow int) (StockSummary, error) {
	var s StockSummary
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(remaining_meters), 0), COUNT(*) FILTER (WHERE remaining_meters < $1)
FROM cloth_stock WHERE is_active`, lowStockBelow).Scan(&s.TotalRemainingMeters, &s.LowStockItems)
	return s, err
}

func (r *PGRepository) ActiveCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE is_active`).Scan(&n)
	return n, err
}

func (r *PGRepository) ExpensesByType(ctx context.Context, from, to time.Time) (map[string]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT expense_type, SUM(amount) FROM expenses
WHERE created_at >= $1 AND created_at < $2
GROUP BY expense_type`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]decimal.Decimal{}
	for rows.Next() {
		var (
			kind  string
			total decimal.Decimal
		)
		if err := rows.Scan(&kind, &total); err != nil {
			return nil, err
		}
		out[kind] = total
	}
	return out, rows.Err()
}

func (r *PGRepository) MonthlyIncome(ctx context.Context, year int) (map[int]decimal.Decimal, error) {
	return r.monthly(ctx, `SELECT EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int, SUM(paid_amount) FROM payments
WHERE created_at >= $1 AND created_at < $2
GROUP BY 1`, year)
}

func (r *PGRepository) MonthlyExpense(ctx context.Context, year int) (map[int]decimal.Decimal, error) {
	return r.monthly(ctx, `SELECT EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int, SUM(amount) FROM expenses
WHERE created_at >= $1 AND created_at < $2
GROUP BY 1`, year)
}

func (r *PGRepository) monthly(ctx context.Context, query string, year int) (map[int]decimal.Decimal, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := r.pool.Query(ctx, query, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int]decimal.Decimal{}
	for rows.Next() {
		var (
			month int
			total decimal.Decimal
		)
		if err := rows.Scan(&month, &total); err != nil {
			return nil, err
		}
		out[month] = total
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
