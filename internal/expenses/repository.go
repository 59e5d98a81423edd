package expenses

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/platform/db"
)

// Repository persists expenses.
type Repository interface {
	Insert(ctx context.Context, e Expense) (Expense, error)
	List(ctx context.Context, filters ListFilters) ([]Expense, error)
	Total(ctx context.Context, w Window) (decimal.Decimal, error)
	ByCategory(ctx context.Context, w Window) ([]CategoryTotal, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the expense repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const expenseColumns = `id, amount, category, expense_type, payment_mode, COALESCE(remarks, ''), COALESCE(description, ''), owner_id, COALESCE(owner_name, ''), created_by, created_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Amount, &e.Category, &e.ExpenseType, &e.PaymentMode, &e.Remarks, &e.Description,
		&e.OwnerID, &e.OwnerName, &e.CreatedBy, &e.CreatedAt)
	return e, err
}

// Insert joins the transaction in ctx so owner drawings commit with the
// owner's balance.
func (r *PGRepository) Insert(ctx context.Context, e Expense) (Expense, error) {
	out, err := scanExpense(db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO expenses
    (amount, category, expense_type, payment_mode, remarks, description, owner_id, owner_name, created_by)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), $9)
RETURNING `+expenseColumns,
		e.Amount, e.Category, e.ExpenseType, e.PaymentMode, e.Remarks, e.Description, e.OwnerID, e.OwnerName, e.CreatedBy))
	if err != nil {
		return Expense{}, db.MapError(err)
	}
	return out, nil
}

func (r *PGRepository) List(ctx context.Context, f ListFilters) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+expenseColumns+` FROM expenses
WHERE ($1 = '' OR expense_type = $1)
  AND ($2 = '' OR category = $2)
  AND ($3 = '' OR payment_mode = $3)
ORDER BY created_at DESC, id DESC`, f.ExpenseType, f.Category, f.PaymentMode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGRepository) Total(ctx context.Context, w Window) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses
WHERE created_at >= $1 AND created_at < $2 AND ($3 = '' OR expense_type = $3)`, w.From, w.To, w.ExpenseType).Scan(&total)
	return total, err
}

func (r *PGRepository) ByCategory(ctx context.Context, w Window) ([]CategoryTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT category, SUM(amount) FROM expenses
WHERE created_at >= $1 AND created_at < $2 AND ($3 = '' OR expense_type = $3)
GROUP BY category
ORDER BY category`, w.From, w.To, w.ExpenseType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CategoryTotal{}
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
