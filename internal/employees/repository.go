package employees

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/platform/db"
	"github.com/silaibook/silaibook/internal/shared"
)

// Repository persists employees. Every method except Create ignores inactive
// rows.
type Repository interface {
	Create(ctx context.Context, in CreateInput) (Employee, error)
	Get(ctx context.Context, id int64) (Employee, error)
	List(ctx context.Context) ([]Employee, error)
	Update(ctx context.Context, id int64, in UpdateInput) error
	AddAdvance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)
	Deactivate(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the employee repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const employeeColumns = `id, name, contact, work_type, salary_type, salary_amount, advance_paid, is_active, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Name, &e.Contact, &e.WorkType, &e.SalaryType, &e.SalaryAmount, &e.AdvancePaid,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *PGRepository) Create(ctx context.Context, in CreateInput) (Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, `INSERT INTO employees (name, contact, work_type, salary_type, salary_amount, advance_paid)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+employeeColumns, in.Name, in.Contact, in.WorkType, in.SalaryType, in.SalaryAmount, in.AdvancePaid))
	if err != nil {
		return Employee{}, db.MapError(err)
	}
	return e, nil
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1 AND is_active`, id))
	if err != nil {
		return Employee{}, db.MapError(err)
	}
	return e, nil
}

func (r *PGRepository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees WHERE is_active ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, id int64, in UpdateInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET
    name = COALESCE($2, name),
    contact = COALESCE($3, contact),
    work_type = COALESCE($4, work_type),
    salary_type = COALESCE($5, salary_type),
    salary_amount = COALESCE($6, salary_amount),
    advance_paid = COALESCE($7, advance_paid),
    updated_at = NOW()
WHERE id = $1 AND is_active`, id, in.Name, in.Contact, in.WorkType, in.SalaryType, in.SalaryAmount, in.AdvancePaid)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AddAdvance increments the advance in one statement and returns the new total.
func (r *PGRepository) AddAdvance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `UPDATE employees SET advance_paid = advance_paid + $2, updated_at = NOW()
WHERE id = $1 AND is_active
RETURNING advance_paid`, id, amount).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, db.MapError(err)
	}
	return total, nil
}

func (r *PGRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE employees SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
