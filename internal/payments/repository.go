package payments

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/silaibook/silaibook/internal/platform/db"
	"github.com/silaibook/silaibook/internal/shared"
)

// Repository persists payments.
type Repository interface {
	Insert(ctx context.Context, p Payment) (Payment, error)
	List(ctx context.Context, customerID int64) ([]Payment, error)
	Summary(ctx context.Context) ([]CustomerSummary, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the payment repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const paymentColumns = `id, customer_id, customer_name, total_bill, paid_amount, remaining_amount, status, payment_mode, due_date, created_by, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.CustomerID, &p.CustomerName, &p.TotalBill, &p.PaidAmount, &p.RemainingAmount,
		&p.Status, &p.PaymentMode, &p.DueDate, &p.CreatedBy, &p.CreatedAt)
	return p, err
}

func (r *PGRepository) Insert(ctx context.Context, p Payment) (Payment, error) {
	out, err := scanPayment(r.pool.QueryRow(ctx, `INSERT INTO payments
    (customer_id, customer_name, total_bill, paid_amount, remaining_amount, status, payment_mode, due_date, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+paymentColumns,
		p.CustomerID, p.CustomerName, p.TotalBill, p.PaidAmount, p.RemainingAmount, p.Status, p.PaymentMode, p.DueDate, p.CreatedBy))
	if err != nil {
		return Payment{}, db.MapError(err)
	}
	return out, nil
}

// List returns payments newest first. A zero customerID lists every customer.
func (r *PGRepository) List(ctx context.Context, customerID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments
WHERE $1::bigint = 0 OR customer_id = $1
ORDER BY created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Summary groups payments by customer, most recently paid first. The name and
// due date come from the latest payment.
func (r *PGRepository) Summary(ctx context.Context) ([]CustomerSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT customer_id,
       (array_agg(customer_name ORDER BY created_at DESC, id DESC))[1],
       SUM(total_bill),
       SUM(paid_amount),
       SUM(total_bill) - SUM(paid_amount),
       MAX(created_at),
       (array_agg(due_date ORDER BY created_at DESC, id DESC))[1]
FROM payments
GROUP BY customer_id
ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CustomerSummary{}
	for rows.Next() {
		var s CustomerSummary
		if err := rows.Scan(&s.CustomerID, &s.CustomerName, &s.TotalBill, &s.PaidAmount, &s.RemainingAmount,
			&s.LastPaymentDate, &s.DueDate); err != nil {
			return nil, err
		}
		s.Status = StatusFor(s.RemainingAmount)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
