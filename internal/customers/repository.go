package customers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/silaibook/silaibook/internal/platform/db"
	"github.com/silaibook/silaibook/internal/shared"
)

// Repository persists customers.
type Repository interface {
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, in CreateInput) (Customer, error)
	List(ctx context.Context, filters ListFilters) ([]Customer, error)
	Update(ctx context.Context, id int64, in UpdateInput) error
	Deactivate(ctx context.Context, id int64) error
	Count(ctx context.Context, activeOnly bool) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the customer repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const customerColumns = `id, name, mobile, COALESCE(category, ''), COALESCE(photo_url, ''), measurements, is_active, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c    Customer
		meas []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Mobile, &c.Category, &c.PhotoURL, &meas, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Customer{}, err
	}
	c.Measurements = Measurements{}
	if len(meas) > 0 {
		if err := json.Unmarshal(meas, &c.Measurements); err != nil {
			return Customer{}, fmt.Errorf("customers: decode measurements: %w", err)
		}
	}
	return c, nil
}

// Get returns the customer regardless of its active flag. It reads through the
// transaction in ctx when one is open.
func (r *PGRepository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return Customer{}, db.MapError(err)
	}
	return c, nil
}

func (r *PGRepository) Create(ctx context.Context, in CreateInput) (Customer, error) {
	meas, err := json.Marshal(nonNil(in.Measurements))
	if err != nil {
		return Customer{}, err
	}
	c, err := scanCustomer(r.pool.QueryRow(ctx, `INSERT INTO customers (name, mobile, category, photo_url, measurements)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
RETURNING `+customerColumns, in.Name, in.Mobile, in.Category, in.PhotoURL, meas))
	if err != nil {
		return Customer{}, db.MapError(err)
	}
	return c, nil
}

func (r *PGRepository) List(ctx context.Context, filters ListFilters) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE is_active
  AND ($1 = '' OR strpos(lower(name), lower($1)) > 0 OR strpos(mobile, $1) > 0)
ORDER BY created_at DESC, id DESC`, filters.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, id int64, in UpdateInput) error {
	var meas []byte
	if in.Measurements != nil {
		encoded, err := json.Marshal(in.Measurements)
		if err != nil {
			return err
		}
		meas = encoded
	}
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET
    name = COALESCE($2, name),
    mobile = COALESCE($3, mobile),
    category = COALESCE($4, category),
    photo_url = COALESCE($5, photo_url),
    measurements = COALESCE($6::jsonb, measurements),
    updated_at = NOW()
WHERE id = $1 AND is_active`, id, in.Name, in.Mobile, in.Category, in.PhotoURL, meas)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE customers SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Count(ctx context.Context, activeOnly bool) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE NOT $1 OR is_active`, activeOnly).Scan(&n)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	return n, nil
}

func nonNil(m Measurements) Measurements {
	if m == nil {
		return Measurements{}
	}
	return m
}

var _ Repository = (*PGRepository)(nil)
