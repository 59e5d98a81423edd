package owners

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/platform/db"
	"github.com/silaibook/silaibook/internal/shared"
)

// Repository persists owner profiles.
type Repository interface {
	Create(ctx context.Context, in CreateInput, actor string) (Owner, error)
	Get(ctx context.Context, id int64) (Owner, error)
	List(ctx context.Context) ([]Owner, error)
	Update(ctx context.Context, id int64, in UpdateInput) error
	Deactivate(ctx context.Context, id int64) error
	AdjustWithdrawn(ctx context.Context, id int64, delta decimal.Decimal) (Owner, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the owner repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const ownerColumns = `id, name, role, share_percentage, COALESCE(mobile, ''), COALESCE(email, ''), initial_investment,
    total_withdrawn, joined_date, is_active, created_by, created_at, updated_at`

func scanOwner(row pgx.Row) (Owner, error) {
	var o Owner
	err := row.Scan(&o.ID, &o.Name, &o.Role, &o.SharePercentage, &o.Mobile, &o.Email, &o.InitialInvestment,
		&o.TotalWithdrawn, &o.JoinedDate, &o.IsActive, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *PGRepository) Create(ctx context.Context, in CreateInput, actor string) (Owner, error) {
	o, err := scanOwner(r.pool.QueryRow(ctx, `INSERT INTO owners (name, role, share_percentage, mobile, email, initial_investment, joined_date, created_by)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, COALESCE($7, NOW()), $8)
RETURNING `+ownerColumns, in.Name, in.Role, in.SharePercentage, in.Mobile, in.Email, in.InitialInvestment, in.JoinedDate, actor))
	if err != nil {
		return Owner{}, db.MapError(err)
	}
	return o, nil
}

// Get returns the owner whether or not it is active.
func (r *PGRepository) Get(ctx context.Context, id int64) (Owner, error) {
	o, err := scanOwner(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = $1`, id))
	if err != nil {
		return Owner{}, db.MapError(err)
	}
	return o, nil
}

func (r *PGRepository) List(ctx context.Context) ([]Owner, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ownerColumns+` FROM owners WHERE is_active ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Owner{}
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, id int64, in UpdateInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE owners SET
    name = COALESCE($2, name),
    role = COALESCE($3, role),
    share_percentage = COALESCE($4, share_percentage),
    mobile = COALESCE($5, mobile),
    email = COALESCE($6, email),
    is_active = COALESCE($7, is_active),
    updated_at = NOW()
WHERE id = $1`, id, in.Name, in.Role, in.SharePercentage, in.Mobile, in.Email, in.IsActive)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE owners SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AdjustWithdrawn adds delta to an active owner's total and returns the row.
// It joins the transaction in ctx.
func (r *PGRepository) AdjustWithdrawn(ctx context.Context, id int64, delta decimal.Decimal) (Owner, error) {
	o, err := scanOwner(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE owners SET total_withdrawn = total_withdrawn + $2, updated_at = NOW()
WHERE id = $1 AND is_active
RETURNING `+ownerColumns, id, delta))
	if err != nil {
		return Owner{}, db.MapError(err)
	}
	return o, nil
}

var _ Repository = (*PGRepository)(nil)
