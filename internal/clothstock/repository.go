package clothstock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/silaibook/silaibook/internal/platform/db"
	"github.com/silaibook/silaibook/internal/shared"
)

// Repository persists stock lots and the usage log. Every method runs on the
// transaction carried by ctx when there is one.
type Repository interface {
	UpsertDelivery(ctx context.Context, in DeliveryInput, actor string, at time.Time) (StockLot, bool, error)
	Get(ctx context.Context, id int64) (StockLot, error)
	Decrement(ctx context.Context, id int64, meters decimal.Decimal, at time.Time) (StockLot, error)
	InsertUsage(ctx context.Context, rec UsageRecord) (UsageRecord, error)
	Deactivate(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, lowStock bool) ([]StockLot, error)
	Update(ctx context.Context, id int64, in UpdateInput, at time.Time) error
	UsageHistory(ctx context.Context) ([]UsageRecord, error)
	Reconcile(ctx context.Context, reserving []string, at time.Time) ([]ReconcileRow, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the stock repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const lotColumns = `id, dealer_name, cloth_type, price_per_meter, total_meters, used_meters, remaining_meters,
is_active, purchase_date, created_at, last_stocked_at, updated_at, created_by`

func scanLot(row pgx.Row, extra ...any) (StockLot, error) {
	var lot StockLot
	dest := []any{&lot.ID, &lot.DealerName, &lot.ClothType, &lot.PricePerMeter, &lot.TotalMeters, &lot.UsedMeters,
		&lot.RemainingMeters, &lot.IsActive, &lot.PurchaseDate, &lot.CreatedAt, &lot.LastStockedAt, &lot.UpdatedAt, &lot.CreatedBy}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return StockLot{}, err
	}
	return lot, nil
}

// UpsertDelivery adds meters to the active lot of the same identity or creates
// one. The partial unique index on active lots makes this a single statement.
func (r *PGRepository) UpsertDelivery(ctx context.Context, in DeliveryInput, actor string, at time.Time) (StockLot, bool, error) {
	var inserted bool
	lot, err := scanLot(db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO cloth_stock
    (dealer_name, cloth_type, price_per_meter, total_meters, used_meters, remaining_meters,
     purchase_date, created_at, last_stocked_at, updated_at, created_by)
VALUES ($1, $2, $3, $4, 0, $4, $5, $5, $5, $5, $6)
ON CONFLICT (dealer_name, cloth_type, price_per_meter) WHERE is_active
DO UPDATE SET
    total_meters = cloth_stock.total_meters + EXCLUDED.total_meters,
    remaining_meters = cloth_stock.remaining_meters + EXCLUDED.total_meters,
    last_stocked_at = EXCLUDED.last_stocked_at,
    updated_at = EXCLUDED.updated_at
RETURNING `+lotColumns+`, (xmax = 0)`, in.DealerName, in.ClothType, in.PricePerMeter, in.TotalMeters, at, actor), &inserted)
	if err != nil {
		return StockLot{}, false, db.MapError(err)
	}
	return lot, inserted, nil
}

func (r *PGRepository) Get(ctx context.Context, id int64) (StockLot, error) {
	lot, err := scanLot(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+lotColumns+` FROM cloth_stock WHERE id = $1`, id))
	if err != nil {
		return StockLot{}, db.MapError(err)
	}
	return lot, nil
}

// Decrement moves meters from remaining to used in one guarded statement, so
// concurrent consumers can never drive remaining below zero.
func (r *PGRepository) Decrement(ctx context.Context, id int64, meters decimal.Decimal, at time.Time) (StockLot, error) {
	conn := db.Conn(ctx, r.pool)
	lot, err := scanLot(conn.QueryRow(ctx, `UPDATE cloth_stock SET
    remaining_meters = remaining_meters - $2,
    used_meters = used_meters + $2,
    updated_at = $3
WHERE id = $1 AND is_active AND remaining_meters >= $2
RETURNING `+lotColumns, id, meters, at))
	if err == nil {
		return lot, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return StockLot{}, err
	}
	current, err := r.Get(ctx, id)
	if err != nil {
		return StockLot{}, err
	}
	if !current.IsActive {
		return StockLot{}, shared.ErrNotFound
	}
	return StockLot{}, fmt.Errorf("%w: %s remaining, %s requested", shared.ErrInsufficientStock, current.RemainingMeters, meters)
}

func (r *PGRepository) InsertUsage(ctx context.Context, rec UsageRecord) (UsageRecord, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO cloth_usage
    (stock_id, used_meters, kind, order_id, stage, remaining_meters, used_by, used_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`, rec.StockID, rec.UsedMeters, string(rec.Kind), rec.OrderID, rec.Stage, rec.RemainingMeters, rec.UsedBy, rec.UsedAt).Scan(&rec.ID)
	if err != nil {
		return UsageRecord{}, err
	}
	return rec, nil
}

func (r *PGRepository) Deactivate(ctx context.Context, id int64, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE cloth_stock SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, lowStock bool) ([]StockLot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lotColumns+` FROM cloth_stock
WHERE is_active AND (NOT $1 OR remaining_meters <= $2)
ORDER BY created_at DESC, id DESC`, lowStock, LowStockThreshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lots := []StockLot{}
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// Update applies corrections. A new remaining balance recomputes used so the
// lot keeps remaining = total - used.
func (r *PGRepository) Update(ctx context.Context, id int64, in UpdateInput, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE cloth_stock SET
    dealer_name = COALESCE($2, dealer_name),
    cloth_type = COALESCE($3, cloth_type),
    price_per_meter = COALESCE($4, price_per_meter),
    remaining_meters = COALESCE($5, remaining_meters),
    used_meters = CASE WHEN $5::numeric IS NULL THEN used_meters ELSE total_meters - $5::numeric END,
    updated_at = $6
WHERE id = $1 AND is_active AND ($5::numeric IS NULL OR $5::numeric BETWEEN 0 AND total_meters)`,
		id, in.DealerName, in.ClothType, in.PricePerMeter, in.RemainingMeters, at)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) UsageHistory(ctx context.Context) ([]UsageRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.stock_id, u.used_meters, u.kind, u.order_id, u.stage,
       u.remaining_meters, u.used_by, u.used_at, s.dealer_name, s.cloth_type
FROM cloth_usage u
JOIN cloth_stock s ON s.id = u.stock_id
ORDER BY u.used_at DESC, u.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	history := []UsageRecord{}
	for rows.Next() {
		var (
			rec  UsageRecord
			kind string
		)
		if err := rows.Scan(&rec.ID, &rec.StockID, &rec.UsedMeters, &kind, &rec.OrderID, &rec.Stage,
			&rec.RemainingMeters, &rec.UsedBy, &rec.UsedAt, &rec.DealerName, &rec.ClothType); err != nil {
			return nil, err
		}
		rec.Kind = UsageKind(kind)
		history = append(history, rec)
	}
	return history, rows.Err()
}

// Reconcile sets used_meters on every active lot to the consumed balance plus
// the meters reserved by orders whose status is in reserving.
func (r *PGRepository) Reconcile(ctx context.Context, reserving []string, at time.Time) ([]ReconcileRow, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `WITH reserved AS (
    SELECT i.stock_id, SUM(i.meters_used) AS meters
    FROM order_cloth_items i
    JOIN orders o ON o.id = i.order_id
    WHERE o.is_active AND o.status = ANY($1)
    GROUP BY i.stock_id
)
UPDATE cloth_stock s SET
    used_meters = (s.total_meters - s.remaining_meters) + COALESCE(r.meters, 0),
    updated_at = $2
FROM cloth_stock prev
LEFT JOIN reserved r ON r.stock_id = prev.id
WHERE s.id = prev.id AND s.is_active
RETURNING s.id, s.dealer_name, s.cloth_type, s.total_meters, s.remaining_meters,
          COALESCE(r.meters, 0), prev.used_meters, s.used_meters`, reserving, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	report := []ReconcileRow{}
	for rows.Next() {
		var row ReconcileRow
		if err := rows.Scan(&row.StockID, &row.DealerName, &row.ClothType, &row.TotalMeters, &row.RemainingMeters,
			&row.ReservedMeters, &row.PreviousUsed, &row.UsedMeters); err != nil {
			return nil, err
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(report, func(i, j int) bool { return report[i].StockID < report[j].StockID })
	return report, nil
}

var _ Repository = (*PGRepository)(nil)
