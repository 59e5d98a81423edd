package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/silaibook/silaibook/internal/platform/db"
	"github.com/silaibook/silaibook/internal/shared"
)

// Repository persists orders with their cloth items and status history.
type Repository interface {
	NextSequence(ctx context.Context, year int) (int64, error)
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filters ListFilters) ([]Order, error)
	Transition(ctx context.Context, id int64, from, to Status, actor string, at time.Time) error
	Deactivate(ctx context.Context, id int64, at time.Time) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the order repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// NextSequence atomically advances the per-year order counter.
func (r *PGRepository) NextSequence(ctx context.Context, year int) (int64, error) {
	var seq int64
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO order_counters (year, seq) VALUES ($1, 1)
ON CONFLICT (year) DO UPDATE SET seq = order_counters.seq + 1
RETURNING seq`, year).Scan(&seq)
	return seq, err
}

func (r *PGRepository) Insert(ctx context.Context, order *Order) error {
	conn := db.Conn(ctx, r.pool)
	snapshot, err := json.Marshal(order.MeasurementsSnapshot)
	if err != nil {
		return fmt.Errorf("orders: encode measurements: %w", err)
	}
	err = conn.QueryRow(ctx, `INSERT INTO orders
    (order_number, customer_id, customer_name, customer_mobile, order_type, price, advance_amount,
     measurements_snapshot, delivery_date, priority, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
RETURNING id`,
		order.OrderNumber, order.CustomerID, order.CustomerName, order.CustomerMobile, order.OrderType,
		order.Price, order.AdvanceAmount, snapshot, order.DeliveryDate, order.Priority, string(order.Status),
		order.CreatedBy, order.CreatedAt).Scan(&order.ID)
	if err != nil {
		return db.MapError(err)
	}
	for i, item := range order.ClothItems {
		if _, err := conn.Exec(ctx, `INSERT INTO order_cloth_items (order_id, stock_id, meters_used, line_no)
VALUES ($1, $2, $3, $4)`, order.ID, item.StockID, item.MetersUsed, i+1); err != nil {
			return err
		}
	}
	for _, h := range order.StatusHistory {
		if err := insertHistory(ctx, conn, order.ID, h); err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `id, order_number, customer_id, customer_name, customer_mobile, order_type, price,
advance_amount, measurements_snapshot, delivery_date, priority, status, ready_at, is_active, created_by,
created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o        Order
		snapshot []byte
		status   string
	)
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.CustomerMobile, &o.OrderType,
		&o.Price, &o.AdvanceAmount, &snapshot, &o.DeliveryDate, &o.Priority, &status, &o.ReadyAt, &o.IsActive,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	o.MeasurementsSnapshot = map[string]any{}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &o.MeasurementsSnapshot); err != nil {
			return Order{}, fmt.Errorf("orders: decode measurements: %w", err)
		}
	}
	o.ClothItems = []ClothItem{}
	o.StatusHistory = []HistoryEntry{}
	return o, nil
}

// Get returns an order regardless of its active flag.
func (r *PGRepository) Get(ctx context.Context, id int64) (Order, error) {
	conn := db.Conn(ctx, r.pool)
	o, err := scanOrder(conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return Order{}, db.MapError(err)
	}
	byID := map[int64]*Order{o.ID: &o}
	if err := r.attachDetails(ctx, conn, byID); err != nil {
		return Order{}, err
	}
	return o, nil
}

// List returns active orders, newest first.
func (r *PGRepository) List(ctx context.Context, filters ListFilters) ([]Order, error) {
	conn := db.Conn(ctx, r.pool)
	rows, err := conn.Query(ctx, `SELECT `+orderColumns+` FROM orders
WHERE is_active
  AND ($1::bigint = 0 OR customer_id = $1)
  AND ($2 = '' OR status = $2)
ORDER BY created_at DESC, id DESC`, filters.CustomerID, string(filters.Status))
	if err != nil {
		return nil, err
	}
	list := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	byID := make(map[int64]*Order, len(list))
	for i := range list {
		byID[list[i].ID] = &list[i]
	}
	if err := r.attachDetails(ctx, conn, byID); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PGRepository) attachDetails(ctx context.Context, conn db.DBTX, byID map[int64]*Order) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	rows, err := conn.Query(ctx, `SELECT order_id, stock_id, meters_used FROM order_cloth_items
WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			orderID int64
			item    ClothItem
		)
		if err := rows.Scan(&orderID, &item.StockID, &item.MetersUsed); err != nil {
			rows.Close()
			return err
		}
		byID[orderID].ClothItems = append(byID[orderID].ClothItems, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = conn.Query(ctx, `SELECT order_id, status, changed_at, changed_by FROM order_status_history
WHERE order_id = ANY($1) ORDER BY order_id, changed_at, id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID int64
			status  string
			entry   HistoryEntry
		)
		if err := rows.Scan(&orderID, &status, &entry.ChangedAt, &entry.ChangedBy); err != nil {
			return err
		}
		entry.Status = Status(status)
		byID[orderID].StatusHistory = append(byID[orderID].StatusHistory, entry)
	}
	return rows.Err()
}

// Transition sets the status of an active order and appends the history
// entry. With a non-empty from the update only applies while the order is in
// that status. Moving to Ready stamps ready_at.
func (r *PGRepository) Transition(ctx context.Context, id int64, from, to Status, actor string, at time.Time) error {
	conn := db.Conn(ctx, r.pool)
	tag, err := conn.Exec(ctx, `UPDATE orders SET
    status = $2,
    ready_at = CASE WHEN $2 = 'Ready' THEN $4 ELSE ready_at END,
    updated_at = $4
WHERE id = $1 AND is_active AND ($3 = '' OR status = $3)`, id, string(to), string(from), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return insertHistory(ctx, conn, id, HistoryEntry{Status: to, ChangedAt: at, ChangedBy: actor})
}

func (r *PGRepository) Deactivate(ctx context.Context, id int64, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE orders SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func insertHistory(ctx context.Context, conn db.DBTX, orderID int64, h HistoryEntry) error {
	_, err := conn.Exec(ctx, `INSERT INTO order_status_history (order_id, status, changed_at, changed_by)
VALUES ($1, $2, $3, $4)`, orderID, string(h.Status), h.ChangedAt, h.ChangedBy)
	return err
}

var _ Repository = (*PGRepository)(nil)
