package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/silaibook/silaibook/internal/platform/db"
)

// PGRepository stores audit entries in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Insert(ctx context.Context, entry Entry) error {
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO audit_logs (actor, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, entry.Actor, entry.Action, entry.Entity, entry.EntityID, metaJSON, nullTime(entry.At))
	return err
}

func (r *PGRepository) Window(ctx context.Context, q WindowQuery) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT actor, action, entity, entity_id, meta, occurred_at
FROM audit_logs
WHERE occurred_at BETWEEN COALESCE($1, '-infinity'::timestamptz) AND COALESCE($2, 'infinity'::timestamptz)
  AND ($3 = '' OR actor = $3)
  AND ($4 = '' OR entity = $4)
  AND ($5 = '' OR entity_id = $5)
  AND ($6 = '' OR action = $6)
ORDER BY occurred_at DESC, id DESC
OFFSET $7 LIMIT $8`, nullTime(q.From), nullTime(q.To), q.Actor, q.Entity, q.EntityID, q.Action, q.Offset, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		var (
			entry Entry
			meta  []byte
		)
		if err := rows.Scan(&entry.Actor, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &entry.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &entry.Meta)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value
}

var _ Repository = (*PGRepository)(nil)
