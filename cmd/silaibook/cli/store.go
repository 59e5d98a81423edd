package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/silaibook/silaibook/internal/platform/db"
)

// PGDataStore clears tables in PostgreSQL.
type PGDataStore struct {
	pool *pgxpool.Pool
	tx   *db.TxManager
}

// NewPGDataStore constructs PGDataStore.
func NewPGDataStore(pool *pgxpool.Pool) *PGDataStore {
	return &PGDataStore{pool: pool, tx: db.NewTxManager(pool)}
}

// Clear deletes all rows of tables inside one transaction.
func (s *PGDataStore) Clear(ctx context.Context, tables []string) ([]int64, error) {
	counts := make([]int64, 0, len(tables))
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		conn := db.Conn(ctx, s.pool)
		for _, table := range tables {
			tag, err := conn.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize())
			if err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
			counts = append(counts, tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

var _ DataStore = (*PGDataStore)(nil)
