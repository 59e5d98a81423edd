package auth

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/silaibook/silaibook/internal/platform/db"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, user User) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT id, username, password_hash, role, is_active, created_at
FROM users WHERE username = $1`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &user, nil
}

// Create inserts a user. A taken username maps to shared.ErrDuplicate.
func (r *PGRepository) Create(ctx context.Context, user User) (*User, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (username, password_hash, role)
VALUES ($1, $2, $3) RETURNING id, is_active, created_at`, user.Username, user.PasswordHash, user.Role).Scan(&user.ID, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
