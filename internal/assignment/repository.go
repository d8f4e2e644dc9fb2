package assignment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements Store with PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the owner lookup store.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const firstActiveOwnerQuery = `
	SELECT u.id
	FROM users u
	JOIN user_service_types ust ON ust.user_id = u.id
	WHERE ust.service_type_id = $1 AND u.active
	ORDER BY u.id ASC
	LIMIT 1`

func (r *Repository) FirstActiveOwner(ctx context.Context, serviceTypeID int64) (int64, bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx, firstActiveOwnerQuery, serviceTypeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *Repository) IsActiveUser(ctx context.Context, userID int64) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND active)`, userID).Scan(&active)
	return active, err
}
