// Package category exposes the category ownership checks the import
// pipeline depends on.
package category

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store answers ownership questions about categories.
type Store interface {
	BelongsToUser(ctx context.Context, categoryID, userID uuid.UUID) (bool, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) BelongsToUser(ctx context.Context, categoryID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND user_id = $2)`,
		categoryID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking category ownership: %w", err)
	}
	return exists, nil
}
