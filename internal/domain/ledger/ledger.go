// Package ledger writes confirmed transactions into the main transactions
// table. Confirmation drives it inside its own database transaction so a
// pending row and its ledger entry move together.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	UserID      uuid.UUID
	CategoryID  uuid.UUID
	Amount      decimal.Decimal
	Kind        string
	Description string
	Date        time.Time
}

// Writer creates ledger transactions. Implementations must use the supplied
// pgx.Tx so the caller controls commit and rollback.
type Writer interface {
	CreateTransaction(ctx context.Context, tx pgx.Tx, t Transaction) (uuid.UUID, error)
}

type PostgresWriter struct{}

func NewPostgresWriter() *PostgresWriter {
	return &PostgresWriter{}
}

func (w *PostgresWriter) CreateTransaction(ctx context.Context, tx pgx.Tx, t Transaction) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx,
		`INSERT INTO transactions (user_id, category_id, amount, kind, description, date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		t.UserID, t.CategoryID, t.Amount, t.Kind, t.Description, t.Date,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting transaction: %w", err)
	}
	return id, nil
}
