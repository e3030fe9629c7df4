package staging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock
// implements it as well.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

var copyColumns = []string{
	"user_id", "category_id", "amount", "kind", "description", "date", "auto_categorized", "batch_id",
}

// InsertBatch bulk-loads staged rows with the COPY protocol. Batches run to
// thousands of rows, so per-row INSERTs would be the wrong tool.
func (r *Repository) InsertBatch(ctx context.Context, pending []PendingTransaction) (int64, error) {
	if len(pending) == 0 {
		return 0, nil
	}
	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"pending_transactions"},
		copyColumns,
		pgx.CopyFromSlice(len(pending), func(i int) ([]any, error) {
			p := pending[i]
			return []any{
				p.UserID, p.CategoryID, p.Amount, p.Kind,
				p.Description, p.Date, p.AutoCategorized, p.BatchID,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("staging pending transactions: %w", err)
	}
	return n, nil
}

const pendingColumns = `id, user_id, category_id, amount, kind, description, date, auto_categorized, batch_id, created_at`

// ListPending returns the user's staged rows, optionally filtered to one
// import batch.
func (r *Repository) ListPending(ctx context.Context, userID uuid.UUID, batchID *string) ([]PendingTransaction, error) {
	query := `SELECT ` + pendingColumns + `
	 FROM pending_transactions
	 WHERE user_id = $1`
	args := []any{userID}
	if batchID != nil {
		query += ` AND batch_id = $2`
		args = append(args, *batchID)
	}
	query += ` ORDER BY date ASC, created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pending transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingTransaction
	for rows.Next() {
		var p PendingTransaction
		if err := rows.Scan(&p.ID, &p.UserID, &p.CategoryID, &p.Amount, &p.Kind,
			&p.Description, &p.Date, &p.AutoCategorized, &p.BatchID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pending transaction: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending transactions: %w", err)
	}
	return out, nil
}

// UpdateCategory reassigns a staged row's category. A manual assignment
// always clears the auto_categorized flag: provenance tracks the last
// writer, not the first.
func (r *Repository) UpdateCategory(ctx context.Context, id, userID, categoryID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE pending_transactions
		 SET category_id = $1, auto_categorized = false
		 WHERE id = $2 AND user_id = $3`,
		categoryID, id, userID,
	)
	if err != nil {
		return fmt.Errorf("updating pending category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPendingNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM pending_transactions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting pending transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPendingNotFound
	}
	return nil
}

// PurgeStale deletes staged rows older than the retention window, across
// all users. The cron scheduler calls this.
func (r *Repository) PurgeStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := r.db.Exec(ctx,
		`DELETE FROM pending_transactions WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purging stale pending transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}
