// Package confirmation moves reviewed pending transactions into the ledger.
// Each row is confirmed inside its own database transaction so one failure
// never rolls back earlier confirmations.
package confirmation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jpcornejo/finanzas-tracker/internal/domain/ledger"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/staging"
)

var (
	ErrPendingNotFound = errors.New("pending transaction not found")
	ErrNoCategory      = errors.New("pending transaction has no category")
)

// DB begins transactions; satisfied by pgxpool.Pool and pgxmock.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository struct {
	db     DB
	writer ledger.Writer
}

func NewRepository(db DB, writer ledger.Writer) *Repository {
	return &Repository{db: db, writer: writer}
}

// ConfirmOne promotes a single pending row into the ledger and deletes it,
// atomically. An override replaces the staged category before the check
// that a category exists at all.
func (r *Repository) ConfirmOne(ctx context.Context, pendingID, userID uuid.UUID, override *uuid.UUID) (uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning confirmation: %w", err)
	}
	defer tx.Rollback(ctx)

	var p staging.PendingTransaction
	err = tx.QueryRow(ctx,
		`SELECT id, user_id, category_id, amount, kind, description, date
		 FROM pending_transactions
		 WHERE id = $1 AND user_id = $2
		 FOR UPDATE`,
		pendingID, userID,
	).Scan(&p.ID, &p.UserID, &p.CategoryID, &p.Amount, &p.Kind, &p.Description, &p.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrPendingNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("locking pending transaction: %w", err)
	}

	categoryID := p.CategoryID
	if override != nil {
		categoryID = override
	}
	if categoryID == nil {
		return uuid.Nil, ErrNoCategory
	}

	txnID, err := r.writer.CreateTransaction(ctx, tx, ledger.Transaction{
		UserID:      p.UserID,
		CategoryID:  *categoryID,
		Amount:      p.Amount,
		Kind:        p.Kind,
		Description: p.Description,
		Date:        p.Date,
	})
	if err != nil {
		return uuid.Nil, err
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM pending_transactions WHERE id = $1`, pendingID,
	); err != nil {
		return uuid.Nil, fmt.Errorf("removing confirmed pending transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing confirmation: %w", err)
	}
	return txnID, nil
}
