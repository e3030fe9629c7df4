package confirmation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcornejo/finanzas-tracker/internal/domain/ledger"
)

func TestRepository_ConfirmOne(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pendingID := uuid.New()
	userID := uuid.New()
	categoryID := uuid.New()
	txnID := uuid.New()
	date := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM pending_transactions`).
		WithArgs(pendingID, userID).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "user_id", "category_id", "amount", "kind", "description", "date"},
		).AddRow(pendingID, userID, &categoryID, decimal.NewFromInt(45000), "expense", "COMPRA LIDER", date))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(userID, categoryID, decimal.NewFromInt(45000), "expense", "COMPRA LIDER", date).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(txnID))
	mock.ExpectExec(`DELETE FROM pending_transactions`).
		WithArgs(pendingID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	repo := NewRepository(mock, ledger.NewPostgresWriter())
	got, err := repo.ConfirmOne(context.Background(), pendingID, userID, nil)
	require.NoError(t, err)
	assert.Equal(t, txnID, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ConfirmOne_Override(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pendingID := uuid.New()
	userID := uuid.New()
	stagedCategory := uuid.New()
	overrideCategory := uuid.New()
	txnID := uuid.New()
	date := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM pending_transactions`).
		WithArgs(pendingID, userID).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "user_id", "category_id", "amount", "kind", "description", "date"},
		).AddRow(pendingID, userID, &stagedCategory, decimal.NewFromInt(9990), "expense", "NETFLIX.COM", date))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(userID, overrideCategory, decimal.NewFromInt(9990), "expense", "NETFLIX.COM", date).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(txnID))
	mock.ExpectExec(`DELETE FROM pending_transactions`).
		WithArgs(pendingID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	repo := NewRepository(mock, ledger.NewPostgresWriter())
	got, err := repo.ConfirmOne(context.Background(), pendingID, userID, &overrideCategory)
	require.NoError(t, err)
	assert.Equal(t, txnID, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ConfirmOne_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pendingID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM pending_transactions`).
		WithArgs(pendingID, userID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	repo := NewRepository(mock, ledger.NewPostgresWriter())
	_, err = repo.ConfirmOne(context.Background(), pendingID, userID, nil)
	assert.ErrorIs(t, err, ErrPendingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ConfirmOne_NoCategory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pendingID := uuid.New()
	userID := uuid.New()
	date := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM pending_transactions`).
		WithArgs(pendingID, userID).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "user_id", "category_id", "amount", "kind", "description", "date"},
		).AddRow(pendingID, userID, (*uuid.UUID)(nil), decimal.NewFromInt(100), "expense", "SIN CATEGORIA", date))
	mock.ExpectRollback()

	repo := NewRepository(mock, ledger.NewPostgresWriter())
	_, err = repo.ConfirmOne(context.Background(), pendingID, userID, nil)
	assert.ErrorIs(t, err, ErrNoCategory)
	assert.NoError(t, mock.ExpectationsWereMet())
}
