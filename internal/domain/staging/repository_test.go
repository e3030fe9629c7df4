package staging

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
)

func TestRepository_InsertBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"pending_transactions"}, copyColumns).
		WillReturnResult(2)

	repo := NewRepository(mock)
	userID := uuid.New()
	n, err := repo.InsertBatch(context.Background(), []PendingTransaction{
		{UserID: userID, Amount: decimal.NewFromInt(45000), Kind: "expense",
			Description: "COMPRA LIDER", Date: time.Now(), BatchID: "a1b2c3d4"},
		{UserID: userID, Amount: decimal.NewFromInt(1500000), Kind: "income",
			Description: "SUELDO", Date: time.Now(), BatchID: "a1b2c3d4"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertBatch_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	n, err := repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepository_ListPending_BatchFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	batchID := "a1b2c3d4"
	createdAt := time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM pending_transactions`).
		WithArgs(userID, batchID).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "user_id", "category_id", "amount", "kind", "description",
				"date", "auto_categorized", "batch_id", "created_at"},
		).AddRow(uuid.New(), userID, (*uuid.UUID)(nil), decimal.NewFromInt(45000), "expense",
			"COMPRA LIDER", createdAt, false, batchID, createdAt))

	repo := NewRepository(mock)
	got, err := repo.ListPending(context.Background(), userID, &batchID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "COMPRA LIDER", got[0].Description)
	assert.Nil(t, got[0].CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateCategory_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, userID, categoryID := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectExec(`UPDATE pending_transactions`).
		WithArgs(categoryID, id, userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewRepository(mock)
	err = repo.UpdateCategory(context.Background(), id, userID, categoryID)
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, userID := uuid.New(), uuid.New()
	mock.ExpectExec(`DELETE FROM pending_transactions`).
		WithArgs(id, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewRepository(mock)
	require.NoError(t, repo.Delete(context.Background(), id, userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PurgeStale(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM pending_transactions`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	repo := NewRepository(mock)
	n, err := repo.PurgeStale(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}
