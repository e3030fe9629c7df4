package rules

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCategoryStore struct {
	owned map[uuid.UUID]bool
}

func (s *stubCategoryStore) BelongsToUser(_ context.Context, categoryID, _ uuid.UUID) (bool, error) {
	return s.owned[categoryID], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTime() time.Time {
	return time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
}

func TestService_CreateRule_Validation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ownedCategory := uuid.New()
	svc := NewService(NewRepository(mock), &stubCategoryStore{
		owned: map[uuid.UUID]bool{ownedCategory: true},
	}, testLogger())

	userID := uuid.New()

	t.Run("empty keyword", func(t *testing.T) {
		_, err := svc.CreateRule(context.Background(), userID, CreateRuleInput{
			Keyword:    "   ",
			CategoryID: ownedCategory,
		})
		assert.ErrorIs(t, err, ErrEmptyKeyword)
	})

	t.Run("foreign category", func(t *testing.T) {
		_, err := svc.CreateRule(context.Background(), userID, CreateRuleInput{
			Keyword:    "UBER",
			CategoryID: uuid.New(),
		})
		assert.ErrorIs(t, err, ErrCategoryNotOwned)
	})
}

// hookDB lets a test run code at the moment a rule load hits the database.
type hookDB struct {
	onQuery func()
	queries int
}

func (d *hookDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	d.queries++
	if d.onQuery != nil {
		d.onQuery()
	}
	return emptyRows{}, nil
}

func (d *hookDB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (d *hookDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

type emptyRows struct{}

func (emptyRows) Close()                                       {}
func (emptyRows) Err() error                                   { return nil }
func (emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (emptyRows) Next() bool                                   { return false }
func (emptyRows) Scan(...any) error                            { return nil }
func (emptyRows) Values() ([]any, error)                       { return nil, nil }
func (emptyRows) RawValues() [][]byte                          { return nil }
func (emptyRows) Conn() *pgx.Conn                              { return nil }

func TestService_EngineFor_InvalidationDuringLoadIsKept(t *testing.T) {
	userID := uuid.New()
	db := &hookDB{}
	svc := NewService(NewRepository(db), &stubCategoryStore{}, testLogger())

	// A mutation lands between the cache miss and the load finishing, as a
	// concurrent DeleteRule would. The engine built from the now-outdated
	// load must not be cached over that invalidation.
	db.onQuery = func() { svc.invalidate(userID) }

	first, err := svc.EngineFor(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, db.queries)

	db.onQuery = nil
	second, err := svc.EngineFor(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, db.queries, "stale engine must not be served from cache")
	assert.NotSame(t, first, second)

	// With no interleaved mutation the rebuilt engine is cached again.
	third, err := svc.EngineFor(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, db.queries)
	assert.Same(t, second, third)
}

func TestService_EngineFor_CachesUntilMutation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	ownedCategory := uuid.New()

	ruleRows := func() *pgxmock.Rows {
		return pgxmock.NewRows(
			[]string{"id", "user_id", "keyword", "category_id", "priority", "is_active", "created_at"},
		)
	}

	// First EngineFor hits the database; the second is served from cache.
	mock.ExpectQuery(`SELECT .+ FROM import_rules`).
		WithArgs(userID).
		WillReturnRows(ruleRows())

	svc := NewService(NewRepository(mock), &stubCategoryStore{
		owned: map[uuid.UUID]bool{ownedCategory: true},
	}, testLogger())

	first, err := svc.EngineFor(context.Background(), userID)
	require.NoError(t, err)
	second, err := svc.EngineFor(context.Background(), userID)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// A mutation invalidates the cache, so the next EngineFor reloads.
	mock.ExpectQuery(`INSERT INTO import_rules`).
		WithArgs(userID, "UBER", ownedCategory, 0, true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
			AddRow(uuid.New(), testTime()))
	_, err = svc.CreateRule(context.Background(), userID, CreateRuleInput{
		Keyword:    "UBER",
		CategoryID: ownedCategory,
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT .+ FROM import_rules`).
		WithArgs(userID).
		WillReturnRows(ruleRows())
	third, err := svc.EngineFor(context.Background(), userID)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	assert.NoError(t, mock.ExpectationsWereMet())
}
