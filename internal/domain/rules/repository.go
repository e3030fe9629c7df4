package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrRuleNotFound = errors.New("import rule not found")

// DB is the subset of pgxpool.Pool the repository needs. pgxmock
// implements it too, which keeps the repository testable without a
// running database.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const ruleColumns = `id, user_id, keyword, category_id, priority, is_active, created_at`

// ListActive returns the user's active rules in resolution order:
// priority descending, then creation time, then id.
func (r *Repository) ListActive(ctx context.Context, userID uuid.UUID) ([]ImportRule, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+ruleColumns+`
		 FROM import_rules
		 WHERE user_id = $1 AND is_active
		 ORDER BY priority DESC, created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing active import rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// List returns all of the user's rules, active or not, in resolution order.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]ImportRule, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+ruleColumns+`
		 FROM import_rules
		 WHERE user_id = $1
		 ORDER BY priority DESC, created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing import rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *Repository) GetByID(ctx context.Context, id, userID uuid.UUID) (*ImportRule, error) {
	var rule ImportRule
	err := r.db.QueryRow(ctx,
		`SELECT `+ruleColumns+`
		 FROM import_rules
		 WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&rule.ID, &rule.UserID, &rule.Keyword, &rule.CategoryID,
		&rule.Priority, &rule.IsActive, &rule.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting import rule: %w", err)
	}
	return &rule, nil
}

func (r *Repository) Create(ctx context.Context, rule ImportRule) (*ImportRule, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO import_rules (user_id, keyword, category_id, priority, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		rule.UserID, rule.Keyword, rule.CategoryID, rule.Priority, rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating import rule: %w", err)
	}
	return &rule, nil
}

func (r *Repository) Update(ctx context.Context, rule ImportRule) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE import_rules
		 SET keyword = $1, category_id = $2, priority = $3, is_active = $4
		 WHERE id = $5 AND user_id = $6`,
		rule.Keyword, rule.CategoryID, rule.Priority, rule.IsActive, rule.ID, rule.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating import rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM import_rules WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting import rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func scanRules(rows pgx.Rows) ([]ImportRule, error) {
	var out []ImportRule
	for rows.Next() {
		var rule ImportRule
		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Keyword, &rule.CategoryID,
			&rule.Priority, &rule.IsActive, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning import rule: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating import rules: %w", err)
	}
	return out, nil
}
