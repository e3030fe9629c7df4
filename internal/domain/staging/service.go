package staging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jpcornejo/finanzas-tracker/internal/domain/category"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/import/normalizer"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/rules"
)

// EngineProvider hands out the rule engine for a user. The rules service
// implements it.
type EngineProvider interface {
	EngineFor(ctx context.Context, userID uuid.UUID) (*rules.Engine, error)
}

// Service stages normalized rows, applying import rules for automatic
// categorization, and manages the staged rows until confirmation.
type Service struct {
	repo       *Repository
	engines    EngineProvider
	categories category.Store
	logger     *slog.Logger
}

func NewService(repo *Repository, engines EngineProvider, categories category.Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, engines: engines, categories: categories, logger: logger}
}

// StageResult reports what staging did with a batch of candidates.
type StageResult struct {
	Staged          int
	AutoCategorized int
}

// Stage persists candidates as pending transactions. Each description is
// resolved against the user's active rules exactly once; a match records
// the category with auto_categorized provenance.
func (s *Service) Stage(ctx context.Context, userID uuid.UUID, batchID string, candidates []normalizer.Candidate) (*StageResult, error) {
	if len(candidates) == 0 {
		return &StageResult{}, nil
	}

	engine, err := s.engines.EngineFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading rule engine: %w", err)
	}

	descriptions := make([]string, len(candidates))
	for i, c := range candidates {
		descriptions[i] = c.Description
	}
	matches := engine.ResolveBatch(descriptions)

	pending := make([]PendingTransaction, len(candidates))
	auto := 0
	for i, c := range candidates {
		p := PendingTransaction{
			UserID:      userID,
			Amount:      c.Amount,
			Kind:        string(c.Kind),
			Description: c.Description,
			Date:        c.Date,
			BatchID:     batchID,
		}
		if m := matches[i]; m != nil {
			categoryID := m.CategoryID
			p.CategoryID = &categoryID
			p.AutoCategorized = true
			auto++
		}
		pending[i] = p
	}

	staged, err := s.repo.InsertBatch(ctx, pending)
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch staged",
		"user_id", userID,
		"batch_id", batchID,
		"staged", staged,
		"auto_categorized", auto,
	)
	return &StageResult{Staged: int(staged), AutoCategorized: auto}, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, batchID *string) ([]PendingTransaction, error) {
	return s.repo.ListPending(ctx, userID, batchID)
}

// UpdateCategory assigns a category to a staged row after verifying the
// category belongs to the user.
func (s *Service) UpdateCategory(ctx context.Context, id, userID, categoryID uuid.UUID) error {
	owned, err := s.categories.BelongsToUser(ctx, categoryID, userID)
	if err != nil {
		return fmt.Errorf("checking category ownership: %w", err)
	}
	if !owned {
		return ErrCategoryNotOwned
	}
	return s.repo.UpdateCategory(ctx, id, userID, categoryID)
}

func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.Delete(ctx, id, userID)
}

// PurgeStale satisfies the cron scheduler's StagingCleaner interface.
func (s *Service) PurgeStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.repo.PurgeStale(ctx, olderThan)
}
