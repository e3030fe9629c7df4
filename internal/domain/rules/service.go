package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jpcornejo/finanzas-tracker/internal/domain/category"
)

var (
	ErrEmptyKeyword     = errors.New("rule keyword must not be empty")
	ErrCategoryNotOwned = errors.New("category does not belong to user")
)

// Service manages import rules and hands out per-user matching engines.
// Engines are cached and rebuilt lazily after any rule mutation.
type Service struct {
	repo       *Repository
	categories category.Store
	logger     *slog.Logger

	mu          sync.Mutex
	engines     map[uuid.UUID]*Engine
	generations map[uuid.UUID]uint64
}

func NewService(repo *Repository, categories category.Store, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		categories:  categories,
		logger:      logger,
		engines:     make(map[uuid.UUID]*Engine),
		generations: make(map[uuid.UUID]uint64),
	}
}

// EngineFor returns the matching engine for a user's active rules, building
// it on first use. The returned engine is a snapshot: rule changes after
// this call only show up once the cache is invalidated and rebuilt.
//
// The cache cannot be held locked across the database load, so a mutation
// may invalidate while a load is in flight. Each invalidation bumps the
// user's generation and a loaded engine is only cached if the generation
// observed before the load is still current, which keeps a stale engine
// from burying the invalidation.
func (s *Service) EngineFor(ctx context.Context, userID uuid.UUID) (*Engine, error) {
	s.mu.Lock()
	if engine, ok := s.engines[userID]; ok {
		s.mu.Unlock()
		return engine, nil
	}
	generation := s.generations[userID]
	s.mu.Unlock()

	active, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading rules for engine: %w", err)
	}
	engine := NewEngine(active)

	s.mu.Lock()
	if s.generations[userID] == generation {
		s.engines[userID] = engine
	}
	s.mu.Unlock()

	s.logger.Debug("rule engine built", "user_id", userID, "rules", engine.RuleCount())
	return engine, nil
}

func (s *Service) invalidate(userID uuid.UUID) {
	s.mu.Lock()
	delete(s.engines, userID)
	s.generations[userID]++
	s.mu.Unlock()
}

func (s *Service) ListRules(ctx context.Context, userID uuid.UUID) ([]ImportRule, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) CreateRule(ctx context.Context, userID uuid.UUID, input CreateRuleInput) (*ImportRule, error) {
	keyword := strings.TrimSpace(input.Keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	if err := s.checkCategory(ctx, input.CategoryID, userID); err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	rule, err := s.repo.Create(ctx, ImportRule{
		UserID:     userID,
		Keyword:    keyword,
		CategoryID: input.CategoryID,
		Priority:   input.Priority,
		IsActive:   isActive,
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(userID)
	s.logger.Info("import rule created", "user_id", userID, "rule_id", rule.ID, "keyword", rule.Keyword)
	return rule, nil
}

func (s *Service) UpdateRule(ctx context.Context, id, userID uuid.UUID, input UpdateRuleInput) (*ImportRule, error) {
	rule, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if input.Keyword != nil {
		keyword := strings.TrimSpace(*input.Keyword)
		if keyword == "" {
			return nil, ErrEmptyKeyword
		}
		rule.Keyword = keyword
	}
	if input.CategoryID != nil {
		if err := s.checkCategory(ctx, *input.CategoryID, userID); err != nil {
			return nil, err
		}
		rule.CategoryID = *input.CategoryID
	}
	if input.Priority != nil {
		rule.Priority = *input.Priority
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, *rule); err != nil {
		return nil, err
	}

	s.invalidate(userID)
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.invalidate(userID)
	s.logger.Info("import rule deleted", "user_id", userID, "rule_id", id)
	return nil
}

func (s *Service) checkCategory(ctx context.Context, categoryID, userID uuid.UUID) error {
	owned, err := s.categories.BelongsToUser(ctx, categoryID, userID)
	if err != nil {
		return fmt.Errorf("checking category ownership: %w", err)
	}
	if !owned {
		return ErrCategoryNotOwned
	}
	return nil
}
