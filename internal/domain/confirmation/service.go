package confirmation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jpcornejo/finanzas-tracker/internal/domain/category"
	"github.com/jpcornejo/finanzas-tracker/pkg/metrics"
)

// Rejection reasons reported per pending id.
const (
	ReasonNotFound         = "not_found"
	ReasonNoCategory       = "no_category"
	ReasonCategoryNotOwned = "category_not_owned"
	ReasonInternal         = "internal_error"
)

type Rejection struct {
	PendingID uuid.UUID `json:"pending_id"`
	Reason    string    `json:"reason"`
}

// Result summarizes a confirmation request. Confirmation is partial by
// design: rows that fail are reported and the rest go through.
type Result struct {
	ConfirmedCount int         `json:"confirmed_count"`
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
	Rejected       []Rejection `json:"rejected"`
}

// Confirmer promotes one pending row; the repository implements it.
type Confirmer interface {
	ConfirmOne(ctx context.Context, pendingID, userID uuid.UUID, override *uuid.UUID) (uuid.UUID, error)
}

type Service struct {
	repo       Confirmer
	categories category.Store
	metrics    *metrics.ImportMetrics
	logger     *slog.Logger
}

func NewService(repo Confirmer, categories category.Store, m *metrics.ImportMetrics, logger *slog.Logger) *Service {
	return &Service{repo: repo, categories: categories, metrics: m, logger: logger}
}

// Confirm processes each requested pending id in order. Overrides map a
// pending id to a replacement category, which must belong to the user.
func (s *Service) Confirm(ctx context.Context, userID uuid.UUID, pendingIDs []uuid.UUID, overrides map[uuid.UUID]uuid.UUID) (*Result, error) {
	result := &Result{}

	for _, pendingID := range pendingIDs {
		var override *uuid.UUID
		if categoryID, ok := overrides[pendingID]; ok {
			owned, err := s.categories.BelongsToUser(ctx, categoryID, userID)
			if err != nil {
				// Earlier rows are already committed; keep going and report
				// this one so the caller learns which subset succeeded.
				s.logger.Error("checking override category", "pending_id", pendingID, "error", err)
				result.Rejected = append(result.Rejected, Rejection{PendingID: pendingID, Reason: ReasonInternal})
				continue
			}
			if !owned {
				result.Rejected = append(result.Rejected, Rejection{PendingID: pendingID, Reason: ReasonCategoryNotOwned})
				continue
			}
			id := categoryID
			override = &id
		}

		txnID, err := s.repo.ConfirmOne(ctx, pendingID, userID, override)
		switch {
		case errors.Is(err, ErrPendingNotFound):
			result.Rejected = append(result.Rejected, Rejection{PendingID: pendingID, Reason: ReasonNotFound})
		case errors.Is(err, ErrNoCategory):
			result.Rejected = append(result.Rejected, Rejection{PendingID: pendingID, Reason: ReasonNoCategory})
		case err != nil:
			s.logger.Error("confirming pending transaction", "pending_id", pendingID, "error", err)
			result.Rejected = append(result.Rejected, Rejection{PendingID: pendingID, Reason: ReasonInternal})
		default:
			result.ConfirmedCount++
			result.TransactionIDs = append(result.TransactionIDs, txnID)
		}
	}

	if s.metrics != nil {
		s.metrics.RowsConfirmed.Add(float64(result.ConfirmedCount))
	}
	s.logger.Info("confirmation finished",
		"user_id", userID,
		"requested", len(pendingIDs),
		"confirmed", result.ConfirmedCount,
		"rejected", len(result.Rejected),
	)
	return result, nil
}
