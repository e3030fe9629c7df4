// Package service orchestrates a statement import: detect the column
// schema, normalize every row, and stage the survivors for review.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jpcornejo/finanzas-tracker/internal/domain/import/normalizer"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/import/schema"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/staging"
	"github.com/jpcornejo/finanzas-tracker/pkg/metrics"
)

var ErrEmptyStatement = errors.New("statement has no rows")

// TooManyRowsError rejects a whole file over the row cap before any work
// is done on it.
type TooManyRowsError struct {
	Rows int
	Max  int
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("statement has %d rows, maximum is %d", e.Rows, e.Max)
}

// RowRejection reports one rejected row in the import summary.
type RowRejection struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Raw    string `json:"raw,omitempty"`
}

// Summary is returned for every completed import. Every data row is either
// imported or rejected, so TotalImported plus RejectedCount always equals
// TotalRowsSeen.
type Summary struct {
	BatchID         string         `json:"batch_id"`
	TotalRowsSeen   int            `json:"total_rows_seen"`
	TotalImported   int            `json:"total_imported"`
	AutoCategorized int            `json:"auto_categorized_count"`
	NeedsReview     int            `json:"needs_review"`
	RejectedCount   int            `json:"rejected_count"`
	Rejections      []RowRejection `json:"rejections,omitempty"`
}

// Stager persists normalized candidates; the staging service implements it.
type Stager interface {
	Stage(ctx context.Context, userID uuid.UUID, batchID string, candidates []normalizer.Candidate) (*staging.StageResult, error)
}

type Service struct {
	staging    Stager
	metrics    *metrics.ImportMetrics
	logger     *slog.Logger
	maxRows    int
	dateFormat string
}

func NewService(stager Stager, m *metrics.ImportMetrics, logger *slog.Logger, maxRows int, dateFormat string) *Service {
	return &Service{
		staging:    stager,
		metrics:    m,
		logger:     logger,
		maxRows:    maxRows,
		dateFormat: dateFormat,
	}
}

// ImportStatement runs the full pipeline over decoded statement rows. The
// first row must be the header. Row-level failures never abort the batch;
// only structural problems (no header match, too many rows) do.
func (s *Service) ImportStatement(ctx context.Context, userID uuid.UUID, rows [][]string) (*Summary, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyStatement
	}

	header, data := rows[0], rows[1:]
	if len(data) > s.maxRows {
		return nil, &TooManyRowsError{Rows: len(data), Max: s.maxRows}
	}

	mapping, err := schema.Detect(header)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()[:8]
	opts := normalizer.Options{DateFormat: s.dateFormat, Now: time.Now()}

	candidates := make([]normalizer.Candidate, 0, len(data))
	var rejections []RowRejection
	for i, row := range data {
		// Header is row 1 of the file, so data rows start at 2.
		candidate, rowErr := normalizer.NormalizeRow(row, *mapping, i+2, opts)
		if rowErr != nil {
			rejections = append(rejections, RowRejection{
				Row:    rowErr.Row,
				Field:  rowErr.Field,
				Reason: rowErr.Message,
				Raw:    rowErr.Raw,
			})
			continue
		}
		candidates = append(candidates, *candidate)
	}

	staged, err := s.staging.Stage(ctx, userID, batchID, candidates)
	if err != nil {
		return nil, fmt.Errorf("staging batch %s: %w", batchID, err)
	}

	if s.metrics != nil {
		s.metrics.BatchesTotal.Inc()
		s.metrics.RowsImported.Add(float64(staged.Staged))
		s.metrics.RowsRejected.Add(float64(len(rejections)))
		s.metrics.RowsAutoMatched.Add(float64(staged.AutoCategorized))
	}

	summary := &Summary{
		BatchID:         batchID,
		TotalRowsSeen:   len(data),
		TotalImported:   staged.Staged,
		AutoCategorized: staged.AutoCategorized,
		NeedsReview:     staged.Staged - staged.AutoCategorized,
		RejectedCount:   len(rejections),
		Rejections:      rejections,
	}
	s.logger.Info("statement imported",
		"user_id", userID,
		"batch_id", summary.BatchID,
		"rows_seen", summary.TotalRowsSeen,
		"imported", summary.TotalImported,
		"auto_categorized", summary.AutoCategorized,
		"rejected", summary.RejectedCount,
	)
	return summary, nil
}
