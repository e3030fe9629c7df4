// Package staging holds imported rows awaiting user review. Rows live in
// pending_transactions until the user confirms them into the ledger or
// deletes them.
package staging

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPendingNotFound  = errors.New("pending transaction not found")
	ErrCategoryNotOwned = errors.New("category does not belong to user")
)

// PendingTransaction is a normalized statement row staged for review.
type PendingTransaction struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	CategoryID      *uuid.UUID      `json:"category_id"`
	Amount          decimal.Decimal `json:"amount"`
	Kind            string          `json:"kind"`
	Description     string          `json:"description"`
	Date            time.Time       `json:"date"`
	AutoCategorized bool            `json:"auto_categorized"`
	BatchID         string          `json:"batch_id"`
	CreatedAt       time.Time       `json:"created_at"`
}
