package rules

import (
	"time"

	"github.com/google/uuid"
)

// ImportRule maps a keyword to a category. During staging, a pending
// transaction whose description contains the keyword (case-insensitive)
// gets the rule's category applied automatically.
type ImportRule struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Keyword    string    `json:"keyword"`
	CategoryID uuid.UUID `json:"category_id"`
	Priority   int       `json:"priority"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateRuleInput carries the fields a user supplies when creating a rule.
type CreateRuleInput struct {
	Keyword    string    `json:"keyword"`
	CategoryID uuid.UUID `json:"category_id"`
	Priority   int       `json:"priority"`
	IsActive   *bool     `json:"is_active"`
}

// UpdateRuleInput carries partial updates; nil fields are left unchanged.
type UpdateRuleInput struct {
	Keyword    *string    `json:"keyword"`
	CategoryID *uuid.UUID `json:"category_id"`
	Priority   *int       `json:"priority"`
	IsActive   *bool      `json:"is_active"`
}
