package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalHistoryRecord is one immutable row in the per-entity audit ledger.
// Exactly one row is appended per successful transition, in the same database
// transaction as the entity mutation. Rows are never updated; they are only
// removed as a cascade of entity deletion.
type ApprovalHistoryRecord struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	EntityID       uuid.UUID     `json:"entity_id" db:"entity_id"`
	UserID         *uuid.UUID    `json:"user_id" db:"user_id"`
	Action         HistoryAction `json:"action" db:"action"`
	PreviousStatus KYCStatus     `json:"previous_status" db:"previous_status"`
	NewStatus      KYCStatus     `json:"new_status" db:"new_status"`
	Comments       string        `json:"comments" db:"comments"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}
