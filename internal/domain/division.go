package domain

import (
	"time"

	"github.com/google/uuid"
)

// Division is an organizational unit entities are registered under. Divisions
// are never hard-deleted once referenced; they are deactivated instead.
type Division struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ApprovalGrant gives a user the right to act at one approval level within a
// division. Level 0 means data-entry access with no approval gate. Correct
// configuration holds at most one active grant per (user, division) pair; the
// store enforces this at write time.
type ApprovalGrant struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	DivisionID    uuid.UUID `json:"division_id" db:"division_id"`
	ApprovalLevel int       `json:"approval_level" db:"approval_level"`
	Active        bool      `json:"active" db:"active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
