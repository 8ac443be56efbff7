package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role describes what part of the portal a user operates.
type Role string

const (
	RoleUser    Role = "user"    // data entry: create and edit drafts
	RoleManager Role = "manager" // approves at granted division/level
	RoleITAdmin Role = "itadmin" // user/division management and SAP sync
)

// User is a portal account. The approval core only consumes the ID and Role;
// authentication itself happens at the API boundary.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	Role         Role      `json:"role" db:"role"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
