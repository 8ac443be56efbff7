// Package kyc implements the customer/vendor onboarding rules and the
// approval state machine that moves records from draft to SAP.
package kyc

import (
	"context"

	"kycportal/internal/domain"

	"github.com/google/uuid"
)

// Tx is an open storage transaction. The concrete type lives in the
// repository package; services only ever pass it back through store methods.
type Tx interface {
	Commit() error
	Rollback() error
}

// TxManager runs a function inside one storage transaction. Every workflow
// transition uses it so the entity mutation and the history append commit or
// roll back together.
type TxManager interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// EntityFilter narrows entity listings. Zero values disable a filter.
type EntityFilter struct {
	Kind       domain.EntityKind
	Status     domain.KYCStatus
	DivisionID uuid.UUID
	CreatedBy  uuid.UUID
}

// EntityStore persists customer/vendor records.
type EntityStore interface {
	Create(ctx context.Context, e *domain.KYCEntity) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.KYCEntity, error)
	List(ctx context.Context, filter EntityFilter) ([]*domain.KYCEntity, error)
	UpdateBusinessFields(ctx context.Context, e *domain.KYCEntity) error
	UpdateWorkflowTx(ctx context.Context, tx Tx, e *domain.KYCEntity) error
	DeleteTx(ctx context.Context, tx Tx, id uuid.UUID) error
	PendingForGrant(ctx context.Context, divisionID uuid.UUID, level int) ([]*domain.KYCEntity, error)
}

// HistoryStore persists the append-only approval ledger.
type HistoryStore interface {
	AppendTx(ctx context.Context, tx Tx, rec *domain.ApprovalHistoryRecord) error
	ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*domain.ApprovalHistoryRecord, error)
	DeleteByEntityTx(ctx context.Context, tx Tx, entityID uuid.UUID) error
}

// GrantStore answers division and approval-grant lookups.
type GrantStore interface {
	GetDivision(ctx context.Context, id uuid.UUID) (*domain.Division, error)
	MaxApprovalLevel(ctx context.Context, divisionID uuid.UUID) (int, error)
	GetGrant(ctx context.Context, userID, divisionID uuid.UUID) (*domain.ApprovalGrant, error)
	ListGrantsForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ApprovalGrant, error)
}

// UserDirectory resolves actors for role re-checks.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// ERPSink is the external SAP Business One collaborator. It is fallible and
// outside the state machine's trust boundary: a sink failure must leave local
// state untouched.
type ERPSink interface {
	CreateBusinessPartner(ctx context.Context, e *domain.KYCEntity) (cardCode string, err error)
}
