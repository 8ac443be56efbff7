// Package domain defines the core business entities for the KYC onboarding portal.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntityKind distinguishes customer records from vendor records. The two kinds
// share the approval workflow but keep independent code/email namespaces.
type EntityKind string

const (
	EntityKindCustomer EntityKind = "customer"
	EntityKindVendor   EntityKind = "vendor"
)

// KYCStatus represents the approval workflow status of an entity. Values are
// persisted verbatim and must round-trip exactly for UI filtering.
type KYCStatus string

const (
	KYCStatusDraft       KYCStatus = "DRAFT"
	KYCStatusSubmitted   KYCStatus = "SUBMITTED"
	KYCStatusApprovedL1  KYCStatus = "APPROVED_L1"
	KYCStatusApprovedL2  KYCStatus = "APPROVED_L2"
	KYCStatusApprovedL3  KYCStatus = "APPROVED_L3"
	KYCStatusReadyForSAP KYCStatus = "READY_FOR_SAP"
	KYCStatusSyncedToSAP KYCStatus = "SYNCED_TO_SAP"
	KYCStatusRejected    KYCStatus = "REJECTED"
)

// Editable reports whether business fields may still be modified.
// Only drafts are editable; everything past submission is frozen.
func (s KYCStatus) Editable() bool {
	return s == KYCStatusDraft
}

// Deletable reports whether the record may be removed.
func (s KYCStatus) Deletable() bool {
	return s == KYCStatusDraft || s == KYCStatusRejected
}

// Rejectable reports whether the record may still be rejected. Drafts are
// deleted rather than rejected; READY_FOR_SAP and later are frozen.
func (s KYCStatus) Rejectable() bool {
	switch s {
	case KYCStatusSubmitted, KYCStatusApprovedL1, KYCStatusApprovedL2, KYCStatusApprovedL3:
		return true
	}
	return false
}

// MaxApprovalLevels is the highest approval level the workflow models.
const MaxApprovalLevels = 3

// HistoryAction identifies the transition recorded by a history row.
type HistoryAction string

const (
	ActionSubmit    HistoryAction = "SUBMIT"
	ActionApproveL1 HistoryAction = "APPROVE_L1"
	ActionApproveL2 HistoryAction = "APPROVE_L2"
	ActionApproveL3 HistoryAction = "APPROVE_L3"
	ActionReject    HistoryAction = "REJECT"
	ActionSyncSAP   HistoryAction = "SYNC_SAP"
)

// ApproveAction returns the history action for an approval at the given level.
func ApproveAction(level int) HistoryAction {
	switch level {
	case 1:
		return ActionApproveL1
	case 2:
		return ActionApproveL2
	case 3:
		return ActionApproveL3
	}
	return ""
}

// KYCEntity is a customer or vendor record moving through the approval chain.
// RequiredLevels is snapshotted from the division's grant configuration at
// creation time and never re-derived afterwards.
type KYCEntity struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Kind       EntityKind `json:"kind" db:"kind"`
	Code       string     `json:"code" db:"code"`
	Name       string     `json:"name" db:"name"`
	Email      string     `json:"email" db:"email"`
	Phone      string     `json:"phone" db:"phone"`
	Address    string     `json:"address" db:"address"`
	TaxID      string     `json:"tax_id" db:"tax_id"`
	DivisionID uuid.UUID  `json:"division_id" db:"division_id"`

	CreditLimit decimal.Decimal `json:"credit_limit" db:"credit_limit"`

	Status         KYCStatus `json:"status" db:"status"`
	RequiredLevels int       `json:"required_levels" db:"required_levels"`

	SubmittedBy *uuid.UUID `json:"submitted_by,omitempty" db:"submitted_by"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`

	ApprovedByLevel1 *uuid.UUID `json:"approved_by_level1,omitempty" db:"approved_by_level1"`
	ApprovedAtLevel1 *time.Time `json:"approved_at_level1,omitempty" db:"approved_at_level1"`
	ApprovedByLevel2 *uuid.UUID `json:"approved_by_level2,omitempty" db:"approved_by_level2"`
	ApprovedAtLevel2 *time.Time `json:"approved_at_level2,omitempty" db:"approved_at_level2"`
	ApprovedByLevel3 *uuid.UUID `json:"approved_by_level3,omitempty" db:"approved_by_level3"`
	ApprovedAtLevel3 *time.Time `json:"approved_at_level3,omitempty" db:"approved_at_level3"`

	RejectedBy     *uuid.UUID `json:"rejected_by,omitempty" db:"rejected_by"`
	RejectedAt     *time.Time `json:"rejected_at,omitempty" db:"rejected_at"`
	RejectedReason string     `json:"rejected_reason" db:"rejected_reason"`

	SyncedBy    *uuid.UUID `json:"synced_by,omitempty" db:"synced_by"`
	SyncedAt    *time.Time `json:"synced_at,omitempty" db:"synced_at"`
	SAPCardCode string     `json:"sap_card_code" db:"sap_card_code"`

	CreatedBy  uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
	RowVersion int       `json:"-" db:"row_version"`
}

// StampApproval records the approver and timestamp for the given level.
func (e *KYCEntity) StampApproval(level int, actorID uuid.UUID, at time.Time) {
	switch level {
	case 1:
		e.ApprovedByLevel1, e.ApprovedAtLevel1 = &actorID, &at
	case 2:
		e.ApprovedByLevel2, e.ApprovedAtLevel2 = &actorID, &at
	case 3:
		e.ApprovedByLevel3, e.ApprovedAtLevel3 = &actorID, &at
	}
}
