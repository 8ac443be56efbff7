package kyc

import (
	"context"
	"fmt"
	"time"

	"kycportal/internal/domain"
	"kycportal/pkg/errors"
	"kycportal/pkg/logger"

	"github.com/google/uuid"
)

// Workflow is the approval state machine. It owns every KYCStatus mutation
// and every history append; no other component writes either. Each transition
// validates the current status and the actor's grant, stamps actor and
// timestamp, and commits the entity update together with exactly one ledger
// row.
type Workflow struct {
	entities EntityStore
	history  HistoryStore
	grants   GrantStore
	users    UserDirectory
	sink     ERPSink
	tx       TxManager
	logger   logger.Logger
}

// NewWorkflow wires the state machine with its collaborators.
func NewWorkflow(
	entities EntityStore,
	history HistoryStore,
	grants GrantStore,
	users UserDirectory,
	sink ERPSink,
	tx TxManager,
	log logger.Logger,
) *Workflow {
	return &Workflow{
		entities: entities,
		history:  history,
		grants:   grants,
		users:    users,
		sink:     sink,
		tx:       tx,
		logger:   log,
	}
}

// Submit moves a draft into the approval chain: DRAFT -> SUBMITTED.
func (w *Workflow) Submit(ctx context.Context, entityID, actorID uuid.UUID) (*domain.KYCEntity, error) {
	e, err := w.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	if e.Status != domain.KYCStatusDraft {
		return nil, errors.Ef(errors.KindInvalidStateTransition,
			"entity in status %s cannot be submitted; only drafts can", e.Status)
	}

	now := time.Now().UTC()
	prev := e.Status
	e.Status = domain.KYCStatusSubmitted
	e.SubmittedBy = &actorID
	e.SubmittedAt = &now

	if err := w.commitTransition(ctx, e, prev, actorID, domain.ActionSubmit, "Submitted for approval", now); err != nil {
		return nil, err
	}

	w.logger.Info("Entity submitted", map[string]interface{}{
		"entity_id":       e.ID,
		"division_id":     e.DivisionID,
		"required_levels": e.RequiredLevels,
		"actor_id":        actorID,
	})

	return e, nil
}

// Approve advances an entity one approval level. The acting level is derived
// from the actor's grant for the entity's division, never chosen by the
// caller: a level-1 manager cannot approve "as level 2". When requestedLevel
// is non-zero it is cross-checked against the grant and a mismatch is
// rejected. Approving at the final required level jumps straight to
// READY_FOR_SAP.
func (w *Workflow) Approve(ctx context.Context, entityID, actorID uuid.UUID, requestedLevel int, comments string) (*domain.KYCEntity, error) {
	e, err := w.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	grant, err := w.grants.GetGrant(ctx, actorID, e.DivisionID)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			return nil, errors.E(errors.KindUnauthorized, "user has no approval level for this division")
		}
		return nil, err
	}

	level := grant.ApprovalLevel
	if level < 1 || level > domain.MaxApprovalLevels {
		return nil, errors.Ef(errors.KindInvalidApprovalLevel,
			"grant level %d does not correspond to an approval stage", level)
	}
	if requestedLevel != 0 && requestedLevel != level {
		return nil, errors.Ef(errors.KindInvalidApprovalLevel,
			"requested level %d does not match granted level %d", requestedLevel, level)
	}

	var next domain.KYCStatus
	switch level {
	case 1:
		if e.Status != domain.KYCStatusSubmitted {
			return nil, errors.Ef(errors.KindInvalidStateTransition,
				"entity in status %s is not awaiting level 1 approval", e.Status)
		}
		next = domain.KYCStatusApprovedL1
	case 2:
		if e.RequiredLevels < 2 {
			return nil, errors.E(errors.KindInvalidStateTransition,
				"entity does not require level 2 approval")
		}
		if e.Status != domain.KYCStatusApprovedL1 {
			return nil, errors.Ef(errors.KindInvalidStateTransition,
				"entity in status %s is not awaiting level 2 approval", e.Status)
		}
		next = domain.KYCStatusApprovedL2
	case 3:
		if e.RequiredLevels < 3 {
			return nil, errors.E(errors.KindInvalidStateTransition,
				"entity does not require level 3 approval")
		}
		if e.Status != domain.KYCStatusApprovedL2 {
			return nil, errors.Ef(errors.KindInvalidStateTransition,
				"entity in status %s is not awaiting level 3 approval", e.Status)
		}
		next = domain.KYCStatusApprovedL3
	}

	// Approval at the final required level completes the chain.
	if level >= e.RequiredLevels {
		next = domain.KYCStatusReadyForSAP
	}

	now := time.Now().UTC()
	prev := e.Status
	e.Status = next
	e.StampApproval(level, actorID, now)

	if comments == "" {
		comments = fmt.Sprintf("Approved at level %d", level)
	}

	if err := w.commitTransition(ctx, e, prev, actorID, domain.ApproveAction(level), comments, now); err != nil {
		return nil, err
	}

	w.logger.Info("Entity approved", map[string]interface{}{
		"entity_id":   e.ID,
		"division_id": e.DivisionID,
		"level":       level,
		"from_status": prev,
		"to_status":   next,
		"actor_id":    actorID,
	})

	return e, nil
}

// Reject moves an in-flight entity to the absorbing REJECTED state. A reason
// is mandatory. Drafts are deleted rather than rejected, and terminal states
// stay frozen.
func (w *Workflow) Reject(ctx context.Context, entityID, actorID uuid.UUID, reason string) (*domain.KYCEntity, error) {
	if reason == "" {
		return nil, errors.E(errors.KindValidation, "rejection reason is required")
	}

	e, err := w.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	if !e.Status.Rejectable() {
		return nil, errors.Ef(errors.KindInvalidStateTransition,
			"entity in status %s cannot be rejected", e.Status)
	}

	now := time.Now().UTC()
	prev := e.Status
	e.Status = domain.KYCStatusRejected
	e.RejectedBy = &actorID
	e.RejectedAt = &now
	e.RejectedReason = reason

	if err := w.commitTransition(ctx, e, prev, actorID, domain.ActionReject, reason, now); err != nil {
		return nil, err
	}

	w.logger.Info("Entity rejected", map[string]interface{}{
		"entity_id":   e.ID,
		"division_id": e.DivisionID,
		"from_status": prev,
		"actor_id":    actorID,
	})

	return e, nil
}

// SyncToSAP is the terminal gate: READY_FOR_SAP -> SYNCED_TO_SAP, IT actors
// only. The external sink is invoked before any local write; a sink failure
// leaves the entity READY_FOR_SAP so an operator can retry.
func (w *Workflow) SyncToSAP(ctx context.Context, entityID, actorID uuid.UUID) (*domain.KYCEntity, error) {
	actor, err := w.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleITAdmin {
		return nil, errors.E(errors.KindUnauthorized, "only IT administrators can sync records to SAP")
	}

	e, err := w.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, err
	}

	if e.Status != domain.KYCStatusReadyForSAP {
		return nil, errors.Ef(errors.KindInvalidStateTransition,
			"entity in status %s is not ready for SAP sync", e.Status)
	}

	cardCode, err := w.sink.CreateBusinessPartner(ctx, e)
	if err != nil {
		w.logger.Error("SAP sync failed", map[string]interface{}{
			"entity_id": e.ID,
			"error":     err.Error(),
		})
		return nil, errors.WrapKind(errors.KindExternalSink, err, "failed to create business partner in SAP")
	}

	now := time.Now().UTC()
	prev := e.Status
	e.Status = domain.KYCStatusSyncedToSAP
	e.SyncedBy = &actorID
	e.SyncedAt = &now
	e.SAPCardCode = cardCode

	comment := fmt.Sprintf("Synced to SAP as %s", cardCode)
	if err := w.commitTransition(ctx, e, prev, actorID, domain.ActionSyncSAP, comment, now); err != nil {
		return nil, err
	}

	w.logger.Info("Entity synced to SAP", map[string]interface{}{
		"entity_id":     e.ID,
		"sap_card_code": cardCode,
		"actor_id":      actorID,
	})

	return e, nil
}

// PendingApproval is one entry of a manager's work queue.
type PendingApproval struct {
	Entity *domain.KYCEntity `json:"entity"`
	Level  int               `json:"level"`
}

// PendingForManager returns everything the manager can act on right now: for
// each active grant, the division's entities sitting at that grant's stage.
// A non-nil divisionID restricts the queue to one division.
func (w *Workflow) PendingForManager(ctx context.Context, managerID uuid.UUID, divisionID *uuid.UUID) ([]PendingApproval, error) {
	grants, err := w.grants.ListGrantsForUser(ctx, managerID)
	if err != nil {
		return nil, err
	}

	pending := []PendingApproval{}
	for _, g := range grants {
		if g.ApprovalLevel < 1 || g.ApprovalLevel > domain.MaxApprovalLevels {
			continue
		}
		if divisionID != nil && g.DivisionID != *divisionID {
			continue
		}

		entities, err := w.entities.PendingForGrant(ctx, g.DivisionID, g.ApprovalLevel)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			pending = append(pending, PendingApproval{Entity: e, Level: g.ApprovalLevel})
		}
	}

	return pending, nil
}

// commitTransition persists the entity mutation and appends the matching
// ledger row in one transaction. If either write fails both roll back, so the
// status can never disagree with the audit trail.
func (w *Workflow) commitTransition(
	ctx context.Context,
	e *domain.KYCEntity,
	prev domain.KYCStatus,
	actorID uuid.UUID,
	action domain.HistoryAction,
	comments string,
	at time.Time,
) error {
	rec := &domain.ApprovalHistoryRecord{
		ID:             uuid.New(),
		EntityID:       e.ID,
		UserID:         &actorID,
		Action:         action,
		PreviousStatus: prev,
		NewStatus:      e.Status,
		Comments:       comments,
		CreatedAt:      at,
	}

	return w.tx.WithTx(ctx, func(tx Tx) error {
		if err := w.entities.UpdateWorkflowTx(ctx, tx, e); err != nil {
			return err
		}
		return w.history.AppendTx(ctx, tx, rec)
	})
}
