package kyc

import (
	"context"
	"time"

	"kycportal/internal/domain"
	"kycportal/pkg/errors"
	"kycportal/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service manages the customer/vendor record store: creation with the
// required-levels snapshot, draft editing, and deletion with history cascade.
type Service struct {
	entities EntityStore
	history  HistoryStore
	grants   GrantStore
	tx       TxManager
	logger   logger.Logger
}

// NewService creates the entity store service.
func NewService(entities EntityStore, history HistoryStore, grants GrantStore, tx TxManager, log logger.Logger) *Service {
	return &Service{
		entities: entities,
		history:  history,
		grants:   grants,
		tx:       tx,
		logger:   log,
	}
}

// EntityInput carries the business fields of a customer/vendor record.
type EntityInput struct {
	Kind        domain.EntityKind `json:"kind" validate:"required,oneof=customer vendor"`
	Code        string            `json:"code" validate:"required,entity_code"`
	Name        string            `json:"name" validate:"required,max=100"`
	Email       string            `json:"email" validate:"required,email"`
	Phone       string            `json:"phone" validate:"max=30"`
	Address     string            `json:"address" validate:"required,max=250"`
	TaxID       string            `json:"tax_id" validate:"max=50"`
	CreditLimit decimal.Decimal   `json:"credit_limit" validate:"gte=0"`
	DivisionID  uuid.UUID         `json:"division_id" validate:"required"`
}

// Create registers a new draft. RequiredLevels is snapshotted here from the
// division's current grant configuration and never re-derived: later changes
// to grants do not retroactively alter in-flight records.
func (s *Service) Create(ctx context.Context, in EntityInput, createdBy uuid.UUID) (*domain.KYCEntity, error) {
	division, err := s.grants.GetDivision(ctx, in.DivisionID)
	if err != nil {
		return nil, err
	}
	if !division.Active {
		return nil, errors.E(errors.KindValidation, "division is not active")
	}

	required, err := s.requiredLevels(ctx, in.DivisionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	e := &domain.KYCEntity{
		ID:             uuid.New(),
		Kind:           in.Kind,
		Code:           in.Code,
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		Address:        in.Address,
		TaxID:          in.TaxID,
		CreditLimit:    in.CreditLimit,
		DivisionID:     in.DivisionID,
		Status:         domain.KYCStatusDraft,
		RequiredLevels: required,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
		RowVersion:     1,
	}

	if err := s.entities.Create(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("Entity created", map[string]interface{}{
		"entity_id":       e.ID,
		"kind":            e.Kind,
		"code":            e.Code,
		"division_id":     e.DivisionID,
		"required_levels": e.RequiredLevels,
		"created_by":      createdBy,
	})

	return e, nil
}

// requiredLevels snapshots how many approval stages the division demands.
// A division with no approver grants still requires one approval so a record
// can never skip straight from submission to SAP.
func (s *Service) requiredLevels(ctx context.Context, divisionID uuid.UUID) (int, error) {
	max, err := s.grants.MaxApprovalLevel(ctx, divisionID)
	if err != nil {
		return 0, err
	}
	if max < 1 {
		return 1, nil
	}
	if max > domain.MaxApprovalLevels {
		return domain.MaxApprovalLevels, nil
	}
	return max, nil
}

// Get returns one entity.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.KYCEntity, error) {
	return s.entities.GetByID(ctx, id)
}

// List returns entities matching the filter.
func (s *Service) List(ctx context.Context, filter EntityFilter) ([]*domain.KYCEntity, error) {
	return s.entities.List(ctx, filter)
}

// History returns the approval ledger for an entity, newest first.
func (s *Service) History(ctx context.Context, entityID uuid.UUID) ([]*domain.ApprovalHistoryRecord, error) {
	if _, err := s.entities.GetByID(ctx, entityID); err != nil {
		return nil, err
	}
	return s.history.ListByEntity(ctx, entityID)
}

// Update modifies business fields of a draft. Records past DRAFT are frozen;
// the attempt is rejected, not silently ignored. Moving a draft to another
// division re-snapshots RequiredLevels since the workflow has not started.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in EntityInput) (*domain.KYCEntity, error) {
	e, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !e.Status.Editable() {
		return nil, errors.Ef(errors.KindInvalidStateTransition,
			"entity in status %s cannot be edited; only drafts can", e.Status)
	}
	if in.Kind != e.Kind {
		return nil, errors.E(errors.KindValidation, "entity kind cannot be changed")
	}

	if in.DivisionID != e.DivisionID {
		division, err := s.grants.GetDivision(ctx, in.DivisionID)
		if err != nil {
			return nil, err
		}
		if !division.Active {
			return nil, errors.E(errors.KindValidation, "division is not active")
		}
		required, err := s.requiredLevels(ctx, in.DivisionID)
		if err != nil {
			return nil, err
		}
		e.DivisionID = in.DivisionID
		e.RequiredLevels = required
	}

	e.Code = in.Code
	e.Name = in.Name
	e.Email = in.Email
	e.Phone = in.Phone
	e.Address = in.Address
	e.TaxID = in.TaxID
	e.CreditLimit = in.CreditLimit

	if err := s.entities.UpdateBusinessFields(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("Entity updated", map[string]interface{}{
		"entity_id": e.ID,
		"code":      e.Code,
	})

	return e, nil
}

// Delete removes a draft or rejected record along with its history rows, in
// one transaction. Anything else in flight or synced is not deletable.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	e, err := s.entities.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !e.Status.Deletable() {
		return errors.Ef(errors.KindInvalidStateTransition,
			"entity in status %s cannot be deleted; only DRAFT or REJECTED records can", e.Status)
	}

	err = s.tx.WithTx(ctx, func(tx Tx) error {
		if err := s.history.DeleteByEntityTx(ctx, tx, id); err != nil {
			return err
		}
		return s.entities.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Entity deleted", map[string]interface{}{
		"entity_id": id,
		"status":    e.Status,
	})

	return nil
}
