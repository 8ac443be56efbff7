// Package division manages divisions and per-user approval grants.
package division

import (
	"context"
	"time"

	"kycportal/internal/domain"
	"kycportal/pkg/errors"
	"kycportal/pkg/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreateDivision(ctx context.Context, d *domain.Division) error
	GetDivision(ctx context.Context, id uuid.UUID) (*domain.Division, error)
	ListDivisions(ctx context.Context, activeOnly bool) ([]*domain.Division, error)
	UpdateDivision(ctx context.Context, d *domain.Division) error
	MaxApprovalLevel(ctx context.Context, divisionID uuid.UUID) (int, error)
	GetGrant(ctx context.Context, userID, divisionID uuid.UUID) (*domain.ApprovalGrant, error)
	ListGrantsForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ApprovalGrant, error)
	UpsertGrant(ctx context.Context, g *domain.ApprovalGrant) error
	RevokeGrant(ctx context.Context, userID, divisionID uuid.UUID) error
}

// UserDirectory resolves users when grants are issued.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Service implements division and grant administration for IT admins.
type Service struct {
	store  Store
	users  UserDirectory
	logger logger.Logger
}

// NewService creates the division service.
func NewService(store Store, users UserDirectory, log logger.Logger) *Service {
	return &Service{store: store, users: users, logger: log}
}

// DivisionInput carries division fields for create/update.
type DivisionInput struct {
	Code   string `json:"code" validate:"required,entity_code"`
	Name   string `json:"name" validate:"required,max=100"`
	Active bool   `json:"active"`
}

// Create registers a new division.
func (s *Service) Create(ctx context.Context, in DivisionInput) (*domain.Division, error) {
	now := time.Now().UTC()
	d := &domain.Division{
		ID:        uuid.New(),
		Code:      in.Code,
		Name:      in.Name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateDivision(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("Division created", map[string]interface{}{
		"division_id": d.ID,
		"code":        d.Code,
	})

	return d, nil
}

// Get returns one division.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Division, error) {
	return s.store.GetDivision(ctx, id)
}

// List returns divisions, optionally only active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*domain.Division, error) {
	return s.store.ListDivisions(ctx, activeOnly)
}

// Update changes a division's name or active flag. The code is a stable
// business key and cannot change; divisions referenced by entities or grants
// are deactivated, never deleted.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in DivisionInput) (*domain.Division, error) {
	d, err := s.store.GetDivision(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Code != d.Code {
		return nil, errors.E(errors.KindValidation, "division code cannot be changed")
	}

	d.Name = in.Name
	d.Active = in.Active
	if err := s.store.UpdateDivision(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("Division updated", map[string]interface{}{
		"division_id": d.ID,
		"active":      d.Active,
	})

	return d, nil
}

// GrantInput assigns a user an approval level within a division.
type GrantInput struct {
	UserID        uuid.UUID `json:"user_id" validate:"required"`
	DivisionID    uuid.UUID `json:"division_id" validate:"required"`
	ApprovalLevel int       `json:"approval_level" validate:"gte=0,lte=3"`
}

// Grant issues or replaces the user's approval grant for a division. At most
// one active grant per (user, division) pair survives the call.
func (s *Service) Grant(ctx context.Context, in GrantInput) (*domain.ApprovalGrant, error) {
	if in.ApprovalLevel < 0 || in.ApprovalLevel > domain.MaxApprovalLevels {
		return nil, errors.Ef(errors.KindInvalidApprovalLevel,
			"approval level must be between 0 and %d", domain.MaxApprovalLevels)
	}

	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	d, err := s.store.GetDivision(ctx, in.DivisionID)
	if err != nil {
		return nil, err
	}
	if !d.Active {
		return nil, errors.E(errors.KindValidation, "division is not active")
	}

	g := &domain.ApprovalGrant{
		ID:            uuid.New(),
		UserID:        in.UserID,
		DivisionID:    in.DivisionID,
		ApprovalLevel: in.ApprovalLevel,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.UpsertGrant(ctx, g); err != nil {
		return nil, err
	}

	s.logger.Info("Approval grant issued", map[string]interface{}{
		"user_id":        g.UserID,
		"division_id":    g.DivisionID,
		"approval_level": g.ApprovalLevel,
	})

	return g, nil
}

// Revoke deactivates the user's grant for a division.
func (s *Service) Revoke(ctx context.Context, userID, divisionID uuid.UUID) error {
	if err := s.store.RevokeGrant(ctx, userID, divisionID); err != nil {
		return err
	}

	s.logger.Info("Approval grant revoked", map[string]interface{}{
		"user_id":     userID,
		"division_id": divisionID,
	})

	return nil
}

// GrantsForUser lists a user's active grants.
func (s *Service) GrantsForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ApprovalGrant, error) {
	return s.store.ListGrantsForUser(ctx, userID)
}
