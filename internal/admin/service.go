// Package admin manages portal user accounts.
package admin

import (
	"context"

	"kycportal/internal/auth"
	"kycportal/internal/domain"
	"kycportal/internal/kyc"
	"kycportal/pkg/errors"
	"kycportal/pkg/logger"

	"github.com/google/uuid"
)

// UserStore is the persistence surface for user accounts.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	DeleteTx(ctx context.Context, tx kyc.Tx, id uuid.UUID) error
}

// ActorCleanup nullifies references an entity record holds to a user.
type ActorCleanup interface {
	NullifyActorTx(ctx context.Context, tx kyc.Tx, userID uuid.UUID) error
}

// GrantCleanup deactivates a user's approval grants.
type GrantCleanup interface {
	DeactivateGrantsForUserTx(ctx context.Context, tx kyc.Tx, userID uuid.UUID) error
}

// Service implements user administration.
type Service struct {
	users    UserStore
	entities ActorCleanup
	grants   GrantCleanup
	tx       kyc.TxManager
	logger   logger.Logger
}

// NewService creates the admin service.
func NewService(users UserStore, entities ActorCleanup, grants GrantCleanup, tx kyc.TxManager, log logger.Logger) *Service {
	return &Service{
		users:    users,
		entities: entities,
		grants:   grants,
		tx:       tx,
		logger:   log,
	}
}

// CreateUserInput carries the fields for a new account.
type CreateUserInput struct {
	Email    string      `json:"email" validate:"required,email"`
	Name     string      `json:"name" validate:"required,min=1,max=120"`
	Password string      `json:"password" validate:"required,min=8"`
	Role     domain.Role `json:"role" validate:"required,oneof=user manager itadmin"`
}

// UpdateUserInput carries mutable account fields. Nil fields are unchanged.
type UpdateUserInput struct {
	Name     *string      `json:"name" validate:"omitempty,min=1,max=120"`
	Password *string      `json:"password" validate:"omitempty,min=8"`
	Role     *domain.Role `json:"role" validate:"omitempty,oneof=user manager itadmin"`
	Active   *bool        `json:"active"`
}

// CreateUser registers a new account with a hashed password.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        in.Email,
		FullName:     in.Name,
		PasswordHash: hash,
		Role:         in.Role,
		Active:       true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, nil
}

// GetUser returns a single account.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// UpdateUser applies partial changes to an account.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.FullName = *in.Name
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.Active != nil {
		user.Active = *in.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. Entity records keep their history but lose
// direct references to the user, and the user's grants are deactivated, all
// in one transaction with the deletion.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}

	err := s.tx.WithTx(ctx, func(tx kyc.Tx) error {
		if err := s.entities.NullifyActorTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.grants.DeactivateGrantsForUserTx(ctx, tx, id); err != nil {
			return err
		}
		return s.users.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}

	s.logger.Info("User deleted", map[string]interface{}{
		"user_id": id,
	})
	return nil
}
