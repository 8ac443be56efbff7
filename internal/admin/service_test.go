package admin

import (
	"context"
	"testing"

	"kycportal/internal/domain"
	"kycportal/internal/kyc"
	"kycportal/pkg/errors"
	"kycportal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) DeleteTx(ctx context.Context, tx kyc.Tx, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

type MockActorCleanup struct {
	mock.Mock
}

func (m *MockActorCleanup) NullifyActorTx(ctx context.Context, tx kyc.Tx, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

type MockGrantCleanup struct {
	mock.Mock
}

func (m *MockGrantCleanup) DeactivateGrantsForUserTx(ctx context.Context, tx kyc.Tx, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubTxManager struct {
	commits   int
	rollbacks int
}

func (m *stubTxManager) WithTx(ctx context.Context, fn func(tx kyc.Tx) error) error {
	if err := fn(stubTx{}); err != nil {
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

type adminFixture struct {
	users    *MockUserStore
	entities *MockActorCleanup
	grants   *MockGrantCleanup
	tx       *stubTxManager
	service  *Service
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		users:    new(MockUserStore),
		entities: new(MockActorCleanup),
		grants:   new(MockGrantCleanup),
		tx:       &stubTxManager{},
	}
	f.service = NewService(f.users, f.entities, f.grants, f.tx, logger.NewNop())
	return f
}

func TestCreateUserHashesPassword(t *testing.T) {
	f := newAdminFixture()

	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "new@example.com" && u.Active && u.PasswordHash != "Password123"
	})).Return(nil)

	user, err := f.service.CreateUser(context.Background(), CreateUserInput{
		Email:    "new@example.com",
		Name:     "New User",
		Password: "Password123",
		Role:     domain.RoleUser,
	})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Password123")))
}

func TestUpdateUserPartial(t *testing.T) {
	f := newAdminFixture()
	id := uuid.New()

	f.users.On("GetByID", mock.Anything, id).Return(&domain.User{
		ID: id, Email: "u@example.com", FullName: "Old Name", Role: domain.RoleUser, Active: true,
	}, nil)
	f.users.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.FullName == "New Name" && u.Role == domain.RoleManager && u.Active
	})).Return(nil)

	name := "New Name"
	role := domain.RoleManager
	user, err := f.service.UpdateUser(context.Background(), id, UpdateUserInput{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.FullName)
	assert.Equal(t, domain.RoleManager, user.Role)
}

func TestDeleteUserCleansReferencesInOneTransaction(t *testing.T) {
	f := newAdminFixture()
	id := uuid.New()

	f.users.On("GetByID", mock.Anything, id).Return(&domain.User{ID: id}, nil)
	f.entities.On("NullifyActorTx", mock.Anything, mock.Anything, id).Return(nil)
	f.grants.On("DeactivateGrantsForUserTx", mock.Anything, mock.Anything, id).Return(nil)
	f.users.On("DeleteTx", mock.Anything, mock.Anything, id).Return(nil)

	require.NoError(t, f.service.DeleteUser(context.Background(), id))
	assert.Equal(t, 1, f.tx.commits)
	f.entities.AssertExpectations(t)
	f.grants.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestDeleteUserRollsBackOnFailure(t *testing.T) {
	f := newAdminFixture()
	id := uuid.New()

	f.users.On("GetByID", mock.Anything, id).Return(&domain.User{ID: id}, nil)
	f.entities.On("NullifyActorTx", mock.Anything, mock.Anything, id).Return(nil)
	f.grants.On("DeactivateGrantsForUserTx", mock.Anything, mock.Anything, id).
		Return(errors.New("deadlock detected"))

	err := f.service.DeleteUser(context.Background(), id)
	assert.Error(t, err)
	assert.Equal(t, 1, f.tx.rollbacks)
	f.users.AssertNotCalled(t, "DeleteTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteUnknownUser(t *testing.T) {
	f := newAdminFixture()
	id := uuid.New()

	f.users.On("GetByID", mock.Anything, id).Return(nil, errors.ErrUserNotFound)

	err := f.service.DeleteUser(context.Background(), id)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	assert.Equal(t, 0, f.tx.commits)
}
