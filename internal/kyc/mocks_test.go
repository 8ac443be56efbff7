package kyc

import (
	"context"

	"kycportal/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mocks

type MockEntityStore struct {
	mock.Mock
}

func (m *MockEntityStore) Create(ctx context.Context, e *domain.KYCEntity) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEntityStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.KYCEntity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KYCEntity), args.Error(1)
}

func (m *MockEntityStore) List(ctx context.Context, filter EntityFilter) ([]*domain.KYCEntity, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KYCEntity), args.Error(1)
}

func (m *MockEntityStore) UpdateBusinessFields(ctx context.Context, e *domain.KYCEntity) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEntityStore) UpdateWorkflowTx(ctx context.Context, tx Tx, e *domain.KYCEntity) error {
	args := m.Called(ctx, tx, e)
	return args.Error(0)
}

func (m *MockEntityStore) DeleteTx(ctx context.Context, tx Tx, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockEntityStore) PendingForGrant(ctx context.Context, divisionID uuid.UUID, level int) ([]*domain.KYCEntity, error) {
	args := m.Called(ctx, divisionID, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KYCEntity), args.Error(1)
}

type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) AppendTx(ctx context.Context, tx Tx, rec *domain.ApprovalHistoryRecord) error {
	args := m.Called(ctx, tx, rec)
	return args.Error(0)
}

func (m *MockHistoryStore) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*domain.ApprovalHistoryRecord, error) {
	args := m.Called(ctx, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ApprovalHistoryRecord), args.Error(1)
}

func (m *MockHistoryStore) DeleteByEntityTx(ctx context.Context, tx Tx, entityID uuid.UUID) error {
	args := m.Called(ctx, tx, entityID)
	return args.Error(0)
}

type MockGrantStore struct {
	mock.Mock
}

func (m *MockGrantStore) GetDivision(ctx context.Context, id uuid.UUID) (*domain.Division, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Division), args.Error(1)
}

func (m *MockGrantStore) MaxApprovalLevel(ctx context.Context, divisionID uuid.UUID) (int, error) {
	args := m.Called(ctx, divisionID)
	return args.Int(0), args.Error(1)
}

func (m *MockGrantStore) GetGrant(ctx context.Context, userID, divisionID uuid.UUID) (*domain.ApprovalGrant, error) {
	args := m.Called(ctx, userID, divisionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApprovalGrant), args.Error(1)
}

func (m *MockGrantStore) ListGrantsForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ApprovalGrant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ApprovalGrant), args.Error(1)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockERPSink struct {
	mock.Mock
}

func (m *MockERPSink) CreateBusinessPartner(ctx context.Context, e *domain.KYCEntity) (string, error) {
	args := m.Called(ctx, e)
	return args.String(0), args.Error(1)
}

// stubTxManager mirrors the real transaction manager's semantics: the
// function's error decides between commit and rollback.

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubTxManager struct {
	commits   int
	rollbacks int
}

func (m *stubTxManager) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := fn(stubTx{}); err != nil {
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}
