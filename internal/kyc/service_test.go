package kyc

import (
	"context"
	"testing"

	"kycportal/internal/domain"
	"kycportal/pkg/errors"
	"kycportal/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type serviceFixture struct {
	entities *MockEntityStore
	history  *MockHistoryStore
	grants   *MockGrantStore
	tx       *stubTxManager
	service  *Service
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		entities: new(MockEntityStore),
		history:  new(MockHistoryStore),
		grants:   new(MockGrantStore),
		tx:       &stubTxManager{},
	}
	f.service = NewService(f.entities, f.history, f.grants, f.tx, logger.NewNop())
	return f
}

func activeDivision(id uuid.UUID) *domain.Division {
	return &domain.Division{ID: id, Code: "SALES", Name: "Sales", Active: true}
}

func entityInput(divisionID uuid.UUID) EntityInput {
	return EntityInput{
		Kind:        domain.EntityKindCustomer,
		Code:        "CUST001",
		Name:        "Acme Ltd",
		Email:       "finance@acme.example",
		Address:     "1 Main Street",
		CreditLimit: decimal.NewFromInt(50000),
		DivisionID:  divisionID,
	}
}

func TestCreateSnapshotsRequiredLevels(t *testing.T) {
	f := newServiceFixture()
	divID := uuid.New()
	creator := uuid.New()

	f.grants.On("GetDivision", mock.Anything, divID).Return(activeDivision(divID), nil)
	f.grants.On("MaxApprovalLevel", mock.Anything, divID).Return(2, nil)
	f.entities.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.KYCEntity) bool {
		return e.Status == domain.KYCStatusDraft && e.RequiredLevels == 2 && e.RowVersion == 1
	})).Return(nil)

	e, err := f.service.Create(context.Background(), entityInput(divID), creator)
	assert.NoError(t, err)
	assert.Equal(t, creator, e.CreatedBy)
	assert.Equal(t, 2, e.RequiredLevels)
	f.entities.AssertExpectations(t)
}

func TestCreateClampsRequiredLevels(t *testing.T) {
	tests := []struct {
		name     string
		maxLevel int
		want     int
	}{
		{"no approvers still requires one level", 0, 1},
		{"level above the cap is clamped", 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			divID := uuid.New()

			f.grants.On("GetDivision", mock.Anything, divID).Return(activeDivision(divID), nil)
			f.grants.On("MaxApprovalLevel", mock.Anything, divID).Return(tt.maxLevel, nil)
			f.entities.On("Create", mock.Anything, mock.Anything).Return(nil)

			e, err := f.service.Create(context.Background(), entityInput(divID), uuid.New())
			assert.NoError(t, err)
			assert.Equal(t, tt.want, e.RequiredLevels)
		})
	}
}

func TestCreateInactiveDivisionRejected(t *testing.T) {
	f := newServiceFixture()
	divID := uuid.New()
	d := activeDivision(divID)
	d.Active = false

	f.grants.On("GetDivision", mock.Anything, divID).Return(d, nil)

	_, err := f.service.Create(context.Background(), entityInput(divID), uuid.New())
	assert.True(t, errors.IsKind(err, errors.KindValidation))
	f.entities.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateDuplicateCode(t *testing.T) {
	f := newServiceFixture()
	divID := uuid.New()

	f.grants.On("GetDivision", mock.Anything, divID).Return(activeDivision(divID), nil)
	f.grants.On("MaxApprovalLevel", mock.Anything, divID).Return(1, nil)
	f.entities.On("Create", mock.Anything, mock.Anything).
		Return(errors.E(errors.KindDuplicateKey, "an entity with this code already exists"))

	_, err := f.service.Create(context.Background(), entityInput(divID), uuid.New())
	assert.True(t, errors.IsKind(err, errors.KindDuplicateKey))
}

func TestUpdateDraftOnly(t *testing.T) {
	f := newServiceFixture()
	e := testEntity(domain.KYCStatusSubmitted, 2)

	f.entities.On("GetByID", mock.Anything, e.ID).Return(e, nil)

	in := entityInput(e.DivisionID)
	_, err := f.service.Update(context.Background(), e.ID, in)
	assert.True(t, errors.IsKind(err, errors.KindInvalidStateTransition))
	f.entities.AssertNotCalled(t, "UpdateBusinessFields", mock.Anything, mock.Anything)
}

func TestUpdateKindImmutable(t *testing.T) {
	f := newServiceFixture()
	e := testEntity(domain.KYCStatusDraft, 2)

	f.entities.On("GetByID", mock.Anything, e.ID).Return(e, nil)

	in := entityInput(e.DivisionID)
	in.Kind = domain.EntityKindVendor
	_, err := f.service.Update(context.Background(), e.ID, in)
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestUpdateDivisionChangeResnapshotsLevels(t *testing.T) {
	f := newServiceFixture()
	e := testEntity(domain.KYCStatusDraft, 1)
	newDivID := uuid.New()

	f.entities.On("GetByID", mock.Anything, e.ID).Return(e, nil)
	f.grants.On("GetDivision", mock.Anything, newDivID).Return(activeDivision(newDivID), nil)
	f.grants.On("MaxApprovalLevel", mock.Anything, newDivID).Return(3, nil)
	f.entities.On("UpdateBusinessFields", mock.Anything, mock.MatchedBy(func(got *domain.KYCEntity) bool {
		return got.DivisionID == newDivID && got.RequiredLevels == 3
	})).Return(nil)

	in := entityInput(newDivID)
	got, err := f.service.Update(context.Background(), e.ID, in)
	assert.NoError(t, err)
	assert.Equal(t, 3, got.RequiredLevels)
}

func TestDeleteDraftCascadesHistory(t *testing.T) {
	f := newServiceFixture()
	e := testEntity(domain.KYCStatusDraft, 1)

	f.entities.On("GetByID", mock.Anything, e.ID).Return(e, nil)
	f.history.On("DeleteByEntityTx", mock.Anything, mock.Anything, e.ID).Return(nil)
	f.entities.On("DeleteTx", mock.Anything, mock.Anything, e.ID).Return(nil)

	err := f.service.Delete(context.Background(), e.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.tx.commits)
	f.history.AssertExpectations(t)
}

func TestDeleteRejectedAllowed(t *testing.T) {
	f := newServiceFixture()
	e := testEntity(domain.KYCStatusRejected, 2)

	f.entities.On("GetByID", mock.Anything, e.ID).Return(e, nil)
	f.history.On("DeleteByEntityTx", mock.Anything, mock.Anything, e.ID).Return(nil)
	f.entities.On("DeleteTx", mock.Anything, mock.Anything, e.ID).Return(nil)

	assert.NoError(t, f.service.Delete(context.Background(), e.ID))
}

func TestDeleteInFlightRejected(t *testing.T) {
	f := newServiceFixture()

	for _, status := range []domain.KYCStatus{
		domain.KYCStatusSubmitted,
		domain.KYCStatusApprovedL1,
		domain.KYCStatusReadyForSAP,
		domain.KYCStatusSyncedToSAP,
	} {
		e := testEntity(status, 2)
		f.entities.On("GetByID", mock.Anything, e.ID).Return(e, nil)

		err := f.service.Delete(context.Background(), e.ID)
		assert.True(t, errors.IsKind(err, errors.KindInvalidStateTransition), "status %s", status)
	}
	assert.Equal(t, 0, f.tx.commits)
}

func TestDeleteLosingRaceWithSubmitRollsBack(t *testing.T) {
	f := newServiceFixture()
	e := testEntity(domain.KYCStatusDraft, 1)

	// The entity reads as a draft, but a concurrent submit commits before the
	// delete transaction runs. The store's status-guarded DELETE matches zero
	// rows and reports an invalid transition; the history delete must not
	// survive on its own.
	f.entities.On("GetByID", mock.Anything, e.ID).Return(e, nil)
	f.history.On("DeleteByEntityTx", mock.Anything, mock.Anything, e.ID).Return(nil)
	f.entities.On("DeleteTx", mock.Anything, mock.Anything, e.ID).
		Return(errors.E(errors.KindInvalidStateTransition, "entity is no longer in a deletable status"))

	err := f.service.Delete(context.Background(), e.ID)
	assert.True(t, errors.IsKind(err, errors.KindInvalidStateTransition))
	assert.Equal(t, 0, f.tx.commits)
	assert.Equal(t, 1, f.tx.rollbacks)
}

func TestHistoryRequiresExistingEntity(t *testing.T) {
	f := newServiceFixture()
	id := uuid.New()

	f.entities.On("GetByID", mock.Anything, id).Return(nil, errors.ErrEntityNotFound)

	_, err := f.service.History(context.Background(), id)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
	f.history.AssertNotCalled(t, "ListByEntity", mock.Anything, mock.Anything)
}
