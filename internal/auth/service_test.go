package auth

import (
	"context"
	"testing"
	"time"

	"kycportal/internal/domain"
	"kycportal/pkg/errors"
	"kycportal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

const testSecret = "test-secret"

func testUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return &domain.User{
		ID:           uuid.New(),
		Email:        "manager@example.com",
		FullName:     "Division Manager",
		PasswordHash: hash,
		Role:         domain.RoleManager,
		Active:       true,
	}
}

func TestLogin(t *testing.T) {
	store := new(MockUserStore)
	svc := NewService(store, testSecret, time.Hour, logger.NewNop())

	user := testUser(t, "Password123")
	store.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	result, err := svc.Login(context.Background(), user.Email, "Password123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, user.ID, result.User.ID)

	token, err := jwt.Parse(result.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.String(), claims["user_id"])
	assert.Equal(t, user.Email, claims["email"])
	assert.Equal(t, string(domain.RoleManager), claims["role"])
}

func TestLoginWrongPassword(t *testing.T) {
	store := new(MockUserStore)
	svc := NewService(store, testSecret, time.Hour, logger.NewNop())

	user := testUser(t, "Password123")
	store.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	_, err := svc.Login(context.Background(), user.Email, "wrong")
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	store := new(MockUserStore)
	svc := NewService(store, testSecret, time.Hour, logger.NewNop())

	store.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, errors.ErrUserNotFound)

	_, err := svc.Login(context.Background(), "ghost@example.com", "anything")
	// Unknown accounts and bad passwords are indistinguishable to the caller.
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	store := new(MockUserStore)
	svc := NewService(store, testSecret, time.Hour, logger.NewNop())

	user := testUser(t, "Password123")
	user.Active = false
	store.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

	_, err := svc.Login(context.Background(), user.Email, "Password123")
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
}
