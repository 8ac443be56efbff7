// Package auth verifies credentials and issues portal JWTs.
package auth

import (
	"context"
	"time"

	"kycportal/internal/domain"
	"kycportal/pkg/errors"
	"kycportal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// UserStore resolves accounts for login.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Service authenticates users and signs tokens consumed by the auth
// middleware.
type Service struct {
	users      UserStore
	jwtSecret  string
	expiration time.Duration
	logger     logger.Logger
}

// NewService creates the auth service.
func NewService(users UserStore, jwtSecret string, expiration time.Duration, log logger.Logger) *Service {
	return &Service{
		users:      users,
		jwtSecret:  jwtSecret,
		expiration: expiration,
		logger:     log,
	}
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Login verifies the credentials and returns a signed bearer token carrying
// the user's id, email, and role.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Active {
		return nil, errors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Login failed", map[string]interface{}{
			"email": email,
		})
		return nil, errors.ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.expiration)
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign token")
	}

	s.logger.Info("User logged in", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}
