package postgres

import (
	"context"
	"database/sql"
	"time"

	"kycportal/internal/domain"
	"kycportal/internal/kyc"
	"kycportal/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// UserRepository persists portal accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :full_name, :role, :active, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, u)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.E(errors.KindDuplicateKey, "a user with this email already exists")
		}
		return errors.Wrap(err, "failed to create user")
	}

	return nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}

	return &u, nil
}

// GetByEmail returns a user by email, used by the login path.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, email)
	if err == sql.ErrNoRows {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user by email")
	}

	return &u, nil
}

// List returns all users ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	if err := r.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY created_at ASC`); err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	return users, nil
}

// Update persists profile changes.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE users SET email = :email, password_hash = :password_hash,
			full_name = :full_name, role = :role, active = :active, updated_at = :updated_at
		WHERE id = :id
	`, u)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.E(errors.KindDuplicateKey, "a user with this email already exists")
		}
		return errors.Wrap(err, "failed to update user")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read update result")
	}
	if n == 0 {
		return errors.ErrUserNotFound
	}

	return nil
}

// DeleteTx removes a user inside the caller's transaction. The admin service
// nullifies entity actor references and deactivates grants in the same
// transaction before calling this.
func (r *UserRepository) DeleteTx(ctx context.Context, tx kyc.Tx, id uuid.UUID) error {
	sqtx, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	res, err := sqtx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read delete result")
	}
	if n == 0 {
		return errors.ErrUserNotFound
	}

	return nil
}
