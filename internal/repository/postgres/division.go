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

// DivisionRepository persists divisions and per-user approval grants.
type DivisionRepository struct {
	db *sqlx.DB
}

// NewDivisionRepository creates a new DivisionRepository.
func NewDivisionRepository(db *sqlx.DB) *DivisionRepository {
	return &DivisionRepository{db: db}
}

// CreateDivision inserts a new division.
func (r *DivisionRepository) CreateDivision(ctx context.Context, d *domain.Division) error {
	query := `
		INSERT INTO divisions (id, code, name, active, created_at, updated_at)
		VALUES (:id, :code, :name, :active, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, d)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.E(errors.KindDuplicateKey, "a division with this code already exists")
		}
		return errors.Wrap(err, "failed to create division")
	}

	return nil
}

// GetDivision returns a division by ID.
func (r *DivisionRepository) GetDivision(ctx context.Context, id uuid.UUID) (*domain.Division, error) {
	var d domain.Division
	err := r.db.GetContext(ctx, &d, `SELECT * FROM divisions WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrDivisionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get division")
	}

	return &d, nil
}

// ListDivisions returns all divisions, optionally only active ones.
func (r *DivisionRepository) ListDivisions(ctx context.Context, activeOnly bool) ([]*domain.Division, error) {
	query := `SELECT * FROM divisions`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY code ASC`

	var divisions []*domain.Division
	if err := r.db.SelectContext(ctx, &divisions, query); err != nil {
		return nil, errors.Wrap(err, "failed to list divisions")
	}

	return divisions, nil
}

// UpdateDivision updates the name and active flag. Code is a stable business
// key and is never changed once the division exists.
func (r *DivisionRepository) UpdateDivision(ctx context.Context, d *domain.Division) error {
	d.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE divisions SET name = :name, active = :active, updated_at = :updated_at
		WHERE id = :id
	`, d)
	if err != nil {
		return errors.Wrap(err, "failed to update division")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read update result")
	}
	if n == 0 {
		return errors.ErrDivisionNotFound
	}

	return nil
}

// MaxApprovalLevel returns the highest level among active grants for the
// division, or 0 when none exist. Read once at entity creation time to
// snapshot RequiredLevels; later grant changes never affect in-flight records.
func (r *DivisionRepository) MaxApprovalLevel(ctx context.Context, divisionID uuid.UUID) (int, error) {
	var level int
	query := `
		SELECT COALESCE(MAX(approval_level), 0)
		FROM approval_grants
		WHERE division_id = $1 AND active
	`
	if err := r.db.GetContext(ctx, &level, query, divisionID); err != nil {
		return 0, errors.Wrap(err, "failed to get max approval level")
	}

	return level, nil
}

// GetGrant returns the active grant for a user/division pair. Well-formed data
// holds at most one; if legacy data violates that, the highest level wins so
// the lookup stays deterministic.
func (r *DivisionRepository) GetGrant(ctx context.Context, userID, divisionID uuid.UUID) (*domain.ApprovalGrant, error) {
	var g domain.ApprovalGrant
	query := `
		SELECT * FROM approval_grants
		WHERE user_id = $1 AND division_id = $2 AND active
		ORDER BY approval_level DESC
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &g, query, userID, divisionID)
	if err == sql.ErrNoRows {
		return nil, errors.ErrGrantNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get approval grant")
	}

	return &g, nil
}

// ListGrantsForUser returns a user's active grants across divisions.
func (r *DivisionRepository) ListGrantsForUser(ctx context.Context, userID uuid.UUID) ([]*domain.ApprovalGrant, error) {
	var grants []*domain.ApprovalGrant
	query := `SELECT * FROM approval_grants WHERE user_id = $1 AND active ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &grants, query, userID); err != nil {
		return nil, errors.Wrap(err, "failed to list grants")
	}

	return grants, nil
}

// UpsertGrant replaces any existing active grant for the user/division pair
// with the new level, keeping the one-active-grant invariant.
func (r *DivisionRepository) UpsertGrant(ctx context.Context, g *domain.ApprovalGrant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE approval_grants SET active = false
		WHERE user_id = $1 AND division_id = $2 AND active
	`, g.UserID, g.DivisionID)
	if err != nil {
		return errors.Wrap(err, "failed to deactivate previous grant")
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO approval_grants (id, user_id, division_id, approval_level, active, created_at)
		VALUES (:id, :user_id, :division_id, :approval_level, :active, :created_at)
	`, g)
	if err != nil {
		return errors.Wrap(err, "failed to insert grant")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit grant change")
	}

	return nil
}

// RevokeGrant deactivates the active grant for a user/division pair.
func (r *DivisionRepository) RevokeGrant(ctx context.Context, userID, divisionID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE approval_grants SET active = false
		WHERE user_id = $1 AND division_id = $2 AND active
	`, userID, divisionID)
	if err != nil {
		return errors.Wrap(err, "failed to revoke grant")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read revoke result")
	}
	if n == 0 {
		return errors.ErrGrantNotFound
	}

	return nil
}

// DeactivateGrantsForUserTx deactivates all grants for a user inside the
// caller's transaction. Used by the admin user-deletion path.
func (r *DivisionRepository) DeactivateGrantsForUserTx(ctx context.Context, tx kyc.Tx, userID uuid.UUID) error {
	sqtx, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	if _, err := sqtx.ExecContext(ctx, `UPDATE approval_grants SET active = false WHERE user_id = $1`, userID); err != nil {
		return errors.Wrap(err, "failed to deactivate grants")
	}
	return nil
}
