package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"kycportal/internal/domain"
	"kycportal/internal/kyc"
	"kycportal/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// EntityRepository persists customer/vendor records.
type EntityRepository struct {
	db *sqlx.DB
}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(db *sqlx.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

const entityColumns = `
	id, kind, code, name, email, phone, address, tax_id, division_id,
	credit_limit, status, required_levels,
	submitted_by, submitted_at,
	approved_by_level1, approved_at_level1,
	approved_by_level2, approved_at_level2,
	approved_by_level3, approved_at_level3,
	rejected_by, rejected_at, rejected_reason,
	synced_by, synced_at, sap_card_code,
	created_by, created_at, updated_at, row_version`

// Create inserts a new entity. Code/email collisions within the same kind are
// reported as duplicate-key errors.
func (r *EntityRepository) Create(ctx context.Context, e *domain.KYCEntity) error {
	query := `
		INSERT INTO kyc_entities (` + entityColumns + `) VALUES (
			:id, :kind, :code, :name, :email, :phone, :address, :tax_id, :division_id,
			:credit_limit, :status, :required_levels,
			:submitted_by, :submitted_at,
			:approved_by_level1, :approved_at_level1,
			:approved_by_level2, :approved_at_level2,
			:approved_by_level3, :approved_at_level3,
			:rejected_by, :rejected_at, :rejected_reason,
			:synced_by, :synced_at, :sap_card_code,
			:created_by, :created_at, :updated_at, :row_version
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, e)
	if err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return dup
		}
		return errors.Wrap(err, "failed to create entity")
	}

	return nil
}

// GetByID returns an entity by its identifier.
func (r *EntityRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.KYCEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM kyc_entities WHERE id = $1`

	var e domain.KYCEntity
	err := r.db.GetContext(ctx, &e, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrEntityNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get entity")
	}

	return &e, nil
}

// List returns entities filtered by kind, status, and division; zero values
// leave the corresponding filter off.
func (r *EntityRepository) List(ctx context.Context, filter kyc.EntityFilter) ([]*domain.KYCEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM kyc_entities WHERE 1=1`
	args := map[string]interface{}{}

	if filter.Kind != "" {
		query += ` AND kind = :kind`
		args["kind"] = filter.Kind
	}
	if filter.Status != "" {
		query += ` AND status = :status`
		args["status"] = filter.Status
	}
	if filter.DivisionID != uuid.Nil {
		query += ` AND division_id = :division_id`
		args["division_id"] = filter.DivisionID
	}
	if filter.CreatedBy != uuid.Nil {
		query += ` AND created_by = :created_by`
		args["created_by"] = filter.CreatedBy
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list entities")
	}
	defer rows.Close()

	var entities []*domain.KYCEntity
	for rows.Next() {
		var e domain.KYCEntity
		if err := rows.StructScan(&e); err != nil {
			return nil, errors.Wrap(err, "failed to scan entity")
		}
		entities = append(entities, &e)
	}

	return entities, rows.Err()
}

// UpdateBusinessFields updates editable fields of a draft. The status guard is
// enforced in the WHERE clause as well as the service so a racing submit
// cannot slip an edit onto a submitted record.
func (r *EntityRepository) UpdateBusinessFields(ctx context.Context, e *domain.KYCEntity) error {
	query := `
		UPDATE kyc_entities SET
			code = :code, name = :name, email = :email, phone = :phone,
			address = :address, tax_id = :tax_id, credit_limit = :credit_limit,
			division_id = :division_id, required_levels = :required_levels,
			updated_at = :updated_at, row_version = row_version + 1
		WHERE id = :id AND status = 'DRAFT'
	`

	e.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, query, e)
	if err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return dup
		}
		return errors.Wrap(err, "failed to update entity")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read update result")
	}
	if n == 0 {
		return errors.E(errors.KindInvalidStateTransition, "entity is no longer a draft")
	}

	return nil
}

// UpdateWorkflowTx persists a workflow transition with optimistic locking.
// A row_version mismatch means a concurrent transition won the race; the
// caller observes that as an invalid state transition and the enclosing
// transaction rolls back.
func (r *EntityRepository) UpdateWorkflowTx(ctx context.Context, tx kyc.Tx, e *domain.KYCEntity) error {
	sqtx, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE kyc_entities SET
			status = :status,
			submitted_by = :submitted_by, submitted_at = :submitted_at,
			approved_by_level1 = :approved_by_level1, approved_at_level1 = :approved_at_level1,
			approved_by_level2 = :approved_by_level2, approved_at_level2 = :approved_at_level2,
			approved_by_level3 = :approved_by_level3, approved_at_level3 = :approved_at_level3,
			rejected_by = :rejected_by, rejected_at = :rejected_at, rejected_reason = :rejected_reason,
			synced_by = :synced_by, synced_at = :synced_at, sap_card_code = :sap_card_code,
			updated_at = :updated_at, row_version = row_version + 1
		WHERE id = :id AND row_version = :row_version
	`

	e.UpdatedAt = time.Now().UTC()
	res, err := sqtx.NamedExecContext(ctx, query, e)
	if err != nil {
		return errors.Wrap(err, "failed to update entity workflow state")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read update result")
	}
	if n == 0 {
		return errors.E(errors.KindInvalidStateTransition, "entity was modified concurrently")
	}

	return nil
}

// DeleteTx removes an entity inside a transaction. History rows cascade in the
// same transaction via HistoryRepository.DeleteByEntityTx. The status guard is
// enforced in the WHERE clause as well as the service so a racing submit
// cannot let an in-flight record and its ledger be deleted.
func (r *EntityRepository) DeleteTx(ctx context.Context, tx kyc.Tx, id uuid.UUID) error {
	sqtx, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	res, err := sqtx.ExecContext(ctx,
		`DELETE FROM kyc_entities WHERE id = $1 AND status IN ('DRAFT', 'REJECTED')`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete entity")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read delete result")
	}
	if n == 0 {
		return errors.E(errors.KindInvalidStateTransition, "entity is no longer in a deletable status")
	}

	return nil
}

// PendingForGrant returns entities in the given division sitting at the stage
// the grant's level acts on.
func (r *EntityRepository) PendingForGrant(ctx context.Context, divisionID uuid.UUID, level int) ([]*domain.KYCEntity, error) {
	var predicate string
	switch level {
	case 1:
		predicate = `status = 'SUBMITTED'`
	case 2:
		predicate = `status = 'APPROVED_L1' AND required_levels >= 2`
	case 3:
		predicate = `status = 'APPROVED_L2' AND required_levels >= 3`
	default:
		return nil, nil
	}

	query := `SELECT ` + entityColumns + ` FROM kyc_entities WHERE division_id = $1 AND ` + predicate + ` ORDER BY submitted_at ASC`

	var entities []*domain.KYCEntity
	if err := r.db.SelectContext(ctx, &entities, query, divisionID); err != nil {
		return nil, errors.Wrap(err, "failed to list pending entities")
	}

	return entities, nil
}

// NullifyActorTx clears actor references pointing at a deleted user so no
// entity keeps a dangling foreign key. Part of the admin user-deletion path.
func (r *EntityRepository) NullifyActorTx(ctx context.Context, tx kyc.Tx, userID uuid.UUID) error {
	sqtx, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE kyc_entities SET
			submitted_by = NULLIF(submitted_by, $1),
			approved_by_level1 = NULLIF(approved_by_level1, $1),
			approved_by_level2 = NULLIF(approved_by_level2, $1),
			approved_by_level3 = NULLIF(approved_by_level3, $1),
			rejected_by = NULLIF(rejected_by, $1),
			synced_by = NULLIF(synced_by, $1)
		WHERE submitted_by = $1 OR approved_by_level1 = $1 OR approved_by_level2 = $1
			OR approved_by_level3 = $1 OR rejected_by = $1 OR synced_by = $1
	`

	if _, err := sqtx.ExecContext(ctx, query, userID); err != nil {
		return errors.Wrap(err, "failed to nullify actor references")
	}

	return nil
}

// duplicateKeyError maps postgres unique violations (23505) to typed
// duplicate-key errors with a field-specific message.
func duplicateKeyError(err error) error {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != "23505" {
		return nil
	}

	switch {
	case strings.Contains(pqErr.Constraint, "code"):
		return errors.E(errors.KindDuplicateKey, "an entity with this code already exists")
	case strings.Contains(pqErr.Constraint, "email"):
		return errors.E(errors.KindDuplicateKey, "an entity with this email already exists")
	default:
		return errors.E(errors.KindDuplicateKey, "duplicate value violates a unique constraint")
	}
}
