package postgres

import (
	"context"

	"kycportal/internal/domain"
	"kycportal/internal/kyc"
	"kycportal/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// HistoryRepository persists the append-only approval ledger. Rows are
// inserted exactly once per workflow transition, always inside the same
// transaction as the entity mutation, and are never updated afterwards.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const historyInsert = `
	INSERT INTO approval_history (
		id, entity_id, user_id, action, previous_status, new_status, comments, created_at
	) VALUES (
		:id, :entity_id, :user_id, :action, :previous_status, :new_status, :comments, :created_at
	)
`

// AppendTx appends one ledger row inside the caller's transaction.
func (r *HistoryRepository) AppendTx(ctx context.Context, tx kyc.Tx, rec *domain.ApprovalHistoryRecord) error {
	sqtx, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	if _, err := sqtx.NamedExecContext(ctx, historyInsert, rec); err != nil {
		return errors.Wrap(err, "failed to append history record")
	}

	return nil
}

// ListByEntity returns the ledger for one entity, newest first. Descending
// created_at is the canonical display order.
func (r *HistoryRepository) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*domain.ApprovalHistoryRecord, error) {
	query := `
		SELECT id, entity_id, user_id, action, previous_status, new_status, comments, created_at
		FROM approval_history
		WHERE entity_id = $1
		ORDER BY created_at DESC
	`

	var records []*domain.ApprovalHistoryRecord
	if err := r.db.SelectContext(ctx, &records, query, entityID); err != nil {
		return nil, errors.Wrap(err, "failed to list history records")
	}

	return records, nil
}

// DeleteByEntityTx removes the ledger for a deleted entity. This is the only
// path that removes history rows.
func (r *HistoryRepository) DeleteByEntityTx(ctx context.Context, tx kyc.Tx, entityID uuid.UUID) error {
	sqtx, err := sqlxTx(tx)
	if err != nil {
		return err
	}

	if _, err := sqtx.ExecContext(ctx, `DELETE FROM approval_history WHERE entity_id = $1`, entityID); err != nil {
		return errors.Wrap(err, "failed to delete history records")
	}

	return nil
}
