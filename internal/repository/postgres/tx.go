// Package postgres implements the portal's persistence layer on sqlx.
package postgres

import (
	"context"
	"fmt"

	"kycportal/internal/kyc"

	"github.com/jmoiron/sqlx"
)

// Tx wraps an sqlx transaction behind the storage-agnostic kyc.Tx seam.
type Tx struct {
	tx *sqlx.Tx
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// sqlxTx unwraps a kyc.Tx handed back into this package.
func sqlxTx(tx kyc.Tx) (*sqlx.Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	return t.tx, nil
}

// TxManager begins transactions for multi-write operations. Every workflow
// transition runs its entity mutation and history append inside one of these.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager creates a TxManager over the shared connection pool.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTx runs fn inside a transaction, committing on success and rolling back
// on error or panic.
func (m *TxManager) WithTx(ctx context.Context, fn func(tx kyc.Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	wrapped := &Tx{tx: tx}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(wrapped); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
