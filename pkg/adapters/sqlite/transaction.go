package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aretw0/studywise/pkg/core"
)

// Transaction wraps a database transaction. Writes are visible to its own
// reads immediately and to everyone else after Commit.
type Transaction struct {
	tx *sql.Tx
}

// Begin starts a new transaction. The repository holds one connection, so
// other callers wait until the transaction ends.
func (r *Repository) Begin(ctx context.Context) (core.Transaction, error) {
	if r.config.ReadOnly {
		return nil, core.ErrReadOnly
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx: tx}, nil
}

func (t *Transaction) Save(ctx context.Context, doc core.Document) error {
	return save(ctx, t.tx, doc, nil)
}

func (t *Transaction) Get(ctx context.Context, id string) (core.Document, error) {
	return get(ctx, t.tx, id)
}

func (t *Transaction) List(ctx context.Context) ([]core.Document, error) {
	return list(ctx, t.tx)
}

func (t *Transaction) Delete(ctx context.Context, id string) error {
	return remove(ctx, t.tx, id, nil)
}

// Commit stamps every change of the transaction with changeReason and commits.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	if changeReason == "" {
		changeReason = core.ChangeReason(ctx, "batch update")
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE change_log SET reason = ? WHERE reason IS NULL`, changeReason); err != nil {
		_ = t.tx.Rollback()
		return fmt.Errorf("failed to record change reason: %w", err)
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *Transaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback()
}
