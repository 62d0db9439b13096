package database

import (
	"context"
	"fmt"
)

// Transactor runs a unit of work inside a single transaction.
type Transactor interface {
	// WithinTx acquires one dedicated connection, begins a transaction and calls
	// fn with a context whose scope points at that transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ Transactor = (*DB)(nil)

// WithinTx implements Transactor.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer scope.Close()

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback must still reach the server when ctx was cancelled.
	defer tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck // rollback on defer is best-effort

	scope.Tx = tx
	if err := fn(SetScope(ctx, scope)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
