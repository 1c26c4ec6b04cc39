package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Transaction is an explicit transaction for callers that need to commit
// or roll back across several operations. Most code should prefer
// WithTransaction; this form exists for flows where the decision to commit
// happens far from where the transaction began.
type Transaction struct {
	tx   *gorm.DB
	done bool
}

// NewTransaction begins a transaction on a context-bound session.
func NewTransaction(ctx context.Context, db Database) (*Transaction, error) {
	tx := db.Session(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return &Transaction{tx: tx}, nil
}

// Session returns the transaction-bound GORM session.
func (t *Transaction) Session() *gorm.DB {
	return t.tx
}

// Commit commits the transaction. Once the transaction has finished,
// further calls are no-ops.
func (t *Transaction) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls the transaction back. Once the transaction has finished,
// further calls are no-ops.
func (t *Transaction) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// WithTransaction runs fn inside a transaction on a context-bound session.
// The transaction commits when fn returns nil and rolls back otherwise.
func WithTransaction(ctx context.Context, db Database, fn func(tx *gorm.DB) error) error {
	return db.Session(ctx).Transaction(fn)
}

// WithTransactionResult runs fn inside a transaction and returns its value.
// On error the transaction rolls back and the zero value is returned.
func WithTransactionResult[T any](ctx context.Context, db Database, fn func(tx *gorm.DB) (T, error)) (T, error) {
	var result T
	err := db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		var fnErr error
		result, fnErr = fn(tx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
