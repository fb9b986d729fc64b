// Package txutil provides a small unit-of-work wrapper around
// *sql.Tx so callers can register callbacks to run after a successful
// commit or after a rollback, instead of the inline
// defer-rollback-then-check-commit-error pattern scattered through the
// teacher's handler methods (spec.md §9 redesign flag: replace
// framework-managed transaction annotations with an explicit registry).
package txutil

import (
	"context"
	"database/sql"
)

// UnitOfWork wraps a transaction plus deferred callbacks. Use Begin to
// open one, register hooks with AfterCommit/AfterRollback, then call
// Finish with the error from the work performed inside the transaction.
type UnitOfWork struct {
	Tx            *sql.Tx
	afterCommit   []func()
	afterRollback []func()
}

// Begin starts a transaction on db.
func Begin(ctx context.Context, db *sql.DB) (*UnitOfWork, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &UnitOfWork{Tx: tx}, nil
}

// AfterCommit registers a callback to run only if Finish commits
// successfully, e.g. releasing a Redis lock only once the DB write that
// depended on it has landed.
func (u *UnitOfWork) AfterCommit(fn func()) {
	u.afterCommit = append(u.afterCommit, fn)
}

// AfterRollback registers a callback to run only if Finish rolls back,
// e.g. undoing a Redis lock acquired before the transaction began.
func (u *UnitOfWork) AfterRollback(fn func()) {
	u.afterRollback = append(u.afterRollback, fn)
}

// Finish commits if workErr is nil, otherwise rolls back, then runs the
// matching hook set and returns the error the caller should propagate.
func (u *UnitOfWork) Finish(workErr error) error {
	if workErr != nil {
		_ = u.Tx.Rollback()
		for _, fn := range u.afterRollback {
			fn()
		}
		return workErr
	}
	if err := u.Tx.Commit(); err != nil {
		for _, fn := range u.afterRollback {
			fn()
		}
		return err
	}
	for _, fn := range u.afterCommit {
		fn()
	}
	return nil
}
