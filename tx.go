// Transactions.
//
// A transaction defers commits: Begin turns auto-commit off and drops a
// marker file in the data directory, End commits once and restores the
// configured auto-commit, Rollback reloads the last committed state.
//
// This is discard-to-last-commit, not an undo log. Nothing is durable until
// End commits, and record files removed by Delete inside the transaction
// are already gone from disk.
package shelf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

const txMarker = ".transaction"

// Begin opens a transaction.
func (db *DB) Begin() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if db.inTx {
		return ErrTxOpen
	}
	if err := atomic.WriteFile(db.markerPath(), strings.NewReader("")); err != nil {
		return &PersistenceError{Op: "begin", Path: db.markerPath(), Err: err}
	}
	db.inTx = true
	db.autoCommit = false
	db.log.Debug("transaction started")
	return nil
}

// End commits the transaction. If the commit fails the transaction stays
// open and the error is returned.
func (db *DB) End() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if !db.inTx {
		return ErrNoTx
	}
	if err := db.commit(); err != nil {
		return err
	}
	db.finishTx()
	db.log.Debug("transaction committed")
	return nil
}

// Rollback discards every change made since the last commit by reloading
// from disk.
func (db *DB) Rollback() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if !db.inTx {
		return ErrNoTx
	}
	if err := db.load(); err != nil {
		return err
	}
	db.finishTx()
	db.log.Debug("transaction rolled back")
	return nil
}

// InTx reports whether a transaction is open.
func (db *DB) InTx() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.inTx
}

func (db *DB) finishTx() {
	db.inTx = false
	db.autoCommit = *db.config.AutoCommit
	db.removeMarker()
}

func (db *DB) markerPath() string {
	return filepath.Join(db.dir, txMarker)
}

func (db *DB) removeMarker() {
	if err := os.Remove(db.markerPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.log.Warn("remove transaction marker", zap.Error(err))
	}
}
