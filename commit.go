// Commit writes the in-memory table back to the data directory.
//
// The commit is a directory swap in two phases:
//
//   - Stage: every record is encoded and written to a scratch directory
//     next to the data directory, each file under its own exclusive lock.
//     Any failure removes the scratch directory and leaves the data
//     directory untouched; the store stays dirty.
//   - Install: a .complete marker is written into the scratch directory,
//     the old record files are removed, and the staged files are moved in
//     with an atomic rename. The scratch directory is removed last.
//
// A crash during staging leaves an incomplete scratch directory, which the
// next Open discards. A crash during install leaves a complete one, which
// the next Open installs again (see repair.go).
package shelf

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

const (
	completeMarker = ".complete"
	scratchInfix   = ".commit-"
)

// Commit persists every pending change. It is a no-op when nothing has
// changed since the last commit or load.
func (db *DB) Commit() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	return db.commit()
}

func (db *DB) commit() error {
	if !db.dirty {
		return nil
	}
	start := time.Now()
	err := db.swap()
	elapsed := time.Since(start)
	db.metrics.commit(elapsed.Seconds(), err)
	if err != nil {
		db.log.Error("commit failed", zap.Error(err))
		return err
	}
	db.dirty = false
	db.log.Debug("committed",
		zap.Int("documents", db.table.len()),
		zap.Duration("elapsed", elapsed))
	return nil
}

func (db *DB) scratchPrefix() string {
	return "." + db.name + scratchInfix
}

func (db *DB) swap() error {
	parent := filepath.Dir(db.dir)
	scratch, err := os.MkdirTemp(parent, db.scratchPrefix()+"*")
	if err != nil {
		return &PersistenceError{Op: "commit", Path: parent, Err: err}
	}

	if err := db.stage(scratch); err != nil {
		os.RemoveAll(scratch)
		return err
	}
	if err := atomic.WriteFile(filepath.Join(scratch, completeMarker), strings.NewReader("")); err != nil {
		os.RemoveAll(scratch)
		return &PersistenceError{Op: "commit", Path: scratch, Err: err}
	}
	return db.install(scratch)
}

// stage encodes and writes every record into scratch.
func (db *DB) stage(scratch string) error {
	for e := range db.table.entries() {
		path := filepath.Join(scratch, e.id+db.codec.ext())
		data, err := db.codec.encode(e.doc)
		if err != nil {
			var ce *CodecError
			if errors.As(err, &ce) {
				ce.Path = path
			}
			return &PersistenceError{Op: "encode", Path: path, Err: err}
		}
		if err := db.writeFile(path, data); err != nil {
			return &PersistenceError{Op: "write", Path: path, Err: err}
		}
	}
	return nil
}

// install replaces the record files in the data directory with those
// staged in a complete scratch directory, then removes it. It is safe to
// run again on the same scratch directory after a crash.
func (db *DB) install(scratch string) error {
	staged, err := db.recordFiles(scratch)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(db.dir, 0755); err != nil {
		return &PersistenceError{Op: "install", Path: db.dir, Err: err}
	}

	live, err := db.recordFiles(db.dir)
	if err != nil {
		return err
	}
	for _, name := range live {
		if _, found := slices.BinarySearch(staged, name); found {
			continue
		}
		if err := db.removeFile(filepath.Join(db.dir, name)); err != nil {
			return err
		}
	}

	for _, name := range staged {
		src, dst := filepath.Join(scratch, name), filepath.Join(db.dir, name)
		if err := atomic.ReplaceFile(src, dst); err != nil {
			return &PersistenceError{Op: "install", Path: dst, Err: err}
		}
	}
	if err := os.RemoveAll(scratch); err != nil {
		return &PersistenceError{Op: "install", Path: scratch, Err: err}
	}
	return nil
}
