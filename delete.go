// Document deletion.
//
// Deleting removes the record from memory and its file from the data
// directory straight away, ahead of the commit that follows. Inside a
// transaction the file is still removed immediately, so Rollback cannot
// bring a deleted record back.
package shelf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Delete removes every document matching pred and returns how many were
// removed. An empty predicate removes everything.
func (db *DB) Delete(pred Predicate) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return 0, ErrClosed
	}

	var n int
	var err error
	if len(pred) == 0 {
		n, err = db.deleteAll()
	} else {
		for _, e := range db.match(pred) {
			if rerr := db.deleteEntry(e); rerr != nil && err == nil {
				err = rerr
			}
			n++
		}
	}
	if n == 0 && err == nil {
		return 0, nil
	}
	db.touch()
	db.log.Debug("deleted", zap.Int("count", n))
	if cerr := db.autoCommitIfEnabled(); cerr != nil {
		return n, errors.Join(err, cerr)
	}
	return n, err
}

// Remove deletes the document stored under id.
func (db *DB) Remove(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	e, ok := db.table.get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	err := db.deleteEntry(e)
	db.touch()
	if cerr := db.autoCommitIfEnabled(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

func (db *DB) deleteEntry(e *entry) error {
	db.table.remove(e.id)
	db.index.purge(e.ord)
	db.cache.remove(e.id)
	return db.removeFile(db.recordPath(e.id))
}

func (db *DB) deleteAll() (int, error) {
	n := db.table.len()
	db.table = newTable()
	db.index.reset()
	db.cache.clear()

	names, err := db.recordFiles(db.dir)
	if err != nil {
		return n, err
	}
	for _, name := range names {
		if rerr := db.removeFile(filepath.Join(db.dir, name)); rerr != nil && err == nil {
			err = rerr
		}
	}
	return n, err
}

func (db *DB) removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &PersistenceError{Op: "delete", Path: path, Err: err}
	}
	return nil
}
