// Loading records from the data directory.
//
// Load replaces the in-memory state with what is on disk: every record
// file, read in file-name order, decoded, and indexed. The new table is
// built on the side and only swapped in once every file has decoded, so a
// failed load leaves the previous state intact.
package shelf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Load discards in-memory state and reloads every record from disk.
func (db *DB) Load() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	return db.load()
}

func (db *DB) load() error {
	if err := os.MkdirAll(db.dir, 0755); err != nil {
		return &PersistenceError{Op: "load", Path: db.dir, Err: err}
	}
	names, err := db.recordFiles(db.dir)
	if err != nil {
		return err
	}

	t := newTable()
	c := newCache(db.config.CacheSize)
	ext := db.codec.ext()
	for _, name := range names {
		path := filepath.Join(db.dir, name)
		data, err := readRecord(path)
		if err != nil {
			return &PersistenceError{Op: "load", Path: path, Err: err}
		}
		doc, err := db.codec.decode(data)
		if err != nil {
			var ce *CodecError
			if errors.As(err, &ce) {
				ce.Path = path
			}
			return err
		}
		id := strings.TrimSuffix(name, ext)
		t.insert(id, doc)
		c.put(id, doc)
	}

	db.table = t
	db.cache = c
	db.index.rebuild(t)
	db.dirty = false
	db.metrics.documents.Set(float64(t.len()))
	db.log.Debug("loaded", zap.Int("documents", t.len()))
	return nil
}
