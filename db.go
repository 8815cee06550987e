// Core store type and lifecycle operations.
//
// DB owns one named collection: the in-memory table, its indexes and cache,
// and the data directory the records persist to. Every exported method takes
// db.mu; unexported helpers assume it is held. The mutex is not reentrant.
package shelf

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Record is a document together with its ID.
type Record struct {
	ID  string
	Doc Document
}

// DB represents an open store.
type DB struct {
	mu      sync.Mutex
	name    string
	dir     string // data directory, <root>/<name>
	config  Config
	codec   *codec
	log     *zap.Logger
	metrics *metrics

	table *table
	index *index
	cache *cache

	autoCommit bool
	inTx       bool
	dirty      bool
	closed     bool

	// writeFile writes one encoded record into the commit scratch
	// directory. Tests replace it to inject failures.
	writeFile func(path string, data []byte) error
}

// Open opens or creates the store called name. The data directory is
// <root>/<name> where root is Config.DBPath for the selected environment.
// Interrupted commits left by a crashed process are rolled forward or
// discarded before the records are loaded.
func Open(name string, config Config) (*DB, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	root, err := config.root()
	if err != nil {
		return nil, err
	}
	c, err := newCodec(config.Format, config.compression(), config.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	dir := filepath.Join(root, name)
	m, err := newMetrics(config.Registerer, name, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: register metrics: %w", ErrInvalidConfig, err)
	}

	db := &DB{
		name:       name,
		dir:        dir,
		config:     config,
		codec:      c,
		log:        config.Logger.Named("shelf").With(zap.String("store", name)),
		metrics:    m,
		table:      newTable(),
		index:      newIndex(config.Indexes),
		cache:      newCache(config.CacheSize),
		autoCommit: *config.AutoCommit,
	}
	db.writeFile = db.writeRecord

	if err := db.recover(); err != nil {
		m.unregister()
		return nil, err
	}
	if err := db.load(); err != nil {
		m.unregister()
		return nil, err
	}
	db.log.Debug("opened",
		zap.String("dir", db.dir),
		zap.String("env", config.Env),
		zap.Int("documents", db.table.len()))
	return db, nil
}

func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: invalid store name %q", ErrInvalidConfig, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: store name %q must not start with a dot", ErrInvalidConfig, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: store name %q must not contain a path separator", ErrInvalidConfig, name)
	}
	return nil
}

// Close commits pending changes, unless a transaction is open, and
// releases the store. If that commit fails the store stays open and the
// error is returned so the caller can retry. An open transaction is
// discarded: the directory keeps its last committed state.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if !db.inTx {
		if err := db.commit(); err != nil {
			return err
		}
	} else {
		db.log.Warn("closing with an open transaction; uncommitted changes discarded")
		db.removeMarker()
	}
	db.closed = true
	db.metrics.unregister()
	db.log.Debug("closed")
	return nil
}

// Path returns the data directory.
func (db *DB) Path() string { return db.dir }

// Dirty reports whether there are changes not yet committed. A closed
// store is never dirty.
func (db *DB) Dirty() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return !db.closed && db.dirty
}

// Count returns the number of documents, or 0 once the store is closed.
func (db *DB) Count() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return 0
	}
	return db.table.len()
}

// touch marks the store dirty after a mutation.
func (db *DB) touch() {
	db.dirty = true
	db.metrics.documents.Set(float64(db.table.len()))
}

// autoCommitIfEnabled commits when auto-commit is on.
func (db *DB) autoCommitIfEnabled() error {
	if !db.autoCommit {
		return nil
	}
	return db.commit()
}
