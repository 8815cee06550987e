// Single-record lookups.
//
// Get is the one read path that consults the cache: a hit skips the table,
// a miss reads the table and fills the cache.
package shelf

import "fmt"

// Has reports whether a document with the given ID exists. It is false
// once the store is closed.
func (db *DB) Has(id string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return false
	}
	_, ok := db.table.get(id)
	return ok
}

// Get returns a copy of the document with the given ID. The cache is
// consulted before the table.
func (db *DB) Get(id string) (Document, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}
	if doc, ok := db.cache.get(id); ok {
		db.metrics.lookup(true)
		return doc.Clone(), nil
	}
	db.metrics.lookup(false)
	e, ok := db.table.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	db.cache.put(id, e.doc)
	return e.doc.Clone(), nil
}
