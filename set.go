// Whole-document replacement.
//
// Set goes through the same path as Update, so the record moves between
// index buckets and the cache follows, but the new document replaces the
// old one outright instead of being merged into it.
package shelf

import "fmt"

// Set replaces the whole document stored under id.
func (db *DB) Set(id string, doc Document) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	e, ok := db.table.get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if missing := doc.missing(db.config.RequiredFields); len(missing) > 0 {
		return &ValidationError{ID: id, Missing: missing}
	}
	db.replace(e, doc.Clone())
	db.touch()
	return db.autoCommitIfEnabled()
}

// replace swaps the document held by e, moving it between index buckets.
func (db *DB) replace(e *entry, doc Document) {
	db.index.remove(e.ord, e.doc)
	e.doc = doc
	db.index.insert(e.ord, doc)
	db.cache.put(e.id, doc)
}
