// Document creation.
package shelf

import "go.uber.org/zap"

// Create validates doc against the required fields, stores a copy under a
// new ID and returns the ID. With auto-commit on, the store is committed
// before returning; a commit failure is reported but the document stays
// in memory and the store stays dirty.
func (db *DB) Create(doc Document) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return "", ErrClosed
	}
	if missing := doc.missing(db.config.RequiredFields); len(missing) > 0 {
		return "", &ValidationError{Missing: missing}
	}

	id, err := newID()
	if err != nil {
		return "", err
	}
	stored := doc.Clone()
	e := db.table.insert(id, stored)
	db.index.insert(e.ord, stored)
	db.cache.put(id, stored)
	db.touch()
	db.log.Debug("created", zap.String("id", id))

	if err := db.autoCommitIfEnabled(); err != nil {
		return id, err
	}
	return id, nil
}
