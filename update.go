// Document updates.
//
// An update merges a patch into each matching document: patch fields
// overwrite or append, other fields are kept. Updated documents are
// re-validated; the first one that fails stops the pass. Documents already
// updated in that pass stay updated.
package shelf

import (
	"errors"

	"go.uber.org/zap"
)

// Update merges patch into every document matching pred and returns how
// many were changed. On a validation failure it returns the count applied
// so far together with a *ValidationError.
func (db *DB) Update(pred Predicate, patch Document) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return 0, ErrClosed
	}

	var n int
	var verr error
	for _, e := range db.match(pred) {
		merged := e.doc.Merge(patch)
		if missing := merged.missing(db.config.RequiredFields); len(missing) > 0 {
			verr = &ValidationError{ID: e.id, Missing: missing}
			break
		}
		db.replace(e, merged)
		n++
	}
	if n > 0 {
		db.touch()
		db.log.Debug("updated", zap.Int("count", n))
		if err := db.autoCommitIfEnabled(); err != nil {
			return n, errors.Join(verr, err)
		}
	}
	return n, verr
}
