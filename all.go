// Full document enumeration.
//
// All copies references to every live entry under the lock, releases it,
// then yields deep copies. Callers may mutate the store from inside the
// loop without deadlocking, and see the store as it was when the loop
// began.
package shelf

import "iter"

// All yields a snapshot of every document in insertion order. The snapshot
// is taken when iteration starts; the store is not locked while the caller
// consumes it.
func (db *DB) All() iter.Seq2[string, Document] {
	return func(yield func(string, Document) bool) {
		db.mu.Lock()
		snap := make([]Record, 0, db.table.len())
		if !db.closed {
			for e := range db.table.entries() {
				snap = append(snap, Record{ID: e.id, Doc: e.doc})
			}
		}
		db.mu.Unlock()

		for _, r := range snap {
			if !yield(r.ID, r.Doc.Clone()) {
				return
			}
		}
	}
}
