// Query operations.
package shelf

// Read returns copies of the documents matching pred, ordered and
// paginated by opts. A nil opts returns every match in insertion order.
func (db *DB) Read(pred Predicate, opts *ReadOptions) ([]Document, error) {
	recs, err := db.Find(pred, opts)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, len(recs))
	for i, r := range recs {
		docs[i] = r.Doc
	}
	return docs, nil
}

// Find is Read with the record IDs attached.
func (db *DB) Find(pred Predicate, opts *ReadOptions) ([]Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}

	entries := db.match(pred)
	if opts != nil {
		order(entries, opts.Order)
		entries = paginate(entries, opts.Offset, opts.Limit)
	}

	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = Record{ID: e.id, Doc: e.doc.Clone()}
	}
	return out, nil
}
