// Equality indexes.
//
// For every configured field the index maps a value to the set of records
// holding it: field -> bucket key -> roaring bitmap of ordinals (see
// hash.go for bucket keys). Bitmaps iterate in ascending
// ordinal order, which is insertion order.
//
// Updates remove the record from the buckets of its previous values before
// adding the new ones; a bucket only ever holds records whose current value
// matches it.
//
// A value containing NaN equals nothing, itself included, so it is never
// put in a bucket and looking it up finds nothing.
package shelf

import (
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

type index struct {
	fields  []string
	buckets map[string]map[bucketKey]*roaring.Bitmap
}

func newIndex(fields []string) *index {
	ix := &index{fields: slices.Clone(fields)}
	ix.reset()
	return ix
}

func (ix *index) reset() {
	ix.buckets = make(map[string]map[bucketKey]*roaring.Bitmap, len(ix.fields))
	for _, f := range ix.fields {
		ix.buckets[f] = make(map[bucketKey]*roaring.Bitmap)
	}
}

// indexed reports whether field has an index.
func (ix *index) indexed(field string) bool {
	_, ok := ix.buckets[field]
	return ok
}

// rebuild clears every index and repopulates it from the table in one pass.
func (ix *index) rebuild(t *table) {
	ix.reset()
	for e := range t.entries() {
		ix.insert(e.ord, e.doc)
	}
}

// insert adds ord to the bucket of each indexed field present in doc.
func (ix *index) insert(ord uint32, doc Document) {
	for field, values := range ix.buckets {
		v, ok := doc.Get(field)
		if !ok || !indexable(v) {
			continue
		}
		key := valueKey(v)
		bm, ok := values[key]
		if !ok {
			bm = roaring.New()
			values[key] = bm
		}
		bm.Add(ord)
	}
}

// remove drops ord from the buckets of the values held by old, the
// record's previous contents.
func (ix *index) remove(ord uint32, old Document) {
	for field, values := range ix.buckets {
		v, ok := old.Get(field)
		if !ok || !indexable(v) {
			continue
		}
		key := valueKey(v)
		if bm, ok := values[key]; ok {
			bm.Remove(ord)
			if bm.IsEmpty() {
				delete(values, key)
			}
		}
	}
}

// purge drops ord from every bucket of every index.
func (ix *index) purge(ord uint32) {
	for _, values := range ix.buckets {
		for key, bm := range values {
			if bm.CheckedRemove(ord) && bm.IsEmpty() {
				delete(values, key)
			}
		}
	}
}

// lookup returns the ordinals whose field equals v, ascending. The second
// result is false when field has no index.
func (ix *index) lookup(field string, v Value) ([]uint32, bool) {
	values, ok := ix.buckets[field]
	if !ok {
		return nil, false
	}
	if !indexable(v) {
		return nil, true
	}
	bm, ok := values[valueKey(v)]
	if !ok {
		return nil, true
	}
	return bm.ToArray(), true
}

// indexable reports whether v can equal anything, which holds unless it
// contains a NaN.
func indexable(v Value) bool {
	switch v.kind {
	case KindNumber:
		return !v.float || !math.IsNaN(v.f)
	case KindArray:
		for _, e := range v.arr {
			if !indexable(e) {
				return false
			}
		}
	case KindObject:
		for _, f := range v.obj {
			if !indexable(f.Value) {
				return false
			}
		}
	}
	return true
}

// size returns the number of entries across all buckets of field.
func (ix *index) size(field string) int {
	var n uint64
	for _, bm := range ix.buckets[field] {
		n += bm.GetCardinality()
	}
	return int(n)
}
