// The in-memory document table.
//
// Each record gets an ordinal when it enters the table. Ordinals only grow,
// so walking the slot slice in order yields insertion order, and index
// posting lists (roaring bitmaps of ordinals) iterate in the same order.
// Deleted slots stay nil until the next load, which renumbers from zero.
package shelf

import "iter"

type entry struct {
	id  string
	ord uint32
	doc Document
}

type table struct {
	byID  map[string]*entry
	slots []*entry
}

func newTable() *table {
	return &table{byID: make(map[string]*entry)}
}

// insert adds a new record and assigns it the next ordinal.
func (t *table) insert(id string, doc Document) *entry {
	e := &entry{id: id, ord: uint32(len(t.slots)), doc: doc}
	t.slots = append(t.slots, e)
	t.byID[id] = e
	return e
}

func (t *table) get(id string) (*entry, bool) {
	e, ok := t.byID[id]
	return e, ok
}

func (t *table) at(ord uint32) *entry {
	if int(ord) >= len(t.slots) {
		return nil
	}
	return t.slots[ord]
}

func (t *table) remove(id string) (*entry, bool) {
	e, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	delete(t.byID, id)
	t.slots[e.ord] = nil
	return e, true
}

func (t *table) len() int { return len(t.byID) }

// entries yields live records in insertion order.
func (t *table) entries() iter.Seq[*entry] {
	return func(yield func(*entry) bool) {
		for _, e := range t.slots {
			if e != nil && !yield(e) {
				return
			}
		}
	}
}
