// Query evaluation: match, order, paginate.
//
// A predicate is a conjunction of field equalities. A predicate naming
// exactly one indexed field is answered from the index; anything else is
// a full scan of the table in insertion order. Ordering is a list of sort
// keys applied as successive tie-breakers with a stable sort, and
// offset/limit are applied last.
package shelf

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Predicate maps field names to the exact values a document must hold.
// An empty predicate matches every document.
type Predicate map[string]Value

// Where builds a predicate from alternating keys and values, converting
// values with ValueOf. It panics on malformed input, like D.
func Where(pairs ...any) Predicate {
	doc := D(pairs...)
	p := make(Predicate, len(doc))
	for _, f := range doc {
		p[f.Key] = f.Value
	}
	return p
}

func (p Predicate) matches(doc Document) bool {
	for field, want := range p {
		got, ok := doc.Get(field)
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// ParseDirection accepts "asc"/"desc" in any case; empty means Asc.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	}
	return Asc, fmt.Errorf("invalid sort direction %q", s)
}

// SortKey orders by Field, or by Field.Child when Child is set.
type SortKey struct {
	Field string
	Child string
	Dir   Direction
}

// By returns an ascending sort key; "parent.child" addresses a nested
// field.
func By(field string) SortKey {
	parent, child, _ := strings.Cut(field, ".")
	return SortKey{Field: parent, Child: child}
}

// Desc returns k with a descending direction.
func (k SortKey) Desc() SortKey {
	k.Dir = Desc
	return k
}

// ParseOrder parses a comma-separated ordering such as
// "created_at DESC, meta.rank".
func ParseOrder(s string) ([]SortKey, error) {
	var keys []SortKey
	for part := range strings.SplitSeq(s, ",") {
		fields := strings.Fields(part)
		switch len(fields) {
		case 0:
			continue
		case 1, 2:
		default:
			return nil, fmt.Errorf("invalid sort key %q", strings.TrimSpace(part))
		}
		k := By(fields[0])
		if len(fields) == 2 {
			dir, err := ParseDirection(fields[1])
			if err != nil {
				return nil, err
			}
			k.Dir = dir
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// ReadOptions controls ordering and pagination of query results.
type ReadOptions struct {
	Order  []SortKey
	Offset int
	Limit  int // 0 means no limit
}

// match returns the entries satisfying pred in insertion order.
func (db *DB) match(pred Predicate) []*entry {
	if len(pred) == 1 {
		for field, want := range pred {
			if ords, ok := db.index.lookup(field, want); ok {
				out := make([]*entry, 0, len(ords))
				for _, ord := range ords {
					if e := db.table.at(ord); e != nil {
						out = append(out, e)
					}
				}
				return out
			}
		}
	}

	var out []*entry
	for e := range db.table.entries() {
		if pred.matches(e.doc) {
			out = append(out, e)
		}
	}
	return out
}

// sortKeyed carries precomputed sort values for one entry.
type sortKeyed struct {
	e    *entry
	vals []sortValue
}

type sortValue struct {
	num   bool
	isInt bool
	i     int64
	f     float64
	text  string
}

func newSortValue(v Value, fold cases.Caser) sortValue {
	if v.kind == KindNumber {
		sv := sortValue{num: true}
		if v.float {
			sv.f = v.f
		} else {
			sv.isInt, sv.i, sv.f = true, v.i, float64(v.i)
		}
		sv.text = formatNumber(v)
		return sv
	}
	return sortValue{text: fold.String(v.text())}
}

func compareSortValues(a, b sortValue) int {
	if a.num && b.num {
		if a.isInt && b.isInt {
			return cmp.Compare(a.i, b.i)
		}
		return cmp.Compare(a.f, b.f)
	}
	return strings.Compare(a.text, b.text)
}

// order sorts entries in place by keys. Numbers compare numerically when
// both sides are numbers; everything else compares as case-folded text.
func order(entries []*entry, keys []SortKey) {
	if len(keys) == 0 || len(entries) < 2 {
		return
	}
	fold := cases.Fold()
	keyed := make([]sortKeyed, len(entries))
	for i, e := range entries {
		vals := make([]sortValue, len(keys))
		for j, k := range keys {
			v, _ := e.doc.Lookup(k.Field, k.Child)
			vals[j] = newSortValue(v, fold)
		}
		keyed[i] = sortKeyed{e: e, vals: vals}
	}

	slices.SortStableFunc(keyed, func(a, b sortKeyed) int {
		for j, k := range keys {
			c := compareSortValues(a.vals[j], b.vals[j])
			if c == 0 {
				continue
			}
			if k.Dir == Desc {
				return -c
			}
			return c
		}
		return 0
	})
	for i := range keyed {
		entries[i] = keyed[i].e
	}
}

// paginate applies offset then limit.
func paginate(entries []*entry, offset, limit int) []*entry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
