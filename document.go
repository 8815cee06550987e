// Documents: ordered field lists.
//
// Document keeps fields in the order they were first set, so a document
// written to disk reads back with the same key order. Keys are unique;
// Set overwrites an existing key in place and appends new ones.
package shelf

import (
	"fmt"
	"slices"
)

// Field is a single key/value pair of a Document.
type Field struct {
	Key   string
	Value Value
}

// Document is an ordered mapping from field name to Value.
type Document []Field

// D builds a document from alternating keys and values. Values go through
// ValueOf. It panics on an odd argument count, a non-string key or an
// unsupported value, so it is meant for literals in code and tests.
func D(pairs ...any) Document {
	if len(pairs)%2 != 0 {
		panic("shelf.D: odd number of arguments")
	}
	doc := make(Document, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("shelf.D: key at position %d is %T, not string", i, pairs[i]))
		}
		doc.Set(key, MustValueOf(pairs[i+1]))
	}
	return doc
}

// Get returns the value stored under key.
func (d Document) Get(key string) (Value, bool) {
	for _, f := range d {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether key is present (a null value counts as present).
func (d Document) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Lookup resolves a one-level nested path: the child field of the object
// stored under parent. An empty child looks up parent directly.
func (d Document) Lookup(parent, child string) (Value, bool) {
	v, ok := d.Get(parent)
	if !ok || child == "" {
		return v, ok
	}
	obj, ok := v.AsObject()
	if !ok {
		return Value{}, false
	}
	return obj.Get(child)
}

// Set stores v under key, overwriting in place when the key exists.
func (d *Document) Set(key string, v Value) {
	for i := range *d {
		if (*d)[i].Key == key {
			(*d)[i].Value = v
			return
		}
	}
	*d = append(*d, Field{Key: key, Value: v})
}

// Delete removes key and reports whether it was present.
func (d *Document) Delete(key string) bool {
	for i := range *d {
		if (*d)[i].Key == key {
			*d = slices.Delete(*d, i, i+1)
			return true
		}
	}
	return false
}

// Keys returns the field names in order.
func (d Document) Keys() []string {
	keys := make([]string, len(d))
	for i, f := range d {
		keys[i] = f.Key
	}
	return keys
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for i, f := range d {
		out[i] = Field{Key: f.Key, Value: f.Value.Clone()}
	}
	return out
}

// Merge returns a copy of d with every field of patch applied: existing
// keys are overwritten in place, new keys are appended, untouched keys
// keep their values.
func (d Document) Merge(patch Document) Document {
	out := d.Clone()
	if out == nil {
		out = Document{}
	}
	for _, f := range patch {
		out.Set(f.Key, f.Value.Clone())
	}
	return out
}

// Equal compares two documents as unordered key sets.
func (d Document) Equal(o Document) bool {
	if len(d) != len(o) {
		return false
	}
	for _, f := range d {
		ov, ok := o.Get(f.Key)
		if !ok || !f.Value.Equal(ov) {
			return false
		}
	}
	return true
}

// Map converts the document into a plain map, losing field order.
func (d Document) Map() map[string]any {
	m := make(map[string]any, len(d))
	for _, f := range d {
		m[f.Key] = f.Value.Interface()
	}
	return m
}

// missing returns the required fields absent from d.
func (d Document) missing(required []string) []string {
	var out []string
	for _, key := range required {
		if !d.Has(key) {
			out = append(out, key)
		}
	}
	return out
}

// String renders d as JSON.
func (d Document) String() string {
	return Object(d).String()
}
