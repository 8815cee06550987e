// Schema-free values.
//
// A Value is a tagged tree: one of null, bool, number, string, array or
// object. Numbers remember whether they were written as integers or floats
// so that integer literals survive a round trip unchanged, but equality is
// numeric: 1 and 1.0 are the same value, both for predicates and for index
// bucket keys.
package shelf

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"

	json "github.com/goccy/go-json"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single document value. The zero Value is null.
type Value struct {
	kind  Kind
	b     bool
	float bool // number was a float; i is unused
	i     int64
	f     float64
	s     string
	arr   []Value
	obj   Document
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer number.
func Int(i int64) Value { return Value{kind: KindNumber, i: i} }

// Float returns a floating point number.
func Float(f float64) Value { return Value{kind: KindNumber, float: true, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns an array holding vs.
func Array(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindArray, arr: vs}
}

// Object returns a nested document value.
func Object(d Document) Value {
	if d == nil {
		d = Document{}
	}
	return Value{kind: KindObject, obj: d}
}

// ValueOf converts a native Go value into a Value. Supported inputs are
// nil, Value, Document, bool, string, every integer and float type,
// json.Number, []any, []string, []Value and map[string]any (keys sorted,
// since Go maps carry no order).
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case Document:
		return Object(v), nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return uintValue(uint64(v)), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return uintValue(v), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case json.Number:
		return parseNumber(string(v))
	case []Value:
		return Array(slices.Clone(v)...), nil
	case []string:
		out := make([]Value, len(v))
		for i, s := range v {
			out[i] = String(s)
		}
		return Array(out...), nil
	case []any:
		out := make([]Value, len(v))
		for i, e := range v {
			ev, err := ValueOf(e)
			if err != nil {
				return Value{}, err
			}
			out[i] = ev
		}
		return Array(out...), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		doc := make(Document, 0, len(keys))
		for _, k := range keys {
			ev, err := ValueOf(v[k])
			if err != nil {
				return Value{}, err
			}
			doc = append(doc, Field{Key: k, Value: ev})
		}
		return Object(doc), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrInvalidValue, x)
	}
}

// MustValueOf is like ValueOf but panics on unsupported input.
func MustValueOf(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}

func uintValue(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

// parseNumber turns a JSON number literal into a Value, keeping integer
// literals as integers when they fit in int64.
func parseNumber(lit string) (Value, error) {
	integral := true
	for i := 0; i < len(lit); i++ {
		switch lit[i] {
		case '.', 'e', 'E':
			integral = false
		}
	}
	if integral {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q: %w", lit, err)
	}
	return Float(f), nil
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsFloat reports whether v is a number written as a float.
func (v Value) IsFloat() bool { return v.kind == KindNumber && v.float }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsInt returns v as an integer. Floats with an integral value convert.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if !v.float {
		return v.i, true
	}
	if i, ok := integralFloat(v.f); ok {
		return i, true
	}
	return 0, false
}

// AsFloat returns v as a float64. Integers convert.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if v.float {
		return v.f, true
	}
	return float64(v.i), true
}

// AsArray returns the elements of an array value. The slice is shared.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the document of an object value. The document is shared.
func (v Value) AsObject() (Document, bool) { return v.obj, v.kind == KindObject }

// Interface converts v back into plain Go values: nil, bool, int64,
// float64, string, []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if v.float {
			return v.f
		}
		return v.i
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		return v.obj.Map()
	default:
		return nil
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		out := make([]Value, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Clone()
		}
		v.arr = out
	case KindObject:
		v.obj = v.obj.Clone()
	}
	return v
}

// Equal reports strict equality: same kind and same contents. Numbers are
// compared by value regardless of integer/float representation; objects
// are compared as unordered key sets.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return numbersEqual(v, o)
	case KindString:
		return v.s == o.s
	case KindArray:
		return slices.EqualFunc(v.arr, o.arr, Value.Equal)
	case KindObject:
		return v.obj.Equal(o.obj)
	}
	return false
}

func numbersEqual(a, b Value) bool {
	switch {
	case !a.float && !b.float:
		return a.i == b.i
	case a.float && b.float:
		return a.f == b.f
	case a.float:
		i, ok := integralFloat(a.f)
		return ok && i == b.i
	default:
		i, ok := integralFloat(b.f)
		return ok && i == a.i
	}
}

// integralFloat reports whether f holds an integer representable as int64.
func integralFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// text renders v for case-insensitive ordering. Null sorts as "".
func (v Value) text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v)
	case KindString:
		return v.s
	default:
		b, err := appendJSON(nil, v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func formatNumber(v Value) string {
	if !v.float {
		return strconv.FormatInt(v.i, 10)
	}
	s := strconv.FormatFloat(v.f, 'g', -1, 64)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', 'e', 'E', 'N', 'I':
			return s
		}
	}
	return s + ".0"
}

// appendKey appends a canonical, type-tagged encoding of v. Values that
// are Equal produce identical keys: integral floats encode as integers and
// object fields are sorted by key.
func (v Value) appendKey(buf []byte) []byte {
	switch v.kind {
	case KindNull:
		return append(buf, 'n')
	case KindBool:
		if v.b {
			return append(buf, 't')
		}
		return append(buf, 'f')
	case KindNumber:
		if i, ok := v.AsInt(); ok {
			buf = append(buf, 'i')
			return binary.BigEndian.AppendUint64(buf, uint64(i))
		}
		buf = append(buf, 'd')
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(v.f))
	case KindString:
		buf = append(buf, 's')
		buf = binary.AppendUvarint(buf, uint64(len(v.s)))
		return append(buf, v.s...)
	case KindArray:
		buf = append(buf, 'a')
		buf = binary.AppendUvarint(buf, uint64(len(v.arr)))
		for _, e := range v.arr {
			buf = e.appendKey(buf)
		}
		return buf
	case KindObject:
		fields := slices.Clone(v.obj)
		slices.SortFunc(fields, func(a, b Field) int {
			switch {
			case a.Key < b.Key:
				return -1
			case a.Key > b.Key:
				return 1
			}
			return 0
		})
		buf = append(buf, 'o')
		buf = binary.AppendUvarint(buf, uint64(len(fields)))
		for _, f := range fields {
			buf = binary.AppendUvarint(buf, uint64(len(f.Key)))
			buf = append(buf, f.Key...)
			buf = f.Value.appendKey(buf)
		}
		return buf
	}
	return buf
}

// String renders v as JSON, for logs and error messages.
func (v Value) String() string {
	b, err := appendJSON(nil, v)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(b)
}
