// JSON serialization of documents.
//
// Encoding walks the value tree directly so that field order is written
// exactly as held. Decoding validates the input first, then rebuilds the
// tree from the token stream of go-json's Decoder; going through map[string]any
// would lose key order and the integer/float distinction.
package shelf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

var errInvalidJSON = errors.New("invalid JSON")

// appendJSON appends the JSON encoding of v to buf.
func appendJSON(buf []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		return strconv.AppendBool(buf, v.b), nil
	case KindNumber:
		if v.float && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
			return nil, fmt.Errorf("%w: %v is not representable in JSON", ErrInvalidValue, v.f)
		}
		return append(buf, formatNumber(v)...), nil
	case KindString:
		return appendJSONString(buf, v.s)
	case KindArray:
		buf = append(buf, '[')
		for i, e := range v.arr {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = appendJSON(buf, e); err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case KindObject:
		buf = append(buf, '{')
		for i, f := range v.obj {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = appendJSONString(buf, f.Key); err != nil {
				return nil, err
			}
			buf = append(buf, ':')
			if buf, err = appendJSON(buf, f.Value); err != nil {
				return nil, err
			}
		}
		return append(buf, '}'), nil
	}
	return nil, fmt.Errorf("%w: kind %s", ErrInvalidValue, v.kind)
}

// appendJSONString rejects invalid UTF-8, which the encoder would
// otherwise replace with U+FFFD.
func appendJSONString(buf []byte, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("%w: string %q is not valid UTF-8", ErrInvalidValue, s)
	}
	quoted, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(buf, quoted...), nil
}

// marshalJSON encodes a document as a JSON object.
func marshalJSON(doc Document) ([]byte, error) {
	return appendJSON(make([]byte, 0, 64*len(doc)+2), Object(doc))
}

// unmarshalJSON decodes a JSON object into a document.
func unmarshalJSON(data []byte) (Document, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	doc, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: document must be an object, got %s", errInvalidJSON, v.kind)
	}
	return doc, nil
}

// decodeJSON decodes any single JSON value.
func decodeJSON(data []byte) (Value, error) {
	if !json.Valid(data) {
		return Value{}, errInvalidJSON
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("%w: %w", errInvalidJSON, err)
	}
	v, err := readJSONValue(dec, tok)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("%w: trailing data", errInvalidJSON)
	}
	return v, nil
}

func readJSONValue(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return readJSONObject(dec)
		case '[':
			return readJSONArray(dec)
		}
		return Value{}, fmt.Errorf("%w: unexpected %q", errInvalidJSON, rune(t))
	case json.Number:
		return parseNumber(string(t))
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Float(t), nil
	case nil:
		return Null(), nil
	}
	return Value{}, fmt.Errorf("%w: unexpected token %T", errInvalidJSON, tok)
}

func readJSONObject(dec *json.Decoder) (Value, error) {
	doc := Document{}
	for {
		tok, err := nextToken(dec)
		if err != nil {
			return Value{}, err
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return Object(doc), nil
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: object key is %T", errInvalidJSON, tok)
		}
		tok, err = nextToken(dec)
		if err != nil {
			return Value{}, err
		}
		v, err := readJSONValue(dec, tok)
		if err != nil {
			return Value{}, err
		}
		doc.Set(key, v)
	}
}

func readJSONArray(dec *json.Decoder) (Value, error) {
	arr := []Value{}
	for {
		tok, err := nextToken(dec)
		if err != nil {
			return Value{}, err
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return Array(arr...), nil
		}
		v, err := readJSONValue(dec, tok)
		if err != nil {
			return Value{}, err
		}
		arr = append(arr, v)
	}
}

func nextToken(dec *json.Decoder) (json.Token, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %w", errInvalidJSON, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidJSON, err)
	}
	return tok, nil
}

// MarshalJSON encodes the document as a JSON object in field order.
func (d Document) MarshalJSON() ([]byte, error) {
	return marshalJSON(d)
}

// UnmarshalJSON decodes a JSON object, keeping its field order.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := unmarshalJSON(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// MarshalJSON encodes the value as JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return appendJSON(nil, v)
}

// UnmarshalJSON decodes any JSON value.
func (v *Value) UnmarshalJSON(data []byte) error {
	out, err := decodeJSON(data)
	if err != nil {
		return err
	}
	*v = out
	return nil
}
