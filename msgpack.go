// MessagePack serialization of documents.
//
// The binary format mirrors the JSON one: maps are written field by field
// in document order, integers stay integers and floats are always written
// as float64 so the integer/float distinction survives decoding.
package shelf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

var errInvalidMsgpack = errors.New("invalid msgpack")

// maxMsgpackLen caps declared collection lengths so a corrupt header
// cannot trigger a huge allocation before the decoder runs out of input.
const maxMsgpackLen = 1 << 24

func marshalMsgpack(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(&buf)

	if err := encodeMsgpack(enc, Object(doc)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeMsgpack(enc *msgpack.Encoder, v Value) error {
	switch v.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindNumber:
		if v.float {
			return enc.EncodeFloat64(v.f)
		}
		return enc.EncodeInt(v.i)
	case KindString:
		return enc.EncodeString(v.s)
	case KindArray:
		if err := enc.EncodeArrayLen(len(v.arr)); err != nil {
			return err
		}
		for _, e := range v.arr {
			if err := encodeMsgpack(enc, e); err != nil {
				return err
			}
		}
		return nil
	case KindObject:
		if err := enc.EncodeMapLen(len(v.obj)); err != nil {
			return err
		}
		for _, f := range v.obj {
			if err := enc.EncodeString(f.Key); err != nil {
				return err
			}
			if err := encodeMsgpack(enc, f.Value); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: kind %s", ErrInvalidValue, v.kind)
}

func unmarshalMsgpack(data []byte) (Document, error) {
	r := bytes.NewReader(data)
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.Reset(r)

	v, err := decodeMsgpack(dec)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errInvalidMsgpack, r.Len())
	}
	doc, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: document must be a map, got %s", errInvalidMsgpack, v.kind)
	}
	return doc, nil
}

func decodeMsgpack(dec *msgpack.Decoder) (Value, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return Value{}, msgpackErr(err)
	}

	switch {
	case c == msgpcode.Nil:
		if err := dec.DecodeNil(); err != nil {
			return Value{}, msgpackErr(err)
		}
		return Null(), nil
	case c == msgpcode.False || c == msgpcode.True:
		b, err := dec.DecodeBool()
		if err != nil {
			return Value{}, msgpackErr(err)
		}
		return Bool(b), nil
	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return Value{}, msgpackErr(err)
		}
		return Float(f), nil
	case msgpcode.IsFixedNum(c),
		c >= msgpcode.Uint8 && c <= msgpcode.Uint64,
		c >= msgpcode.Int8 && c <= msgpcode.Int64:
		if c == msgpcode.Uint64 {
			u, err := dec.DecodeUint64()
			if err != nil {
				return Value{}, msgpackErr(err)
			}
			return uintValue(u), nil
		}
		i, err := dec.DecodeInt64()
		if err != nil {
			return Value{}, msgpackErr(err)
		}
		return Int(i), nil
	case msgpcode.IsString(c):
		s, err := dec.DecodeString()
		if err != nil {
			return Value{}, msgpackErr(err)
		}
		return String(s), nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Value{}, msgpackErr(err)
		}
		if n < 0 || n > maxMsgpackLen {
			return Value{}, fmt.Errorf("%w: array length %d", errInvalidMsgpack, n)
		}
		arr := make([]Value, 0, min(n, 1024))
		for range n {
			e, err := decodeMsgpack(dec)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, e)
		}
		return Array(arr...), nil
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return Value{}, msgpackErr(err)
		}
		if n < 0 || n > maxMsgpackLen {
			return Value{}, fmt.Errorf("%w: map length %d", errInvalidMsgpack, n)
		}
		doc := make(Document, 0, min(n, 1024))
		for range n {
			key, err := dec.DecodeString()
			if err != nil {
				return Value{}, msgpackErr(err)
			}
			v, err := decodeMsgpack(dec)
			if err != nil {
				return Value{}, err
			}
			doc.Set(key, v)
		}
		return Object(doc), nil
	}
	return Value{}, fmt.Errorf("%w: unsupported code 0x%02x", errInvalidMsgpack, c)
}

func msgpackErr(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %w", errInvalidMsgpack, err)
}
