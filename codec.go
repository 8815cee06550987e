// Record codec: the encode/decode pipeline for record files.
//
// Write path: serialize -> compress (optional) -> encrypt (optional).
// Read path:  decrypt (optional) -> decompress (optional) -> parse.
//
// The stage order matters: compressing ciphertext gains nothing, so
// compression always sees the plain serialized bytes. Every failure is a
// *CodecError naming the stage.
package shelf

import (
	"fmt"
)

// Serialization formats accepted by Config.Format.
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

type codec struct {
	format      string
	compression string  // empty disables compression
	sealer      *sealer // nil disables encryption
}

func newCodec(format, compression, key string) (*codec, error) {
	c := &codec{format: format, compression: compression}
	switch format {
	case FormatJSON, FormatMsgpack:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	switch compression {
	case "", CompressZstd, CompressLZ4:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, compression)
	}
	if key != "" {
		s, err := newSealer(key)
		if err != nil {
			return nil, err
		}
		c.sealer = s
	}
	return c, nil
}

// ext is the record file extension, including the dot.
func (c *codec) ext() string {
	return "." + c.format
}

func (c *codec) encode(doc Document) ([]byte, error) {
	var data []byte
	var err error
	switch c.format {
	case FormatMsgpack:
		data, err = marshalMsgpack(doc)
	default:
		data, err = marshalJSON(doc)
	}
	if err != nil {
		return nil, &CodecError{Stage: "serialize", Err: err}
	}

	if c.compression != "" {
		if data, err = compress(c.compression, data); err != nil {
			return nil, &CodecError{Stage: "compress", Err: err}
		}
	}

	if c.sealer != nil {
		if data, err = c.sealer.seal(data); err != nil {
			return nil, &CodecError{Stage: "encrypt", Err: err}
		}
	}
	return data, nil
}

func (c *codec) decode(data []byte) (Document, error) {
	var err error
	if c.sealer != nil {
		if data, err = c.sealer.open(data); err != nil {
			return nil, &CodecError{Stage: "decrypt", Err: err}
		}
	}

	if c.compression != "" {
		if data, err = decompress(c.compression, data); err != nil {
			return nil, &CodecError{Stage: "decompress", Err: err}
		}
	}

	var doc Document
	switch c.format {
	case FormatMsgpack:
		doc, err = unmarshalMsgpack(data)
	default:
		doc, err = unmarshalJSON(data)
	}
	if err != nil {
		return nil, &CodecError{Stage: "parse", Err: err}
	}
	return doc, nil
}
