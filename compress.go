// Record compression.
//
// When enabled, serialized records are compressed before encryption. zstd
// is the default; lz4 trades ratio for speed. lz4 blocks carry an 8-byte
// header (uncompressed length, compressed length) because the block format
// does not record the original size; a compressed length of zero marks a
// block that was stored raw because lz4 could not shrink it.
package shelf

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression algorithm names accepted by Config.CompressionAlgorithm.
const (
	CompressZstd = "zstd"
	CompressLZ4  = "lz4"
)

// Shared encoder/decoder; both are safe for concurrent use and expensive
// to construct.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(1<<30))
)

const lz4HeaderSize = 8

// maxRecordSize bounds the decompressed size claimed by an lz4 header.
const maxRecordSize = 256 << 20

func compress(alg string, data []byte) ([]byte, error) {
	switch alg {
	case CompressZstd, "":
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2+16)), nil
	case CompressLZ4:
		return compressLZ4(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, alg)
	}
}

func decompress(alg string, data []byte) ([]byte, error) {
	switch alg {
	case CompressZstd, "":
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	case CompressLZ4:
		return decompressLZ4(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, alg)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	out := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, out[lz4HeaderSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	if n == 0 || n >= len(data) {
		// Incompressible: store raw.
		binary.LittleEndian.PutUint32(out[4:], 0)
		return append(out[:lz4HeaderSize], data...), nil
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(n))
	return out[:lz4HeaderSize+n], nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	if len(data) < lz4HeaderSize {
		return nil, errors.New("lz4: block too small for header")
	}
	size := int(binary.LittleEndian.Uint32(data[0:]))
	packed := int(binary.LittleEndian.Uint32(data[4:]))
	body := data[lz4HeaderSize:]
	if size > maxRecordSize {
		return nil, fmt.Errorf("lz4: declared size %d exceeds limit", size)
	}

	if packed == 0 {
		if len(body) != size {
			return nil, fmt.Errorf("lz4: stored block is %d bytes, header says %d", len(body), size)
		}
		return append([]byte(nil), body...), nil
	}
	if len(body) != packed {
		return nil, fmt.Errorf("lz4: block is %d bytes, header says %d", len(body), packed)
	}
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if n != size {
		return nil, errors.New("lz4: decompressed size mismatch")
	}
	return out, nil
}
