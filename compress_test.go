package shelf

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	random := make([]byte, 4096)
	rand.Read(random)
	inputs := map[string][]byte{
		"empty":        {},
		"small":        []byte(`{"a":1}`),
		"repetitive":   bytes.Repeat([]byte(`{"title":"same"}`), 500),
		"incompressed": random,
	}
	for _, alg := range []string{CompressZstd, CompressLZ4} {
		for name, in := range inputs {
			t.Run(alg+"/"+name, func(t *testing.T) {
				packed, err := compress(alg, in)
				if err != nil {
					t.Fatalf("compress: %v", err)
				}
				out, err := decompress(alg, packed)
				if err != nil {
					t.Fatalf("decompress: %v", err)
				}
				if !bytes.Equal(in, out) {
					t.Errorf("round trip mismatch: %d bytes in, %d out", len(in), len(out))
				}
			})
		}
	}
}

func TestCompressShrinksRepetitiveInput(t *testing.T) {
	in := bytes.Repeat([]byte("abcdefgh"), 1000)
	for _, alg := range []string{CompressZstd, CompressLZ4} {
		packed, _ := compress(alg, in)
		if len(packed) >= len(in)/4 {
			t.Errorf("%s: %d bytes compressed to %d", alg, len(in), len(packed))
		}
	}
}

// Random data does not shrink under lz4 and is stored raw behind the
// header, flagged by a zero compressed length.
func TestLZ4StoresIncompressibleRaw(t *testing.T) {
	in := make([]byte, 256)
	rand.Read(in)
	packed, err := compressLZ4(in)
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(packed[4:]); got != 0 {
		t.Errorf("compressed length = %d, want 0 (raw)", got)
	}
	if !bytes.Equal(packed[lz4HeaderSize:], in) {
		t.Error("raw body differs from input")
	}
}

func TestLZ4RejectsCorruptHeaders(t *testing.T) {
	good, _ := compressLZ4(bytes.Repeat([]byte("x"), 1000))

	huge := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(huge[0:], maxRecordSize+1)

	wrongPacked := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(wrongPacked[4:], 1)

	tests := map[string][]byte{
		"short":         {1, 2, 3},
		"huge size":     huge,
		"packed length": wrongPacked,
		"truncated":     good[:len(good)-1],
	}
	for name, in := range tests {
		if _, err := decompressLZ4(in); err == nil {
			t.Errorf("%s: decompress succeeded", name)
		}
	}
}

func TestZstdRejectsGarbage(t *testing.T) {
	if _, err := decompress(CompressZstd, []byte("definitely not zstd")); err == nil {
		t.Error("decompress succeeded on garbage")
	}
}

func TestUnknownCompression(t *testing.T) {
	if _, err := compress("brotli", nil); !errors.Is(err, ErrUnknownCompression) {
		t.Errorf("compress = %v, want ErrUnknownCompression", err)
	}
	if _, err := decompress("brotli", nil); !errors.Is(err, ErrUnknownCompression) {
		t.Errorf("decompress = %v, want ErrUnknownCompression", err)
	}
}
