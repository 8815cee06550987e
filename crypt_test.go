// Encryption tests.
//
// The sealed blob is base64(IV || MAC || ciphertext). Any change to any
// part of it must fail authentication rather than yield altered plaintext.
package shelf

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func mustSealer(t *testing.T, key string) *sealer {
	t.Helper()
	s, err := newSealer(key)
	if err != nil {
		t.Fatalf("newSealer: %v", err)
	}
	return s
}

func TestSealOpen(t *testing.T) {
	s := mustSealer(t, "correct horse battery staple")
	plain := []byte(`{"secret":"value"}`)

	blob, err := s.seal(plain)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(blob, plain) {
		t.Error("blob contains plaintext")
	}
	got, err := s.open(blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("open = %q, want %q", got, plain)
	}
}

// Fresh IVs: sealing the same plaintext twice gives different blobs.
func TestSealUsesFreshIV(t *testing.T) {
	s := mustSealer(t, "k")
	a, _ := s.seal([]byte("same"))
	b, _ := s.seal([]byte("same"))
	if bytes.Equal(a, b) {
		t.Error("two seals of the same plaintext are identical")
	}
}

func TestOpenDetectsTampering(t *testing.T) {
	s := mustSealer(t, "k")
	blob, _ := s.seal([]byte(`{"amount":100}`))
	raw, _ := base64.StdEncoding.DecodeString(string(blob))

	for i := range raw {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01
		enc := []byte(base64.StdEncoding.EncodeToString(tampered))
		if _, err := s.open(enc); !errors.Is(err, ErrAuthentication) {
			t.Fatalf("flipping byte %d: open = %v, want ErrAuthentication", i, err)
		}
	}
}

func TestOpenWrongKey(t *testing.T) {
	blob, _ := mustSealer(t, "one").seal([]byte("data"))
	if _, err := mustSealer(t, "two").open(blob); !errors.Is(err, ErrAuthentication) {
		t.Errorf("open with wrong key = %v, want ErrAuthentication", err)
	}
}

func TestOpenMalformed(t *testing.T) {
	s := mustSealer(t, "k")
	short := base64.StdEncoding.EncodeToString(make([]byte, ivSize+macSize-1))
	for name, in := range map[string]string{
		"not base64": "!!!",
		"too short":  short,
	} {
		if _, err := s.open([]byte(in)); err == nil {
			t.Errorf("%s: open succeeded", name)
		}
	}
}

func TestNewSealerEmptyKey(t *testing.T) {
	if _, err := newSealer(""); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("newSealer(\"\") = %v, want ErrInvalidConfig", err)
	}
}
