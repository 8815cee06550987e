// At-rest encryption for record files.
//
// The configured secret is stretched with HKDF-SHA256 into two independent
// 32-byte keys: one for XChaCha20, one for a keyed BLAKE2b-256 MAC. Each
// record gets a fresh random 24-byte nonce (the IV). The MAC covers the
// ciphertext only (encrypt-then-MAC), and the stored blob is
//
//	base64(IV || MAC || ciphertext)
//
// Opening a blob recomputes the MAC and compares it in constant time
// before any decryption happens; a mismatch is ErrAuthentication.
package shelf

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

const (
	ivSize  = chacha20.NonceSizeX
	macSize = blake2b.Size256
	keySize = chacha20.KeySize
)

var keyInfo = []byte("shelf record keys v1")

// sealer encrypts and authenticates record blobs.
type sealer struct {
	encKey [keySize]byte
	macKey [keySize]byte
	rand   io.Reader
}

func newSealer(secret string) (*sealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty encryption key", ErrInvalidConfig)
	}
	s := &sealer{rand: rand.Reader}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, keyInfo)
	if _, err := io.ReadFull(kdf, s.encKey[:]); err != nil {
		return nil, fmt.Errorf("derive cipher key: %w", err)
	}
	if _, err := io.ReadFull(kdf, s.macKey[:]); err != nil {
		return nil, fmt.Errorf("derive mac key: %w", err)
	}
	return s, nil
}

// seal returns base64(IV || MAC || ciphertext).
func (s *sealer) seal(plain []byte) ([]byte, error) {
	raw := make([]byte, ivSize+macSize+len(plain))
	iv := raw[:ivSize]
	if _, err := io.ReadFull(s.rand, iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	c, err := chacha20.NewUnauthenticatedCipher(s.encKey[:], iv)
	if err != nil {
		return nil, err
	}
	ct := raw[ivSize+macSize:]
	c.XORKeyStream(ct, plain)

	tag, err := s.mac(ct)
	if err != nil {
		return nil, err
	}
	copy(raw[ivSize:], tag)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// open verifies and decrypts a blob produced by seal.
func (s *sealer) open(blob []byte) ([]byte, error) {
	blob = bytes.TrimSpace(blob)
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(blob)))
	n, err := base64.StdEncoding.Decode(raw, blob)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	raw = raw[:n]
	if len(raw) < ivSize+macSize {
		return nil, errors.New("blob too short")
	}

	iv := raw[:ivSize]
	stored := raw[ivSize : ivSize+macSize]
	ct := raw[ivSize+macSize:]

	tag, err := s.mac(ct)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(tag, stored) != 1 {
		return nil, ErrAuthentication
	}

	c, err := chacha20.NewUnauthenticatedCipher(s.encKey[:], iv)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(ct))
	c.XORKeyStream(plain, ct)
	return plain, nil
}

func (s *sealer) mac(ct []byte) ([]byte, error) {
	h, err := blake2b.New256(s.macKey[:])
	if err != nil {
		return nil, err
	}
	h.Write(ct)
	return h.Sum(nil), nil
}
