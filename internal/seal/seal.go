// Package seal protects enrolled face templates at rest.
//
// A sealed template is the base64url encoding of
//
//	[version: 1 byte] [nonce: 24 bytes] [XChaCha20-Poly1305 ciphertext+tag]
//
// The version byte is authenticated as additional data.
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of the master sealing key.
const KeySize = 32

const blobVersion byte = 0x01

const blobOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// hkdfInfoTemplate separates template keys from any other use of the master key.
// Changing it invalidates every sealed template.
var hkdfInfoTemplate = []byte("attendance.template.v1")

// ErrMalformed is returned when a sealed string cannot be opened: bad
// encoding, truncated data, wrong key or tampering.
var ErrMalformed = errors.New("malformed sealed template")

// Sealer converts raw bytes to and from their stored sealed form.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
	Unseal(sealed string) ([]byte, error)
}

// AEADSealer seals with a key derived from the master key via HKDF-SHA256.
type AEADSealer struct {
	key []byte
}

// NewAEADSealer derives the template key from masterKey, which must be KeySize bytes.
func NewAEADSealer(masterKey []byte) (*AEADSealer, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", KeySize, len(masterKey))
	}
	reader := hkdf.New(sha256.New, masterKey, nil, hkdfInfoTemplate)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive template key: %w", err)
	}
	return &AEADSealer{key: key}, nil
}

func (s *AEADSealer) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 1+len(nonce), blobOverhead+len(plaintext))
	out[0] = blobVersion
	copy(out[1:], nonce[:])
	out = aead.Seal(out, nonce[:], plaintext, []byte{blobVersion})

	return base64.URLEncoding.EncodeToString(out), nil
}

func (s *AEADSealer) Unseal(sealed string) ([]byte, error) {
	blob, err := base64.URLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformed, err)
	}
	if len(blob) < blobOverhead {
		return nil, fmt.Errorf("%w: %d bytes, minimum is %d", ErrMalformed, len(blob), blobOverhead)
	}
	if blob[0] != blobVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, blob[0])
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], blob[:1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return plaintext, nil
}
