// Package seal protects opaque byte blobs at rest using an AEAD cipher.
// A nil *Sealer is valid and passes data through unchanged, so callers never
// branch on whether sealing is configured.
package seal

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrKeySize is returned when the configured key is not 32 bytes.
var ErrKeySize = errors.New("seal key must be 32 bytes (64 hex characters)")

// ErrOpen is returned when a sealed blob fails authentication or decryption.
var ErrOpen = errors.New("sealed blob failed to open")

// Sealer seals and opens byte blobs with XChaCha20-Poly1305. The random nonce
// is prepended to each sealed blob.
type Sealer struct {
	aead cipher.AEAD
}

// New creates a Sealer from a hex-encoded 32-byte key. An empty key returns
// a nil Sealer, which passes blobs through unsealed.
func New(hexKey string) (*Sealer, error) {
	if hexKey == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode seal key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrKeySize
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts blob. Nil and empty blobs are returned as-is so optional
// columns stay NULL in storage.
func (s *Sealer) Seal(blob []byte) ([]byte, error) {
	if s == nil || len(blob) == 0 {
		return blob, nil
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, blob, nil), nil
}

// Open decrypts a blob produced by Seal.
func (s *Sealer) Open(blob []byte) ([]byte, error) {
	if s == nil || len(blob) == 0 {
		return blob, nil
	}

	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, ErrOpen
	}
	nonce, ciphertext := blob[:chacha20poly1305.NonceSizeX], blob[chacha20poly1305.NonceSizeX:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
