// Package envelope seals an arbitrary byte blob with AES-GCM-256: a fresh
// random nonce per call, no associated data, authentication tag implicit in
// the cipher's output length.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// KeySize is the required session key length: AES-256.
const KeySize = 32

// NonceSize is the AEAD nonce length: 96 bits, as AES-GCM expects.
const NonceSize = 12

// ErrAuthFailed reports that Open's AEAD tag check failed, or that the
// sealed blob was too short to contain a nonce. The plaintext is never
// returned in either case.
var ErrAuthFailed = errors.New("envelope: authentication failed")

// ErrBadKeySize reports a session key that is not exactly KeySize bytes.
var ErrBadKeySize = errors.New("envelope: key must be 32 bytes")

// Sealer applies authenticated encryption over a whole blob at once. One
// Sealer is built around one fixed key; it is safe for concurrent Seal/Open
// calls (the underlying cipher.AEAD is, and each Seal draws its own nonce).
type Sealer struct {
	aead cipher.AEAD
}

// New builds a Sealer from a 256-bit key.
func New(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBadKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	if aead.NonceSize() != NonceSize {
		return nil, fmt.Errorf("envelope: unexpected nonce size %d", aead.NonceSize())
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext under a freshly generated nonce and returns
// nonce || ciphertext || tag. A fresh nonce is drawn from crypto/rand on
// every call; reusing a nonce under the same key would break AES-GCM's
// security guarantees, so the nonce is never caller-supplied.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("envelope: generating nonce: %w", err)
	}
	sealed := make([]byte, 0, NonceSize+len(plaintext)+s.aead.Overhead())
	sealed = append(sealed, nonce...)
	sealed = s.aead.Seal(sealed, nonce, plaintext, nil)
	return sealed, nil
}

// Open verifies and decrypts a blob produced by Seal. On any failure
// (too short, or AEAD authentication failure) it returns ErrAuthFailed and
// no plaintext, partial or otherwise.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: blob too short", ErrAuthFailed)
	}
	nonce, ciphertext := sealed[:NonceSize], sealed[NonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return plaintext, nil
}
