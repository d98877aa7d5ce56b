package signing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Envelope seals and opens byte payloads with AES-256-GCM. The random
// nonce is prepended to each ciphertext, so envelopes are self-contained.
type Envelope struct {
	aead cipher.AEAD
}

// NewEnvelope creates an Envelope from a 32-byte AES key.
func NewEnvelope(key []byte) (*Envelope, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: AES key must be 32 bytes, got %d", ErrInvalidKey, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to construct GCM: %w", err)
	}

	return &Envelope{aead: aead}, nil
}

// NewEnvelopeFromHex creates an Envelope from a hex-encoded 32-byte key,
// the form carried in configuration.
func NewEnvelopeFromHex(keyHex string) (*Envelope, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: key is not valid hex: %v", ErrInvalidKey, err)
	}
	return NewEnvelope(key)
}

// Seal encrypts plaintext, returning nonce||ciphertext.
func (e *Envelope) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts an envelope produced by Seal.
// Returns an error if the ciphertext has been tampered with.
func (e *Envelope) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < e.aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := sealed[:e.aead.NonceSize()], sealed[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open envelope: %w", err)
	}
	return plaintext, nil
}
