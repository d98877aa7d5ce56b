package signing

import "errors"

// Signing errors
var (
	// ErrInvalidSignature is returned when a signature does not verify
	// against the payload and public key.
	ErrInvalidSignature = errors.New("signature verification failed")

	// ErrInvalidKey is returned when key material cannot be parsed or has
	// the wrong type or size.
	ErrInvalidKey = errors.New("invalid key material")

	// ErrCiphertextTooShort is returned when an envelope is shorter than
	// the GCM nonce it must begin with.
	ErrCiphertextTooShort = errors.New("ciphertext shorter than nonce")
)
