package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// Signer produces and verifies detached signatures over byte payloads.
type Signer interface {
	// Sign returns a signature over payload.
	Sign(payload []byte) ([]byte, error)

	// Verify checks sig against payload.
	// Returns ErrInvalidSignature if the signature does not match.
	Verify(payload, sig []byte) error

	// PublicKeyPEM exports the verification key in PEM form so external
	// auditors can check signatures independently.
	PublicKeyPEM() ([]byte, error)
}

// rsaSigner implements Signer using RSA-PSS with SHA-256.
type rsaSigner struct {
	key *rsa.PrivateKey
}

// Ensure rsaSigner implements Signer
var _ Signer = (*rsaSigner)(nil)

// pssOptions fixes the PSS parameters for both signing and verification.
// The salt length equals the hash length, the conventional choice.
var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthEqualsHash,
	Hash:       crypto.SHA256,
}

// minRSABits rejects keys too small to be trustworthy.
const minRSABits = 2048

// NewRSASigner creates a Signer from an RSA private key.
func NewRSASigner(key *rsa.PrivateKey) (Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrInvalidKey)
	}
	if key.N.BitLen() < minRSABits {
		return nil, fmt.Errorf("%w: RSA key must be at least %d bits, got %d",
			ErrInvalidKey, minRSABits, key.N.BitLen())
	}
	return &rsaSigner{key: key}, nil
}

// LoadSigner reads a PEM-encoded private key from path and builds a Signer.
// PKCS#8 and PKCS#1 encodings are accepted.
func LoadSigner(path string) (Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	key, err := ParsePrivateKeyPEM(data)
	if err != nil {
		return nil, err
	}
	return NewRSASigner(key)
}

// ParsePrivateKeyPEM decodes a PEM block holding an RSA private key.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}

	// Try PKCS#8 first, then fall back to the older PKCS#1 encoding.
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: key is not RSA", ErrInvalidKey)
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return rsaKey, nil
}

// Sign implements Signer.Sign.
func (s *rsaSigner) Sign(payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], pssOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	return sig, nil
}

// Verify implements Signer.Verify.
func (s *rsaSigner) Verify(payload, sig []byte) error {
	digest := sha256.Sum256(payload)
	if err := rsa.VerifyPSS(&s.key.PublicKey, crypto.SHA256, digest[:], sig, pssOptions); err != nil {
		if errors.Is(err, rsa.ErrVerification) {
			return ErrInvalidSignature
		}
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// PublicKeyPEM implements Signer.PublicKeyPEM.
func (s *rsaSigner) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
