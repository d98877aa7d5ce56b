package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier checks a login attempt against a stored credential.
// Hashing itself happens in the user store at account creation; the login
// path only ever needs the comparison.
type PasswordVerifier interface {
	// Compare returns nil when password matches hashedPassword, a non-nil
	// error otherwise. The error is never shown to clients.
	Compare(hashedPassword, password string) error
}

// BcryptVerifier is the production PasswordVerifier, backed by bcrypt.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare checks password against the bcrypt hash in hashedPassword.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
