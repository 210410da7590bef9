package crypto

import "golang.org/x/crypto/bcrypt"

// Hash derives a bcrypt hash from a plaintext secret.
func Hash(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// Verify compares a plaintext secret against a bcrypt hash.
func Verify(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
