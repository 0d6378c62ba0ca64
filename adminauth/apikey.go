package adminauth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Keyring maps admin key ids to bcrypt hashes of their secrets. Loaded from
// deployment configuration; an empty keyring accepts nothing.
type Keyring map[string]string

// VerifyKey checks the presented secret against the keyring entry.
func (k Keyring) VerifyKey(id, secret string) bool {
	hash, ok := k[id]
	if !ok || !IsBcryptHash(hash) {
		return false
	}
	ok, _ = verifyBcrypt(hash, secret)
	return ok
}

// HashKey produces a bcrypt hash for storing a new admin key.
func HashKey(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// verifyBcrypt compares a bcrypt hash with a plaintext secret.
func verifyBcrypt(hash, secret string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return err == nil, err
}

// IsBcryptHash detects common bcrypt PHC prefixes.
func IsBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
