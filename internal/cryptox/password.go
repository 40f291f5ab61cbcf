package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// PasswordSaltSize is the salt length used for new accounts.
const PasswordSaltSize = 16

// DerivePasswordKey stretches a password with argon2id.
func DerivePasswordKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier hashes a derived password key into the value kept on the
// user record.
func MakeVerifier(derived []byte) []byte {
	hash := sha256.Sum256(derived)
	return hash[:]
}

// CheckPassword recomputes the verifier for password and compares it with
// the stored one in constant time.
func CheckPassword(password, salt, verifier []byte) bool {
	candidate := MakeVerifier(DerivePasswordKey(password, salt))
	return subtle.ConstantTimeCompare(candidate, verifier) == 1
}
