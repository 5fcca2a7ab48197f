package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// GenerateAPIKey returns a fresh random key. It is shown to the user once;
// only the hash is stored.
func GenerateAPIKey() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func VerifyAPIKey(key, storedHash string) bool {
	h := HashAPIKey(key)
	return subtle.ConstantTimeCompare([]byte(h), []byte(storedHash)) == 1
}
