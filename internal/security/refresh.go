package security

import (
	"crypto/rand"
	"encoding/base64"
)

// NewRefreshToken returns 256 bits of randomness, base64url encoded.
func NewRefreshToken() (string, error) {
	return randomString(32)
}

// NewID returns a shorter random id, used for oauth state and reset tokens.
func NewID() (string, error) {
	return randomString(16)
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
