package helper

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"
)

func Hash8(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// EmailField logs an address by its short hash so raw emails stay out of log storage.
func EmailField(email string) zap.Field {
	return zap.String("email_h", Hash8(strings.ToLower(strings.TrimSpace(email))))
}
