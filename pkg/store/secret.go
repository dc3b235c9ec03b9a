package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret returns a fresh bearer secret: 16 random bytes (128 bits)
// hex-encoded.
func GenerateSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
