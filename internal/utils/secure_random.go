package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecureRandomString draws lengthInBytes bytes from crypto/rand and
// returns them hex encoded, so the result is twice that many characters.
// Used for refresh tokens and disbursement reference suffixes.
func GenerateSecureRandomString(lengthInBytes int) (string, error) {
	if lengthInBytes < 1 {
		return "", fmt.Errorf("secure random length must be at least 1 byte, got %d", lengthInBytes)
	}
	buf := make([]byte, lengthInBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
