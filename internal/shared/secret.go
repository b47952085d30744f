// Package shared holds helpers for handling secret material.
package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// MinSecretBytes is the smallest signing secret GenerateSecret produces.
const MinSecretBytes = 32

// GenerateSecret returns size random bytes hex-encoded, suitable for
// JWT_SECRET. Sizes below MinSecretBytes are raised to it.
func GenerateSecret(size int) (string, error) {
	if size < MinSecretBytes {
		size = MinSecretBytes
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Used for passwords read from a terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
