// Package shared holds small helpers used by both the client and the
// development API.
package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns size random bytes, hex encoded (2*size characters).
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b. Use it on passwords once they have been sent.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
