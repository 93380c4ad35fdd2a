package util

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns n random lowercase hex characters.
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf)[:n], nil
}
