package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// errInvalidLength is returned by RandomString for non-positive lengths.
var errInvalidLength = errors.New("auth: invalid length")

// Sign returns the lowercase hex HMAC-SHA-256 of message keyed by secret.
func Sign(message, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the digest and compares it in constant time.
func Verify(message, secret []byte, digest string) bool {
	expected := Sign(message, secret)
	return hmac.Equal([]byte(expected), []byte(digest))
}

// RandomString returns length hex characters read from crypto/rand.
func RandomString(length int) (string, error) {
	if length <= 0 {
		return "", errInvalidLength
	}
	buf := make([]byte, (length+1)/2)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("auth: read random bytes: %w", err)
	}
	return hex.EncodeToString(buf)[:length], nil
}
