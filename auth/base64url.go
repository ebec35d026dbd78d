package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode is returned for input that is not valid base64url or JSON.
var ErrDecode = errors.New("auth: malformed encoding")

var urlToStd = strings.NewReplacer("-", "+", "_", "/")

// EncodeSegment encodes b with the URL-safe alphabet and no padding.
func EncodeSegment(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeSegment reverses EncodeSegment. Padding is restored before decoding so
// segments produced by other encoders that strip "=" are accepted as well.
func DecodeSegment(s string) ([]byte, error) {
	s = urlToStd.Replace(s)
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return b, nil
}
