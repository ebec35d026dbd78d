package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformedToken    = errors.New("auth: malformed token")
	ErrSignatureMismatch = errors.New("auth: token signature mismatch")
	ErrInvalidClaims     = errors.New("auth: invalid token claims")
	ErrMissingSecret     = errors.New("auth: missing signing secret")
)

const (
	tokenAlgorithm = "HS256"
	tokenType      = "JWT"
)

// Payload keys are part of the wire format. Renaming one invalidates every
// token already issued under the current secret.
const (
	claimSubject  = "_id"
	claimAccess   = "access"
	claimIssuedAt = "iat"
	claimNonce    = "jti"
)

// nonceLength is the number of hex characters in a session nonce.
const nonceLength = 32

type tokenHeader struct {
	Algorithm string `json:"alg"`
	Type      string `json:"typ"`
}

type tokenPayload struct {
	Subject  string `json:"_id"`
	Access   string `json:"access"`
	IssuedAt *int64 `json:"iat"`
}

// IssueToken builds a compact token for claims signed with secret. IssuedAt is
// always overwritten with now.
func IssueToken(claims Claims, secret []byte, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	if claims.Subject == "" || claims.Access == "" {
		return "", fmt.Errorf("%w: subject and access are required", ErrInvalidClaims)
	}

	headerSeg, err := encodeJSONSegment(tokenHeader{Algorithm: tokenAlgorithm, Type: tokenType})
	if err != nil {
		return "", err
	}

	payload := make(map[string]any, len(claims.Extra)+3)
	for k, v := range claims.Extra {
		payload[k] = v
	}
	payload[claimSubject] = claims.Subject
	payload[claimAccess] = claims.Access
	payload[claimIssuedAt] = now.Unix()

	// encoding/json sorts map keys, which keeps the payload canonical.
	payloadSeg, err := encodeJSONSegment(payload)
	if err != nil {
		return "", err
	}

	signingInput := headerSeg + "." + payloadSeg
	return signingInput + "." + Sign([]byte(signingInput), secret), nil
}

// ParseToken verifies raw against secret and returns its claims. It performs
// no expiry check.
func ParseToken(raw string, secret []byte) (Claims, error) {
	if len(secret) == 0 {
		return Claims{}, ErrMissingSecret
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformedToken
	}

	if !Verify([]byte(parts[0]+"."+parts[1]), secret, parts[2]) {
		return Claims{}, ErrSignatureMismatch
	}

	data, err := DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	var payload tokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Claims{}, fmt.Errorf("%w: %w: %v", ErrMalformedToken, ErrDecode, err)
	}
	if payload.Subject == "" || payload.Access == "" || payload.IssuedAt == nil {
		return Claims{}, fmt.Errorf("%w: missing required claims", ErrMalformedToken)
	}

	var extra map[string]any
	if err := json.Unmarshal(data, &extra); err != nil {
		return Claims{}, fmt.Errorf("%w: %w: %v", ErrMalformedToken, ErrDecode, err)
	}
	delete(extra, claimSubject)
	delete(extra, claimAccess)
	delete(extra, claimIssuedAt)
	if len(extra) == 0 {
		extra = nil
	}

	return Claims{
		Subject:  payload.Subject,
		Access:   payload.Access,
		IssuedAt: time.Unix(*payload.IssuedAt, 0).UTC(),
		Extra:    extra,
	}, nil
}

func encodeJSONSegment(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("auth: encode token segment: %w", err)
	}
	return EncodeSegment(data), nil
}
