package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnauthenticated is the only failure the gate reports for a bad token.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrPersistence marks failures of the backing user or session store.
	ErrPersistence = errors.New("auth: persistence failure")
	// ErrInvalidCredentials is returned for an unknown identifier or a wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// AccessAuth is the access tag carried by login and registration sessions.
const AccessAuth = "auth"

// Claims models the payload embedded inside a compact token.
type Claims struct {
	Subject  string
	Access   string
	IssuedAt time.Time
	Extra    map[string]any
}

// PasswordHash is the stored half of a credential record.
type PasswordHash struct {
	Algorithm string `json:"algorithm"`
	Salt      string `json:"salt"`
	Value     string `json:"value"`
}

// PasswordHasher manages password hashing and verification.
type PasswordHasher interface {
	Hash(ctx context.Context, plain []byte) (PasswordHash, error)
	Compare(ctx context.Context, plain []byte, hash PasswordHash) error
}

// SessionEntry is one revocable token owned by a user.
type SessionEntry struct {
	UserID    string    `json:"user_id"`
	Access    string    `json:"access"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRegistry stores the set of currently valid tokens per user.
type SessionRegistry interface {
	Add(ctx context.Context, entry SessionEntry) error
	Lookup(ctx context.Context, token string) (SessionEntry, error)
	Remove(ctx context.Context, userID, token string) error
}

// Identity is what the gate hands to downstream handlers.
type Identity struct {
	User  User
	Token string
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
