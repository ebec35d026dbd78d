package auth

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrSessionNotFound          = errors.New("auth: session not found")
	ErrSessionInvalidDescriptor = errors.New("auth: invalid session entry")
)

// MemoryRegistry keeps sessions in process memory.
type MemoryRegistry struct {
	mu      sync.RWMutex
	byToken map[string]SessionEntry
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{byToken: make(map[string]SessionEntry)}
}

func (r *MemoryRegistry) Add(ctx context.Context, entry SessionEntry) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if err := validateSessionEntry(entry); err != nil {
		return err
	}
	r.mu.Lock()
	r.byToken[entry.Token] = entry
	r.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) Lookup(ctx context.Context, token string) (SessionEntry, error) {
	if err := contextError(ctx); err != nil {
		return SessionEntry{}, err
	}
	r.mu.RLock()
	entry, ok := r.byToken[token]
	r.mu.RUnlock()
	if !ok {
		return SessionEntry{}, ErrSessionNotFound
	}
	return entry, nil
}

func (r *MemoryRegistry) Remove(ctx context.Context, userID, token string) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.byToken[token]; ok && entry.UserID == userID {
		delete(r.byToken, token)
	}
	return nil
}

// Count returns the number of sessions held for userID.
func (r *MemoryRegistry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, entry := range r.byToken {
		if entry.UserID == userID {
			n++
		}
	}
	return n
}

func validateSessionEntry(entry SessionEntry) error {
	if entry.UserID == "" || entry.Token == "" || entry.Access == "" {
		return ErrSessionInvalidDescriptor
	}
	return nil
}
