package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adeilh/rakh-todos/cache"
	"github.com/adeilh/rakh-todos/cache/redis"
)

type SessionStoreOptions struct {
	Prefix string
}

// CacheSessionRegistry stores one key per token in a cache.Store. Keys hold
// the SHA-256 of the token, never the token itself. Entries are written
// without a TTL since sessions only end on logout.
type CacheSessionRegistry struct {
	store  cache.Store
	prefix string
}

func NewCacheSessionRegistry(store cache.Store, opts SessionStoreOptions) *CacheSessionRegistry {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "session"
	}
	return &CacheSessionRegistry{store: store, prefix: prefix}
}

type RedisSessionStoreOptions struct {
	Prefix string
	Redis  redis.Options
}

func NewRedisSessionRegistry(opts RedisSessionStoreOptions) *CacheSessionRegistry {
	return NewCacheSessionRegistry(redis.NewStore(opts.Redis), SessionStoreOptions{Prefix: opts.Prefix})
}

func (s *CacheSessionRegistry) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":" + hex.EncodeToString(sum[:])
}

func (s *CacheSessionRegistry) Add(ctx context.Context, entry SessionEntry) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if err := validateSessionEntry(entry); err != nil {
		return err
	}
	record, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.key(entry.Token), record, 0); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *CacheSessionRegistry) Lookup(ctx context.Context, token string) (SessionEntry, error) {
	if err := contextError(ctx); err != nil {
		return SessionEntry{}, err
	}
	if token == "" {
		return SessionEntry{}, ErrSessionNotFound
	}

	payload, err := s.store.Get(ctx, s.key(token))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return SessionEntry{}, ErrSessionNotFound
		}
		return SessionEntry{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	var entry SessionEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return SessionEntry{}, fmt.Errorf("%w: corrupt session record: %w", ErrPersistence, err)
	}
	return entry, nil
}

// Remove deletes the entry for token when it belongs to userID. Missing
// entries and entries owned by someone else are left alone.
func (s *CacheSessionRegistry) Remove(ctx context.Context, userID, token string) error {
	entry, err := s.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if entry.UserID != userID {
		return nil
	}
	if err := s.store.Delete(ctx, s.key(token)); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Ping checks the backing store when it supports it.
func (s *CacheSessionRegistry) Ping(ctx context.Context) error {
	if p, ok := s.store.(cache.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
