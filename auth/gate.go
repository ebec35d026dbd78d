package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// UserLookup resolves the subject of a verified token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (User, error)
}

// GateConfig wires the dependencies required for Gate.
type GateConfig struct {
	Secret   []byte
	Registry SessionRegistry
	Users    UserLookup
	Now      func() time.Time
	Logger   *zerolog.Logger
}

// Gate issues sessions and turns presented tokens into identities. Every
// token problem is reported as ErrUnauthenticated; only store outages
// surface as ErrPersistence.
type Gate struct {
	secret   []byte
	registry SessionRegistry
	users    UserLookup
	now      func() time.Time
	log      zerolog.Logger
}

func NewGate(cfg GateConfig) (*Gate, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if cfg.Registry == nil || cfg.Users == nil {
		return nil, errors.New("auth: gate requires a session registry and a user lookup")
	}
	g := &Gate{
		secret:   append([]byte(nil), cfg.Secret...),
		registry: cfg.Registry,
		users:    cfg.Users,
		now:      cfg.Now,
		log:      zerolog.Nop(),
	}
	if g.now == nil {
		g.now = time.Now
	}
	if cfg.Logger != nil {
		g.log = cfg.Logger.With().Str("component", "auth.gate").Logger()
	}
	return g, nil
}

// IssueSession signs a fresh auth token for user and records it. Each token
// carries a random nonce so sessions opened within the same second stay
// distinct. Store failures are returned as is; the caller decides whether to
// retry.
func (g *Gate) IssueSession(ctx context.Context, user User) (string, error) {
	if user.ID == "" {
		return "", ErrUserInvalidInput
	}
	nonce, err := RandomString(nonceLength)
	if err != nil {
		return "", err
	}
	now := g.now()
	token, err := IssueToken(Claims{
		Subject: user.ID,
		Access:  AccessAuth,
		Extra:   map[string]any{claimNonce: nonce},
	}, g.secret, now)
	if err != nil {
		return "", err
	}
	entry := SessionEntry{UserID: user.ID, Access: AccessAuth, Token: token, CreatedAt: now.UTC()}
	if err := g.registry.Add(ctx, entry); err != nil {
		g.log.Warn().Err(err).Str("user_id", user.ID).Msg("session insert failed")
		return "", storeError(err)
	}
	return token, nil
}

// Authenticate resolves token to the user that owns it.
func (g *Gate) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	entry, err := g.registry.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			g.log.Debug().Msg("token not registered")
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, storeError(err)
	}
	if entry.Access != AccessAuth {
		g.log.Debug().Str("access", entry.Access).Msg("session access tag rejected")
		return Identity{}, ErrUnauthenticated
	}

	claims, err := ParseToken(token, g.secret)
	if err != nil {
		g.log.Debug().Err(err).Msg("token rejected")
		return Identity{}, ErrUnauthenticated
	}
	if claims.Subject != entry.UserID || claims.Access != AccessAuth {
		g.log.Debug().Str("user_id", entry.UserID).Msg("token subject does not match session owner")
		return Identity{}, ErrUnauthenticated
	}

	user, err := g.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, storeError(err)
	}

	return Identity{User: user, Token: token}, nil
}

// RevokeSession removes a single session. Unknown tokens are not an error.
func (g *Gate) RevokeSession(ctx context.Context, userID, token string) error {
	if err := g.registry.Remove(ctx, userID, token); err != nil {
		return storeError(err)
	}
	return nil
}

func storeError(err error) error {
	if errors.Is(err, ErrPersistence) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
