package auth

import (
	"context"
	"net/http"
)

// Middleware guards net/http handlers with the authentication gate.
type Middleware struct {
	authenticator Authenticator
	extractor     TokenExtractor
	skipper       MiddlewareSkipper
	errorHandler  MiddlewareErrorHandler
}

type identityContextKey struct{}

func NewMiddleware(authenticator Authenticator, opts ...MiddlewareOption) (*Middleware, error) {
	cfg, err := newMiddlewareConfig(authenticator, opts...)
	if err != nil {
		return nil, err
	}
	return &Middleware{
		authenticator: cfg.authenticator,
		extractor:     cfg.extractor,
		skipper:       cfg.skipper,
		errorHandler:  cfg.errorHandler,
	}, nil
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	if m == nil {
		panic("auth: middleware is nil")
	}
	if next == nil {
		next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := m.extractor(r)
		if err != nil {
			m.errorHandler(w, r, ErrUnauthenticated)
			return
		}

		identity, err := m.authenticator.Authenticate(r.Context(), raw)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}
