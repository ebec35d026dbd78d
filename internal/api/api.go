// Package api exposes the user and todo workflows over HTTP.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/adeilh/rakh-todos/auth"
	"github.com/adeilh/rakh-todos/httpx"
	"github.com/adeilh/rakh-todos/todo"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Auth   *auth.Manager
	Todos  *todo.Service
	Health map[string]HealthCheck
	// HealthTimeout bounds each health check. Defaults to two seconds.
	HealthTimeout time.Duration
	Logger        *zerolog.Logger
}

// Handler owns the HTTP routes of the service.
type Handler struct {
	auth          *auth.Manager
	todos         *todo.Service
	guard         httpx.MiddlewareFunc
	health        map[string]HealthCheck
	healthTimeout time.Duration
	log           zerolog.Logger
}

func New(cfg Config) (*Handler, error) {
	if cfg.Auth == nil || cfg.Todos == nil {
		return nil, errors.New("api: auth manager and todo service are required")
	}
	mw, err := auth.NewMiddleware(cfg.Auth)
	if err != nil {
		return nil, err
	}
	h := &Handler{
		auth:          cfg.Auth,
		todos:         cfg.Todos,
		guard:         httpx.AuthMiddleware(mw),
		health:        cfg.Health,
		healthTimeout: cfg.HealthTimeout,
		log:           zerolog.Nop(),
	}
	if h.healthTimeout <= 0 {
		h.healthTimeout = 2 * time.Second
	}
	if cfg.Logger != nil {
		h.log = cfg.Logger.With().Str("component", "api").Logger()
	}
	return h, nil
}

// Register mounts every route on app.
func (h *Handler) Register(app *httpx.App) {
	app.GET(httpx.HealthPath, h.healthz)

	users := app.Group("/users")
	users.POST("", h.register)
	users.POST("/login", h.login)
	users.GET("/me", h.me, h.guard)
	users.PATCH("/me", h.updateMe, h.guard)
	users.DELETE("/me/token", h.logout, h.guard)
	users.PATCH("/me/password", h.changePassword, h.guard)

	todos := app.Group("/todos", h.guard)
	todos.POST("", h.createTodo)
	todos.GET("", h.listTodos)
	todos.GET("/:id", h.getTodo)
	todos.DELETE("/:id", h.deleteTodo)
	todos.PATCH("/:id", h.updateTodo)
}

func (h *Handler) healthz(c httpx.Context) error {
	for name, check := range h.health {
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.healthTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			h.log.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			return httpx.HTTPError(httpx.StatusServiceUnavailable, name+" unavailable")
		}
	}
	return c.JSON(httpx.StatusOK, statusResponse{Status: statusOK})
}

// identity is always present behind the guard.
func identity(c httpx.Context) auth.Identity {
	id, _ := httpx.IdentityFrom(c)
	return id
}

// fail maps domain errors onto HTTP errors.
func (h *Handler) fail(c httpx.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		return httpx.HTTPError(httpx.StatusUnauthorized, nil)
	case errors.Is(err, auth.ErrUserInvalidInput), errors.Is(err, todo.ErrInvalidInput):
		return httpx.HTTPError(httpx.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUserEmailInUse):
		return httpx.HTTPError(httpx.StatusConflict, "email already in use")
	case errors.Is(err, todo.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		return httpx.HTTPError(httpx.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrPersistence), errors.Is(err, todo.ErrPersistence):
		h.log.Error().Err(err).Str("path", c.Path()).Msg("storage failure")
		return httpx.HTTPError(httpx.StatusServiceUnavailable, "storage unavailable")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return httpx.HTTPError(httpx.StatusGatewayTimeout, "request timed out")
	}
	h.log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	return err
}
