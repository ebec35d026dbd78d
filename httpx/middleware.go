package httpx

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/adeilh/rakh-todos/auth"
)

// AuthMiddleware runs the net/http auth middleware inside an echo chain. Auth
// failures are written by the auth middleware itself; handler errors flow back
// to echo's error handler.
func AuthMiddleware(mw *auth.Middleware) MiddlewareFunc {
	if mw == nil {
		return func(next HandlerFunc) HandlerFunc {
			return func(c Context) error {
				return c.NoContent(StatusUnauthorized)
			}
		}
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			var nextErr error
			downstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				nextErr = next(c)
			})
			mw.Handler(downstream).ServeHTTP(c.Response(), c.Request())
			return nextErr
		}
	}
}

// IdentityFrom returns the identity stored by AuthMiddleware.
func IdentityFrom(c Context) (auth.Identity, bool) {
	if c == nil || c.Request() == nil {
		return auth.Identity{}, false
	}
	return auth.IdentityFromContext(c.Request().Context())
}

// RequestLogger logs one line per request. Health probes are skipped and the
// level follows the response status.
func RequestLogger(logger zerolog.Logger) MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c Context) bool {
			return c.Path() == HealthPath
		},
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c Context, v middleware.RequestLoggerValues) error {
			var event *zerolog.Event
			switch {
			case v.Status >= 500:
				event = logger.Error()
			case v.Status >= 400:
				event = logger.Warn()
			default:
				event = logger.Debug()
			}
			event = event.
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP)
			if v.Latency > 500*time.Millisecond {
				event = event.Bool("slow", true)
			}
			if v.Error != nil {
				event = event.Err(v.Error)
			}
			event.Msg("request completed")
			return nil
		},
	})
}
