package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"entrepreneursim/internal/adapter/backend"
	"entrepreneursim/internal/guard"
	"entrepreneursim/internal/session"
)

// SessionCookie names the cookie carrying the browser session id
const SessionCookie = "sid"

const sessionKey = "session"

// SessionConfig configures SessionMiddleware
type SessionConfig struct {
	Manager *session.Manager
	// Secure marks the cookie HTTPS-only
	Secure bool
}

// SetSessionCookie points the browser at session id
func SetSessionCookie(c echo.Context, id string, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// SessionMiddleware attaches the browser's Session and waits for it to resolve.
// It also tags the request context with the request id for backend calls.
func SessionMiddleware(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var id string
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				id = cookie.Value
			}

			s, created := cfg.Manager.Get(id)
			if created {
				SetSessionCookie(c, s.ID(), cfg.Secure)
			}

			req := c.Request()
			if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
				req = req.WithContext(backend.ContextWithRequestID(req.Context(), rid))
				c.SetRequest(req)
			}

			if err := s.Resolve(req.Context()); err != nil {
				return err
			}
			if s.ExpireIfDue(req.Context()) {
				s.AddFlash(session.FlashInfo, "Your session has expired. Please log in again.")
			}

			c.Set(sessionKey, s)
			return next(c)
		}
	}
}

// GetSession returns the Session attached by SessionMiddleware
func GetSession(c echo.Context) (*session.Session, error) {
	s, ok := c.Get(sessionKey).(*session.Session)
	if !ok {
		return nil, errors.New("session not found in context")
	}
	return s, nil
}

// SetSession replaces the request's Session, used after the session was rotated
func SetSession(c echo.Context, s *session.Session) {
	c.Set(sessionKey, s)
}

// IsHTMX reports whether the request was issued by htmx
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// Redirect sends the browser to path. htmx requests get an HX-Redirect header
// so the whole page navigates instead of swapping a fragment.
func Redirect(c echo.Context, path string) error {
	if IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", path)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, path)
}

func enforce(decide func(s *session.Session) guard.Decision) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, err := GetSession(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}

			if d := decide(s); !d.Allow {
				return Redirect(c, d.Redirect)
			}
			return next(c)
		}
	}
}

// RequireRole lets through users with role, or any logged in user for guard.AnyRole
func RequireRole(role string) echo.MiddlewareFunc {
	return enforce(func(s *session.Session) guard.Decision {
		return guard.Check(s.User(), role)
	})
}

// PublicOnly sends logged in users to their home page
func PublicOnly() echo.MiddlewareFunc {
	return enforce(func(s *session.Session) guard.Decision {
		return guard.PublicOnly(s.User())
	})
}
