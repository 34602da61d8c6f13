package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"entrepreneursim/internal/adapter/backend"
	"entrepreneursim/internal/domain"
	"entrepreneursim/internal/middleware"
	"entrepreneursim/internal/session"
)

const sessionExpiredMessage = "Your session has expired. Please log in again."

// render writes a full page, filling in the session's user and pending flashes
func render(c echo.Context, status int, name string, page Page) error {
	if s, err := middleware.GetSession(c); err == nil {
		if page.User == nil {
			page.User = s.User()
		}
		page.Flashes = append(s.TakeFlashes(), page.Flashes...)
	}
	return c.Render(status, name, page)
}

// fragment writes a named partial, used for htmx swaps
func fragment(c echo.Context, name string, data interface{}) error {
	return c.Render(http.StatusOK, name, data)
}

// flashRedirect queues a message and sends the browser to path
func flashRedirect(c echo.Context, kind, message, path string) error {
	if s, err := middleware.GetSession(c); err == nil && message != "" {
		s.AddFlash(kind, message)
	}
	return middleware.Redirect(c, path)
}

// sessionRejected logs the session out when the backend refused its credential
func sessionRejected(c echo.Context, s *session.Session, err error) bool {
	if !errors.Is(err, domain.ErrUnauthenticated) {
		return false
	}
	s.Logout(c.Request().Context())
	s.AddFlash(session.FlashInfo, sessionExpiredMessage)
	return true
}

// loadFailed renders page with a load error, or sends the browser to login
// when the failure was a rejected credential
func loadFailed(c echo.Context, log *logrus.Entry, s *session.Session, err error, name string, page Page, fallback string) error {
	if sessionRejected(c, s, err) {
		return middleware.Redirect(c, domain.LoginPath)
	}
	log.WithError(err).WithField("page", name).Warn("Failed to load page data")
	page.Error = backend.UserMessage(err, fallback)
	return render(c, http.StatusOK, name, page)
}

// ErrorHandler renders unexpected handler errors as an error page
func ErrorHandler(log *logrus.Entry) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Something went wrong. Please try again."
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if code < http.StatusInternalServerError {
				message = http.StatusText(code)
			}
		}

		if code >= http.StatusInternalServerError {
			log.WithError(err).WithField("uri", c.Request().RequestURI).Error("Request failed")
		}

		page := Page{Title: http.StatusText(code), Error: message, Data: code}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = render(c, code, "error", page)
		}
		if err != nil {
			log.WithError(err).Error("Failed to render error page")
		}
	}
}
