package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"entrepreneursim/internal/adapter/backend"
	"entrepreneursim/internal/middleware"
	"entrepreneursim/internal/session"
)

// WebHandler serves the logged in pages and their htmx fragments
type WebHandler struct {
	validator *FormValidator
	log       *logrus.Entry
}

// NewWebHandler creates a new WebHandler
func NewWebHandler(validator *FormValidator, log *logrus.Entry) *WebHandler {
	return &WebHandler{
		validator: validator,
		log:       log.WithField("component", "web"),
	}
}

// GET / - Landing page for visitors
func (h *WebHandler) HandleLanding(c echo.Context) error {
	return render(c, http.StatusOK, "landing", Page{Title: "Entrepreneur Sim"})
}

// current returns the request's session and its bound backend client.
// ok is false when the session lost its credential after the guard ran.
func current(c echo.Context) (s *session.Session, api *backend.Client, ok bool) {
	s, err := middleware.GetSession(c)
	if err != nil {
		return nil, nil, false
	}
	api = s.API()
	return s, api, api != nil
}

// pathID reads a positive numeric path parameter
func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

