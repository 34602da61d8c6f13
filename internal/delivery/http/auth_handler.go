package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"entrepreneursim/internal/delivery/http/dto"
	"entrepreneursim/internal/domain"
	"entrepreneursim/internal/middleware"
	"entrepreneursim/internal/session"
)

// AuthHandler handles login, registration and logout
type AuthHandler struct {
	sessions     *session.Manager
	validator    *FormValidator
	cookieSecure bool
	log          *logrus.Entry
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions *session.Manager, validator *FormValidator, cookieSecure bool, log *logrus.Entry) *AuthHandler {
	return &AuthHandler{
		sessions:     sessions,
		validator:    validator,
		cookieSecure: cookieSecure,
		log:          log.WithField("component", "auth"),
	}
}

type registerPage struct {
	Form  dto.RegisterForm
	Roles []string
}

// GET /login - Render login page
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	return render(c, http.StatusOK, "login", Page{Title: "Login", Data: dto.LoginForm{}})
}

// POST /login - Handle login form submission
func (h *AuthHandler) HandleLoginPost(c echo.Context) error {
	var form dto.LoginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}
	page := Page{Title: "Login", Data: dto.LoginForm{Username: form.Username}}
	if err := c.Validate(&form); err != nil {
		page.Errors = h.validator.FieldErrors(err)
		return render(c, http.StatusUnprocessableEntity, "login", page)
	}

	s := h.rotate(c)
	if res := s.Login(c.Request().Context(), form.Username, form.Password); !res.Success {
		page.Error = res.Error
		return render(c, http.StatusUnauthorized, "login", page)
	}

	h.log.WithField("username", form.Username).Info("User logged in")
	return middleware.Redirect(c, domain.HomePath(s.User().Role))
}

// GET /register - Render registration page
func (h *AuthHandler) HandleRegister(c echo.Context) error {
	data := registerPage{
		Form:  dto.RegisterForm{Role: domain.RoleStudent},
		Roles: []string{domain.RoleStudent, domain.RoleTeacher},
	}
	return render(c, http.StatusOK, "register", Page{Title: "Register", Data: data})
}

// POST /register - Handle registration form submission
func (h *AuthHandler) HandleRegisterPost(c echo.Context) error {
	var form dto.RegisterForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data")
	}

	echoed := form
	echoed.Password = ""
	page := Page{
		Title: "Register",
		Data:  registerPage{Form: echoed, Roles: []string{domain.RoleStudent, domain.RoleTeacher}},
	}
	if err := c.Validate(&form); err != nil {
		page.Errors = h.validator.FieldErrors(err)
		return render(c, http.StatusUnprocessableEntity, "register", page)
	}

	s := h.rotate(c)
	res := s.Register(c.Request().Context(), form.Username, form.Email, form.Password, form.Role)
	if !res.Success {
		page.Error = res.Error
		return render(c, http.StatusUnprocessableEntity, "register", page)
	}

	h.log.WithFields(logrus.Fields{"username": form.Username, "role": form.Role}).Info("User registered")
	return middleware.Redirect(c, domain.HomePath(s.User().Role))
}

// POST /logout - Clear the session and return to the landing page
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	s, err := middleware.GetSession(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if u := s.User(); u != nil {
		h.log.WithField("username", u.Username).Info("User logged out")
	}
	h.rotate(c)
	return middleware.Redirect(c, "/")
}

// rotate swaps the browser onto a fresh session id before the identity changes
func (h *AuthHandler) rotate(c echo.Context) *session.Session {
	old, err := middleware.GetSession(c)
	if err != nil {
		old = h.sessions.New()
	}
	fresh := h.sessions.Rotate(c.Request().Context(), old)
	middleware.SetSessionCookie(c, fresh.ID(), h.cookieSecure)
	middleware.SetSession(c, fresh)
	return fresh
}
