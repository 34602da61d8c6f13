package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"entrepreneursim/internal/domain"
	"entrepreneursim/internal/middleware"
	"entrepreneursim/internal/usecase"
)

// AdminHandler serves the teacher dashboard
type AdminHandler struct {
	log *logrus.Entry
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(log *logrus.Entry) *AdminHandler {
	return &AdminHandler{log: log.WithField("component", "admin")}
}

type adminPage struct {
	Tab       string
	Tabs      []string
	Dashboard *domain.AdminDashboard
	Stats     usecase.ClassStats
}

// GET /admin - Class-wide statistics, leaderboards and activity
func (h *AdminHandler) HandleDashboard(c echo.Context) error {
	s, api, ok := current(c)
	if !ok {
		return middleware.Redirect(c, domain.LoginPath)
	}

	tab := usecase.AdminTab(c.QueryParam("tab"))
	page := Page{Title: "Teacher Dashboard", Nav: "admin"}
	dashboard, err := api.AdminDashboard(c.Request().Context())
	if err != nil {
		page.Data = adminPage{Tab: tab, Tabs: usecase.AdminTabs}
		return loadFailed(c, h.log, s, err, "admin", page, "Failed to load admin dashboard")
	}

	page.Data = adminPage{
		Tab:       tab,
		Tabs:      usecase.AdminTabs,
		Dashboard: dashboard,
		Stats:     usecase.DeriveClassStats(dashboard.Stats),
	}
	return render(c, http.StatusOK, "admin", page)
}
