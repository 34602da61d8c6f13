package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"entrepreneursim/internal/domain"
	"entrepreneursim/internal/guard"
	custommiddleware "entrepreneursim/internal/middleware"
	"entrepreneursim/internal/session"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	Sessions      *session.Manager
	CookieSecure  bool
	AuthHandler   *AuthHandler
	WebHandler    *WebHandler
	AdminHandler  *AdminHandler
	EventsHandler *EventsHandler
	Renderer      *Renderer
	Validator     *FormValidator
	Logger        *logrus.Entry
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	log := config.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	e.Renderer = config.Renderer
	e.Validator = config.Validator
	e.HTTPErrorHandler = ErrorHandler(log)

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging for polling and streaming endpoints to reduce noise
			switch c.Request().URL.Path {
			case "/fragments/balance", "/events":
				return true
			}
			return false
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("Request failed")
				return nil
			}
			entry.Info("Request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(custommiddleware.SessionMiddleware(custommiddleware.SessionConfig{
		Manager: config.Sessions,
		Secure:  config.CookieSecure,
	}))

	student := custommiddleware.RequireRole(domain.RoleStudent)
	teacher := custommiddleware.RequireRole(domain.RoleTeacher)
	anyone := custommiddleware.RequireRole(guard.AnyRole)
	public := custommiddleware.PublicOnly()

	// Public pages
	e.GET("/", config.WebHandler.HandleLanding, public)
	e.GET("/login", config.AuthHandler.HandleLogin, public)
	e.POST("/login", config.AuthHandler.HandleLoginPost, public)
	e.GET("/register", config.AuthHandler.HandleRegister, public)
	e.POST("/register", config.AuthHandler.HandleRegisterPost, public)
	e.POST("/logout", config.AuthHandler.HandleLogout)

	// Student pages
	e.GET("/dashboard", config.WebHandler.HandleDashboard, student)
	e.GET("/create-business", config.WebHandler.HandleCreateBusiness, student)
	e.POST("/create-business", config.WebHandler.HandleCreateBusinessPost, student)
	e.GET("/my-businesses", config.WebHandler.HandleMyBusinesses, student)
	e.POST("/my-businesses/:id/products", config.WebHandler.HandleAddProduct, student)
	e.GET("/trading", config.WebHandler.HandleTrading, student)
	e.POST("/trading/invest", config.WebHandler.HandleInvest, student)

	// Shared pages
	e.GET("/marketplace", config.WebHandler.HandleMarketplace, anyone)
	e.GET("/business/:id", config.WebHandler.HandleBusiness, anyone)
	e.POST("/business/:id/purchase", config.WebHandler.HandlePurchase, anyone)

	// Teacher pages
	e.GET("/admin", config.AdminHandler.HandleDashboard, teacher)

	// htmx fragments and push events
	fragments := e.Group("/fragments")
	{
		fragments.GET("/balance", config.EventsHandler.HandleBalanceFragment, anyone)
		fragments.GET("/businesses", config.WebHandler.HandleBusinessesFragment, anyone)
		fragments.GET("/assets", config.WebHandler.HandleAssetsFragment, student)
	}
	e.GET("/events", config.EventsHandler.HandleEvents, anyone)
}
