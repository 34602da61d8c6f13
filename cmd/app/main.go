package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"entrepreneursim/configs"
	"entrepreneursim/internal/adapter/backend"
	httpdelivery "entrepreneursim/internal/delivery/http"
	"entrepreneursim/internal/database"
	"entrepreneursim/internal/domain"
	"entrepreneursim/internal/infra"
	"entrepreneursim/internal/notifier"
	"entrepreneursim/internal/repository"
	"entrepreneursim/internal/session"
	"entrepreneursim/internal/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Info(".env file not found, using environment variables")
	}

	// Load configuration
	cfg := configs.Load()
	infra.SetupLogger(cfg.Server.LogLevel, cfg.IsProduction())
	log := logrus.WithField("service", "entrepreneursim")

	if err := utils.SetDisplayLocation(cfg.Server.DisplayTZ); err != nil {
		log.WithError(err).Warn("Unknown DISPLAY_TZ, dates render in UTC")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Credential store
	store, closeStore, err := openCredentialStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open credential store")
	}
	defer closeStore()

	sealer, err := newSealer(cfg.Session.Secret, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create credential sealer")
	}

	// Backend client and browser sessions
	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	sessions := session.NewManager(client, store, sealer, session.Options{
		TTL:         cfg.Session.TTL,
		IdleTimeout: cfg.Session.IdleTimeout,
		Logger:      log.WithField("component", "sessions"),
	})

	// Push events
	hub := notifier.New(notifier.SourceFunc(func(ctx context.Context) (notifier.Stream, error) {
		stream, err := client.Events(ctx)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}), notifier.WithLogger(log.WithField("component", "notifier")))
	go hub.Run(ctx)
	go hub.LogEvents(ctx)

	// Session sweeper
	scheduler := infra.NewScheduler(sessions)
	if err := scheduler.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start scheduler")
	}
	defer scheduler.Stop()

	// Web server
	renderer, err := httpdelivery.NewRenderer()
	if err != nil {
		log.WithError(err).Fatal("Failed to parse templates")
	}
	validator := httpdelivery.NewFormValidator()

	events := httpdelivery.NewEventsHandler(hub, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	httpdelivery.SetupRoutes(e, &httpdelivery.RouterConfig{
		Sessions:      sessions,
		CookieSecure:  cfg.Session.CookieSecure,
		AuthHandler:   httpdelivery.NewAuthHandler(sessions, validator, cfg.Session.CookieSecure, log),
		WebHandler:    httpdelivery.NewWebHandler(validator, log),
		AdminHandler:  httpdelivery.NewAdminHandler(log),
		EventsHandler: events,
		Renderer:      renderer,
		Validator:     validator,
		Logger:        log,
	})

	web := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	web.RegisterOnShutdown(events.Close)
	ops := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.OpsPort),
		Handler:      opsRouter(sessions, hub),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	for _, srv := range []*http.Server{web, ops} {
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).WithField("addr", srv.Addr).Fatal("Failed to start server")
			}
		}(srv)
	}

	log.WithFields(logrus.Fields{
		"addr":    web.Addr,
		"ops":     ops.Addr,
		"env":     cfg.Server.Env,
		"backend": cfg.Backend.URL,
		"store":   cfg.Session.Store,
	}).Info("Entrepreneur Sim web interface started")

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{web, ops} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).WithField("addr", srv.Addr).Error("Server forced to shutdown")
		}
	}
	log.Info("Server exited gracefully")
}

func openCredentialStore(ctx context.Context, cfg *configs.Config) (domain.CredentialRepository, func(), error) {
	switch cfg.Session.Store {
	case configs.StorePostgres:
		db, err := infra.NewDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewPostgresCredentialRepository(db), db.Close, nil
	case configs.StoreRedis:
		rdb, err := infra.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisCredentialRepository(rdb), func() { _ = rdb.Close() }, nil
	case configs.StoreMemory, "":
		return repository.NewMemoryCredentialRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.Session.Store)
	}
}

func newSealer(secret string, log *logrus.Entry) (*session.Sealer, error) {
	if secret == "" {
		log.Warn("SESSION_SECRET is empty, stored sessions will not survive a restart")
		return session.NewRandomSealer()
	}
	return session.NewSealer([]byte(secret))
}

// opsRouter serves health checks on the operations port
func opsRouter(sessions *session.Manager, hub *notifier.Notifier) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(5 * time.Second))

	r.Get("/health", handleHealth(sessions, hub))
	return r
}

func handleHealth(sessions *session.Manager, hub *notifier.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		storeStatus := "healthy"
		if err := sessions.Ping(ctx); err != nil {
			storeStatus = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		events := "connected"
		if !hub.Connected() {
			events = "disconnected"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"service":   "entrepreneursim-web",
			"store":     storeStatus,
			"events":    events,
			"sessions":  sessions.Len(),
			"listeners": hub.Listeners(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
