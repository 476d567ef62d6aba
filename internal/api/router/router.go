package router

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vendalink/ordersync/internal/api/handlers"
	"github.com/vendalink/ordersync/internal/api/middleware"
	"github.com/vendalink/ordersync/internal/config"
	"github.com/vendalink/ordersync/internal/pkg/logger"
	"github.com/vendalink/ordersync/internal/pkg/metrics"
)

// Handlers groups all HTTP handlers
type Handlers struct {
	Auth    *handlers.AuthHandler
	Account *handlers.AccountHandler
	Sync    *handlers.SyncHandler
	Order   *handlers.OrderHandler
	Health  *handlers.HealthHandler
}

// New creates the application router with all routes and middleware
func New(cfg *config.Config, log *logger.Logger, h Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
	r.Use(middleware.RateLimit(100, 200))
	r.Use(metrics.Middleware)

	// Public routes
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/refresh", h.Auth.RefreshToken)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))

			r.Get("/auth/me", h.Auth.Me)

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", h.Account.List)
				r.Post("/{provider}/connect", h.Account.Connect)
				r.Delete("/{provider}/{accountID}", h.Account.Disconnect)
			})

			r.Route("/sync", func(r chi.Router) {
				r.Post("/", h.Sync.TriggerAll)
				r.Get("/status", h.Sync.Status)
				r.Get("/updates", h.Sync.Updates)
				r.Post("/{provider}/{accountID}", h.Sync.Trigger)
			})

			r.Get("/orders", h.Order.List)
		})
	})

	return r
}
