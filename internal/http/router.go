package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/sublease-marketplace/internal/logging"
)

type RouterConfig struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Listings *ListingHandler
	Bookings *BookingHandler
	Sessions SessionValidator
	// Metrics observes every routed request when set.
	Metrics *Metrics
	// MetricsHandler is mounted at GET /metrics when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
	Middleware     []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := logging.OrDefault(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	if cfg.Users != nil {
		r.Post("/signup", cfg.Users.Signup)
		r.Get("/verify", cfg.Users.Verify)
		r.Get("/profile/{id}", cfg.Users.PublicProfile)
	}
	if cfg.Auth != nil {
		r.Post("/login", cfg.Auth.Login)
		r.Post("/refresh", cfg.Auth.Refresh)
	}
	if cfg.Listings != nil {
		r.Get("/listings/{id}", cfg.Listings.Get)
		r.Get("/api/listings", cfg.Listings.Mappable)
		r.Get("/search_results", cfg.Listings.Search)
	}

	if cfg.Sessions == nil {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(cfg.Sessions, logger))

		if cfg.Auth != nil {
			r.Post("/logout", cfg.Auth.Logout)
		}
		if cfg.Users != nil {
			r.Get("/profile", cfg.Users.Profile)
			r.Get("/users", cfg.Users.List)
		}
		if cfg.Listings != nil {
			r.Post("/listings", cfg.Listings.Create)
			r.Put("/listings/{id}", cfg.Listings.Update)
			r.Delete("/listings/{id}", cfg.Listings.Delete)
		}
		if cfg.Bookings != nil {
			r.Post("/create_booking_request", cfg.Bookings.Create)
			r.Get("/booking_request/{id}", cfg.Bookings.Get)
			r.Delete("/delete_booking_request/{id}", cfg.Bookings.Delete)
			r.Get("/booking_requests/incoming", cfg.Bookings.Incoming)
			r.Get("/booking_requests/outgoing", cfg.Bookings.Outgoing)
			r.Post("/booking_requests/{id}/approve", cfg.Bookings.Approve)
			r.Post("/booking_requests/{id}/reject", cfg.Bookings.Reject)
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
