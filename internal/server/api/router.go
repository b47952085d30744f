// Package api exposes the account service over REST with chi.
package api

import (
	"net/http"

	"github.com/dmitrijs2005/visadesk/internal/logging"
	"github.com/dmitrijs2005/visadesk/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(svc UserServiceProvider, m *metrics.Metrics, logger logging.Logger, corsOrigin string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(instrument(m))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := NewAuthHandler(svc, m, logger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Put("/change-password", h.ChangePassword)
			r.Post("/refresh-token", h.RefreshToken)
			r.Post("/logout", h.Logout)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Post("/add-coadmin", h.AddCoadmin)
				r.Post("/addCoadmin", h.AddCoadmin)
				r.Get("/users", h.ListUsers)
				r.Get("/users/stats", h.GetUserStats)
				r.Get("/users/{id}", h.GetUser)
				r.Put("/users/{id}/role", h.UpdateUserRole)
				r.Delete("/users/{id}", h.DeleteUser)
			})
		})
	})

	return r
}
