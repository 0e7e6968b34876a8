/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

AUTHORIZATION:
  The session middleware and role guards are applied here, once, per route
  group. Handlers never repeat the role check; the one exception is the
  student statement's self-or-admin rule, which needs the URL parameter and
  so lives in the handler.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go:     Session middleware and role guard
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Dev login; the only unauthenticated endpoint.
		r.Post("/session", h.CreateSession)

		// Admin reporting
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Middleware)
			r.Use(RequireRole(RoleAdmin))

			r.Route("/reports/{name}", func(r chi.Router) {
				r.Get("/", h.GetReport)
				r.Get("/export", h.ExportReport)
			})

			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		})

		// Student statement: any authenticated session; self-or-admin rule
		// is enforced in the handler.
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Middleware)
			r.Use(RequireRole(RoleAdmin, RoleStudent))

			r.Get("/students/{id}/statement", h.GetStudentStatement)
		})

		// Metadata: any authenticated session.
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Middleware)
			r.Use(RequireRole(RoleAdmin, RoleStudent))

			r.Get("/meta", h.GetMeta)
			r.Get("/meta/periods", h.ListPeriods)
			r.Get("/meta/programs", h.ListPrograms)
		})
	})

	return r
}
