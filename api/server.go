/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/positions/*   Position catalog administration
  /api/employees/*   Training records, eligibility, exams
  /api/rules/*       Promotion rule configuration
  /api/import/*      Bulk spreadsheet import
  /metrics           Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. All endpoints are public; authn/z is an
  external collaborator's concern.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, reg *prometheus.Registry) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Position catalog
		r.Route("/positions", func(r chi.Router) {
			r.Get("/", h.ListPositions)
			r.Post("/", h.CreatePosition)
			r.Get("/{name}", h.GetPosition)
			r.Delete("/{name}", h.DeletePosition)
			r.Post("/{name}/courses", h.AddCourses)
			r.Delete("/{name}/courses", h.RemoveCourse)
			r.Post("/{name}/results", h.BulkResult)
		})

		// Training records
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Post("/{id}/results", h.SubmitResult)
			r.Post("/{id}/matrix/recompute", h.RecomputeMatrix)
			r.Get("/{id}/seniority", h.GetSeniority)
			r.Put("/{id}/promotion", h.SetPromotionData)
			r.Get("/{id}/eligibility", h.GetEligibility)
			r.Get("/{id}/exam-gate", h.GetExamGate)
			r.Post("/{id}/exam-attempts", h.RecordExamAttempt)
		})

		// Promotion rules
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/", h.SaveRule)
			r.Delete("/{id}", h.DeleteRule)
		})

		// Bulk import
		r.Post("/import/results", h.ImportResults)
		r.Post("/import/employees", h.ImportRoster)
	})

	// Prometheus scrape endpoint
	r.Method("GET", "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}
