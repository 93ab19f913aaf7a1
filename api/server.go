/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client IP behind proxies
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/attendance/*   Punches, today status, history
  /api/leaves/*       Leave lifecycle
  /api/employees/*    Employee directory
  /api/branches       Branches and weekend policies
  /api/holidays       Holiday calendars

SECURITY NOTE:
  No authentication middleware. The acting user is an explicit user_id
  field; an auth layer would sit in front of this router.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/check-in", h.CheckIn)
			r.Post("/check-out", h.CheckOut)
			r.Get("/today", h.Today)
			r.Get("/today/all", h.TodayAll)
			r.Get("/history", h.History)
			r.Get("/history/all", h.HistoryAll)
		})

		// Leave routes
		r.Route("/leaves", func(r chi.Router) {
			r.Post("/", h.ApplyLeave)
			r.Get("/", h.ListLeaves)
			r.Get("/mine", h.MyLeaves)
			r.Get("/employee/{id}", h.LeavesByEmployee)
			r.Put("/{id}/status", h.SetLeaveStatus)
			r.Post("/{id}/cancel", h.CancelLeave)
		})

		// Directory routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.SaveEmployee)
			r.Get("/{id}", h.GetEmployee)
		})
		r.Route("/branches", func(r chi.Router) {
			r.Get("/", h.ListBranches)
			r.Post("/", h.SaveBranch)
		})
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.SaveHoliday)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
