/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for dashboards

IDENTITY:
  The external identity system is represented by three headers set by
  the chat gateway in front of this service:
    X-Member-ID     opaque member identifier (required for member ops)
    X-Member-Name   display name
    X-Member-Roles  comma-separated role names; the admin gate checks
                    these before any mutating admin route runs

ROUTE GROUPS:
  /api/commands/{name}   Generic command dispatch (bot surface)
  /api/members/*         Account reads and purchases
  /api/leaderboard       Ranking
  /api/tiers, /api/shop  Static program data
  /api/calculate         Mileage calculator
  /api/admin/*           Ledger mutations and catalog admin

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Member-ID", "X-Member-Name", "X-Member-Roles"},
		AllowCredentials: false,
	}))
	r.Use(h.logRequests)

	r.Route("/api", func(r chi.Router) {
		// Generic command-invocation boundary.
		r.Post("/commands/{name}", h.DispatchCommand)

		// Member routes
		r.Route("/members", func(r chi.Router) {
			r.Get("/{id}", h.GetAccount)
			r.Get("/{id}/inventory", h.GetInventory)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Post("/{id}/purchase", h.Purchase)
		})

		// Program data
		r.Get("/leaderboard", h.GetLeaderboard)
		r.Get("/tiers", h.GetTiers)
		r.Get("/shop", h.GetShop)
		r.Get("/calculate", h.Calculate)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/award", h.AwardMiles)
			r.Post("/remove", h.RemoveMiles)
			r.Post("/set", h.SetMiles)
			r.Post("/items", h.AddItem)
		})
	})

	return r
}
