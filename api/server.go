/*
server.go - HTTP router and middleware configuration

Wires URLs to handlers with chi. Middleware: request logging, panic
recovery, request IDs, CORS for the form UI running on another origin.
No authentication: this service runs on a trusted internal network.
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

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		// Equipment routes
		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", h.ListEquipment)
			r.Post("/", h.CreateEquipment)
			r.Get("/{id}", h.GetEquipment)
			r.Get("/{id}/status", h.GetStatus)
			r.Get("/{id}/qr", h.GetQR)
			r.Post("/{id}/operations", h.RecordOperation)
		})

		// Ledger history
		r.Get("/transactions", h.ListTransactions)

		// Employee directory routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/lookup", h.LookupEmployee)
			r.Post("/import", h.ImportEmployees)
			r.Delete("/{id}", h.DeleteEmployee)
		})
		r.Get("/areas", h.ListAreas)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/loans", h.ActiveLoans)
			r.Get("/holders", h.PriorHolders)
			r.Get("/summary", h.Summary)
		})
	})

	return r
}
