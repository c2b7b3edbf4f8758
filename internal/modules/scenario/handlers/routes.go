package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers all scenario routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/scenarios", func(r chi.Router) {
		// Sweeps over wide theta grids can take a while on small machines.
		r.Use(middleware.Timeout(120 * time.Second))

		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Post("/run", h.HandleRunAdHoc)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDelete)
			r.Post("/run", h.HandleRun)
			r.Get("/runs", h.HandleListRuns)
		})
	})

	r.Get("/api/runs/{id}", h.HandleGetRun)
}

func pathID(r *http.Request) string {
	return chi.URLParam(r, "id")
}
