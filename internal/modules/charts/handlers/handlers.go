// Package handlers provides HTTP handlers for chart data.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/harmonia/internal/modules/charts"
	"github.com/aristath/harmonia/internal/modules/scenario"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles chart HTTP requests
type Handler struct {
	service *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// RegisterRoutes registers all chart routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/runs/{id}/chart", h.HandleRunChart)
	r.Get("/api/scenarios/{id}/charts", h.HandleCompareCharts)
}

// HandleRunChart handles GET /api/runs/{id}/chart
func (h *Handler) HandleRunChart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.service.RunChart(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, scenario.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to build chart: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, chart)
}

// HandleCompareCharts handles GET /api/scenarios/{id}/charts
func (h *Handler) HandleCompareCharts(w http.ResponseWriter, r *http.Request) {
	chartList, err := h.service.CompareCharts(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to build charts: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, chartList)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
