// Package handlers provides HTTP handlers for scenario management and sweeps.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/harmonia/internal/modules/register"
	"github.com/aristath/harmonia/internal/modules/scenario"
	"github.com/rs/zerolog"
)

// Handler handles scenario HTTP requests
type Handler struct {
	service *scenario.Service
	log     zerolog.Logger
}

// NewHandler creates a new scenario handler
func NewHandler(service *scenario.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "scenario").Logger(),
	}
}

// HandleList handles GET /api/scenarios
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.service.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list scenarios: "+err.Error())
		return
	}
	if scenarios == nil {
		scenarios = []*scenario.Scenario{}
	}
	h.writeJSON(w, http.StatusOK, scenarios)
}

// HandleCreate handles POST /api/scenarios
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var sc scenario.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.service.Create(&sc); err != nil {
		h.writeError(w, statusForError(err), "Failed to create scenario: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, sc)
}

// HandleGet handles GET /api/scenarios/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sc, err := h.service.Get(pathID(r))
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, sc)
}

// HandleDelete handles DELETE /api/scenarios/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(pathID(r)); err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRun handles POST /api/scenarios/{id}/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	run, err := h.service.RunByID(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, statusForError(err), "Sweep failed: "+err.Error())
		return
	}

	h.log.Info().
		Str("run", run.ID).
		Str("label", string(run.Label)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Sweep finished via API")

	h.writeJSON(w, http.StatusOK, run)
}

// HandleRunAdHoc handles POST /api/scenarios/run
// The scenario in the body is executed without being stored.
func (h *Handler) HandleRunAdHoc(w http.ResponseWriter, r *http.Request) {
	var sc scenario.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	run, err := h.service.Run(r.Context(), &sc)
	if err != nil {
		h.writeError(w, statusForError(err), "Sweep failed: "+err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// HandleListRuns handles GET /api/scenarios/{id}/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.Runs(pathID(r))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list runs: "+err.Error())
		return
	}
	if runs == nil {
		runs = []*scenario.Run{}
	}
	h.writeJSON(w, http.StatusOK, runs)
}

// HandleGetRun handles GET /api/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetRun(pathID(r))
	if err != nil {
		h.writeError(w, statusForError(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// statusForError maps domain errors onto HTTP statuses. Configuration and
// unit-range problems are the caller's fault.
func statusForError(err error) int {
	switch {
	case errors.Is(err, scenario.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scenario.ErrConfiguration),
		errors.Is(err, register.ErrInvalidUnitIndex),
		errors.Is(err, register.ErrInvalidUnitCount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
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
