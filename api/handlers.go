/*
handlers.go - HTTP handlers for the pipeline run API

ENDPOINTS:
  POST /api/runs       Trigger a pipeline run over staged pages
  GET  /api/runs       List past run reports
  GET  /api/runs/{id}  Get one run report
  GET  /health         Liveness

This surface operates the pipeline and reports on it; querying the loaded
occurrence data itself is the relational schema's job, not this API's.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: bad request body, unknown species
  - 404: unknown run id, no staged pages in range
  - 409: load violation (rerun collided with loaded rows)
  - 500: everything else
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pelagos/occurrence-engine/factory"
	"github.com/pelagos/occurrence-engine/ingest"
	"github.com/pelagos/occurrence-engine/occurrence"
	"github.com/pelagos/occurrence-engine/pipeline"
	"github.com/pelagos/occurrence-engine/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Pipeline *pipeline.Pipeline
	Catalog  *factory.Catalog
	DataDir  string
}

// NewHandler creates a handler around an assembled pipeline.
func NewHandler(store *sqlite.Store, p *pipeline.Pipeline, catalog *factory.Catalog, dataDir string) *Handler {
	return &Handler{Store: store, Pipeline: p, Catalog: catalog, DataDir: dataDir}
}

// TriggerRun fetches the staged pages for the requested species and date
// range and runs the pipeline over them.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req TriggerRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Species == "" {
		writeError(w, http.StatusBadRequest, "species is required", nil)
		return
	}
	if h.Catalog != nil && !h.Catalog.Has(req.Species) {
		writeError(w, http.StatusBadRequest, "Unknown species", errors.New(req.Species))
		return
	}

	source := ingest.FileSource{
		DataDir:   h.DataDir,
		Species:   req.Species,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	raws, err := source.Fetch(r.Context())
	if err != nil {
		writeError(w, http.StatusNotFound, "No staged data for request", err)
		return
	}

	report, err := h.Pipeline.Run(r.Context(), req.Species, raws)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, occurrence.ErrLoadViolation) || errors.Is(err, occurrence.ErrDimensionConflict) {
			status = http.StatusConflict
		}
		writeJSON(w, status, toRunDTO(report))
		return
	}
	writeJSON(w, http.StatusCreated, toRunDTO(report))
}

// ListRuns returns all run reports, most recent first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, 0, len(reports))
	for _, rep := range reports {
		dtos = append(dtos, toRunDTO(rep))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one run report.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.Store.GetRun(r.Context(), id)
	if errors.Is(err, sqlite.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(report))
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
