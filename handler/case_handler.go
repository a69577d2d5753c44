package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"csatguardian/service"
	"csatguardian/worker"
)

// CaseHandler handles HTTP requests for case monitoring operations
type CaseHandler struct {
	monitorService *service.MonitorService
	worker         *worker.MonitorWorker
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(monitorService *service.MonitorService, w *worker.MonitorWorker) *CaseHandler {
	return &CaseHandler{monitorService: monitorService, worker: w}
}

// EvaluateCase handles POST /api/v1/cases/{id}/evaluate
// Runs one monitoring pass for the case on demand (e.g. right after new
// timeline activity) and returns the evaluation result.
func (h *CaseHandler) EvaluateCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad request", "Invalid case id.")
		return
	}

	result, err := h.monitorService.EvaluateCase(r.Context(), caseID)
	if err != nil {
		var integrityErr *service.DataIntegrityError
		if errors.As(err, &integrityErr) {
			respondWithError(w, http.StatusNotFound, "Not found", integrityErr.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal error", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Sweep handles POST /api/v1/cases/evaluate
// Manually triggers a full sweep of active cases (useful for testing or
// manual runs; the worker runs the same sweep on its own interval).
func (h *CaseHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	results, err := h.monitorService.EvaluateActiveCases(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal error", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"processed": len(results),
		"results":   results,
	})
}

// MonitorStatus handles GET /api/v1/monitor/status
func (h *CaseHandler) MonitorStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"running":  h.worker.IsRunning(),
		"interval": h.worker.Interval().String(),
	})
}
