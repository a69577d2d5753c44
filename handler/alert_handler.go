package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"csatguardian/middleware"
	"csatguardian/repository"
)

// AlertHandler handles HTTP requests for alert operations
type AlertHandler struct {
	alertRepo *repository.AlertRepository
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertRepo *repository.AlertRepository) *AlertHandler {
	return &AlertHandler{alertRepo: alertRepo}
}

// ListCaseAlerts handles GET /api/v1/cases/{id}/alerts
// Returns the unacknowledged alerts for a case.
func (h *AlertHandler) ListCaseAlerts(w http.ResponseWriter, r *http.Request) {
	caseID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad request", "Invalid case id.")
		return
	}

	alerts, err := h.alertRepo.ListActiveAlerts(caseID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal error", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"case_id": caseID,
		"alerts":  alerts,
	})
}

type acknowledgeRequest struct {
	Reason string `json:"reason"`
}

// AcknowledgeAlert handles POST /api/v1/alerts/{id}/acknowledge
// Marks an alert acknowledged by the authenticated engineer. Acknowledgment
// is the only mutation alerts support; they are never deleted.
func (h *AlertHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alertID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad request", "Invalid alert id.")
		return
	}

	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad request", "Invalid JSON body.")
		return
	}
	if req.Reason == "" {
		req.Reason = "acknowledged by engineer"
	}

	alert, err := h.alertRepo.GetAlertByID(alertID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Not found", "Alert not found.")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal error", err.Error())
		return
	}

	engineerID, _ := r.Context().Value(middleware.EngineerIDKey).(int64)
	if alert.RecipientID != engineerID {
		respondWithError(w, http.StatusForbidden, "Forbidden", "Only the alert recipient may acknowledge it.")
		return
	}

	if alert.Acknowledged {
		respondWithError(w, http.StatusConflict, "Conflict", "Alert is already acknowledged.")
		return
	}

	if err := h.alertRepo.AcknowledgeAlert(alertID, req.Reason); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal error", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"alert_id":     alertID,
		"acknowledged": true,
	})
}
