package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"argus/core"
	"argus/storage"
)

// updateStatusRequest is the wire shape for PATCH /api/alerts/{id}/status.
type updateStatusRequest struct {
	Status core.AlertStatus `json:"status" validate:"required"`
}

// falsePositiveRequest is the wire shape for
// POST /api/alerts/{id}/false-positive.
type falsePositiveRequest struct {
	Reason   string `json:"reason" validate:"required"`
	MarkedBy string `json:"marked_by"`
}

func (a *API) getAlerts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := storage.AlertFilter{
		Status:   query.Get("status"),
		Severity: query.Get("severity"),
		RuleID:   query.Get("rule_id"),
		Limit:    100,
	}
	if filter.Status != "" && !core.AlertStatus(filter.Status).IsValid() {
		a.respondError(w, "invalid status filter", http.StatusBadRequest)
		return
	}
	if filter.Severity != "" && !core.IsValidSeverity(filter.Severity) {
		a.respondError(w, "invalid severity filter", http.StatusBadRequest)
		return
	}
	if l := query.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 1000 {
			a.respondError(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		filter.Limit = parsed
	}

	alerts, err := a.alerts.GetAlerts(r.Context(), filter)
	if err != nil {
		a.logger.Errorw("failed to list alerts", "error", err)
		a.respondError(w, "failed to list alerts", http.StatusInternalServerError)
		return
	}
	a.respondJSON(w, alerts, http.StatusOK)
}

func (a *API) getAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	alert, err := a.alerts.GetAlert(r.Context(), id)
	if errors.Is(err, storage.ErrAlertNotFound) {
		a.respondError(w, "alert not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.logger.Errorw("failed to get alert", "alert_id", id, "error", err)
		a.respondError(w, "failed to get alert", http.StatusInternalServerError)
		return
	}
	a.respondJSON(w, alert, http.StatusOK)
}

func (a *API) updateAlertStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateStatusRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}
	if !req.Status.IsValid() {
		a.respondError(w, "unknown status", http.StatusBadRequest)
		return
	}

	alert, err := a.alerts.UpdateAlertStatus(r.Context(), id, req.Status, time.Now().UTC())
	switch {
	case errors.Is(err, storage.ErrAlertNotFound):
		a.respondError(w, "alert not found", http.StatusNotFound)
		return
	case errors.Is(err, core.ErrInvalidTransition):
		a.respondError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		a.logger.Errorw("failed to update alert status", "alert_id", id, "error", err)
		a.respondError(w, "failed to update alert", http.StatusInternalServerError)
		return
	}
	a.respondJSON(w, alert, http.StatusOK)
}

func (a *API) markFalsePositive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req falsePositiveRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	alert, record, err := a.alerts.MarkFalsePositive(r.Context(), id, req.Reason, req.MarkedBy, time.Now().UTC())
	switch {
	case errors.Is(err, storage.ErrAlertNotFound):
		a.respondError(w, "alert not found", http.StatusNotFound)
		return
	case errors.Is(err, core.ErrInvalidTransition):
		a.respondError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		a.logger.Errorw("failed to mark alert false positive", "alert_id", id, "error", err)
		a.respondError(w, "failed to mark alert", http.StatusInternalServerError)
		return
	}
	a.respondJSON(w, map[string]interface{}{"alert": alert, "false_positive": record}, http.StatusOK)
}

func (a *API) listFalsePositives(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Verify the alert exists so a bogus ID is a 404, not an empty list.
	if _, err := a.alerts.GetAlert(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrAlertNotFound) {
			a.respondError(w, "alert not found", http.StatusNotFound)
			return
		}
		a.logger.Errorw("failed to get alert", "alert_id", id, "error", err)
		a.respondError(w, "failed to get alert", http.StatusInternalServerError)
		return
	}

	records, err := a.alerts.ListFalsePositives(r.Context(), id)
	if err != nil {
		a.logger.Errorw("failed to list false positives", "alert_id", id, "error", err)
		a.respondError(w, "failed to list false positives", http.StatusInternalServerError)
		return
	}
	a.respondJSON(w, records, http.StatusOK)
}
