package api

import (
	"net/http"
	"time"

	"argus/core"
	"argus/metrics"
)

// ingestEventRequest is the wire shape for POST /api/events. The caller is
// the normalizer, which has already canonicalized field names and UTC
// timestamps.
type ingestEventRequest struct {
	Timestamp time.Time              `json:"timestamp" validate:"required"`
	Actor     string                 `json:"actor"`
	SourceIP  string                 `json:"source_ip"`
	UserAgent *string                `json:"user_agent"`
	Action    string                 `json:"action" validate:"required"`
	Resource  string                 `json:"resource"`
	Outcome   string                 `json:"outcome" validate:"omitempty,oneof=success failure error"`
	RequestID string                 `json:"request_id"`
	RawData   map[string]interface{} `json:"raw_data"`
}

func (a *API) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var req ingestEventRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	event := &core.Event{
		Timestamp: req.Timestamp.UTC(),
		Actor:     req.Actor,
		SourceIP:  req.SourceIP,
		UserAgent: req.UserAgent,
		Action:    req.Action,
		Resource:  req.Resource,
		Outcome:   req.Outcome,
		RequestID: req.RequestID,
		RawData:   req.RawData,
	}

	if err := a.events.InsertEvent(r.Context(), event); err != nil {
		a.logger.Errorw("failed to ingest event", "error", err)
		a.respondError(w, "failed to store event", http.StatusInternalServerError)
		return
	}

	metrics.EventsIngested.Inc()
	a.respondJSON(w, event, http.StatusCreated)
}
