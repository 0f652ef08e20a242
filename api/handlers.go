package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator instances cache struct metadata.
var validate = validator.New()

// respondJSON writes a JSON response.
func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response already started, can only log.
		a.logger.Errorw("failed to encode JSON response",
			"error", err, "data_type", fmt.Sprintf("%T", data))
	}
}

// respondError writes a JSON error body.
func (a *API) respondError(w http.ResponseWriter, message string, statusCode int) {
	a.respondJSON(w, map[string]string{"error": message}, statusCode)
}

// decodeAndValidate parses the JSON body into dst and runs struct
// validation. It writes the error response itself and reports success.
func (a *API) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		a.respondError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		a.respondError(w, fmt.Sprintf("validation failed: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// healthCheck reports liveness and basic storage reachability.
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	count, err := a.events.CountEvents(r.Context())
	if err != nil {
		a.respondJSON(w, map[string]interface{}{"status": "degraded", "error": err.Error()}, http.StatusServiceUnavailable)
		return
	}
	a.respondJSON(w, map[string]interface{}{"status": "ok", "events": count}, http.StatusOK)
}
