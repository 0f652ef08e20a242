package api

import (
	"net/http"
	"time"
)

// runDetection triggers a synchronous detection run and returns its
// summary. Runs are serialized inside the engine; a concurrent trigger
// waits for the in-flight run to finish.
func (a *API) runDetection(w http.ResponseWriter, r *http.Request) {
	summary, err := a.engine.Run(r.Context(), time.Now().UTC())
	if err != nil {
		a.logger.Errorw("detection run failed", "error", err)
		a.respondError(w, "detection run failed", http.StatusInternalServerError)
		return
	}
	a.respondJSON(w, summary, http.StatusOK)
}
