package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"argus/core"
	"argus/storage"
)

// allowlistEntryRequest is the wire shape for POST /api/allowlist.
type allowlistEntryRequest struct {
	EntryType  string     `json:"entry_type" validate:"required,oneof=ip actor"`
	EntryValue string     `json:"entry_value" validate:"required"`
	Reason     string     `json:"reason" validate:"required"`
	RuleID     string     `json:"rule_id"`
	ExpiresAt  *time.Time `json:"expires_at"`
	CreatedBy  string     `json:"created_by"`
}

func (a *API) getAllowlist(w http.ResponseWriter, r *http.Request) {
	entries, err := a.allowlist.GetEntries(r.Context())
	if err != nil {
		a.logger.Errorw("failed to list allowlist entries", "error", err)
		a.respondError(w, "failed to list allowlist entries", http.StatusInternalServerError)
		return
	}
	a.respondJSON(w, entries, http.StatusOK)
}

func (a *API) createAllowlistEntry(w http.ResponseWriter, r *http.Request) {
	var req allowlistEntryRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	entry := &core.AllowlistEntry{
		EntryType:  core.SubjectType(req.EntryType),
		EntryValue: req.EntryValue,
		Reason:     req.Reason,
		RuleID:     req.RuleID,
		ExpiresAt:  req.ExpiresAt,
		CreatedBy:  req.CreatedBy,
	}

	if err := a.allowlist.CreateEntry(r.Context(), entry); err != nil {
		if errors.Is(err, core.ErrInvalidAllowlistEntry) {
			a.respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.logger.Errorw("failed to create allowlist entry", "error", err)
		a.respondError(w, "failed to create allowlist entry", http.StatusInternalServerError)
		return
	}
	a.respondJSON(w, entry, http.StatusCreated)
}

func (a *API) deleteAllowlistEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := a.allowlist.DeleteEntry(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrAllowlistEntryNotFound) {
			a.respondError(w, "allowlist entry not found", http.StatusNotFound)
			return
		}
		a.logger.Errorw("failed to delete allowlist entry", "entry_id", id, "error", err)
		a.respondError(w, "failed to delete allowlist entry", http.StatusInternalServerError)
		return
	}
	a.respondJSON(w, map[string]string{"status": "deleted"}, http.StatusOK)
}
