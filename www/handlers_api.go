package www

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"gasflow/lifecycle"
	"gasflow/store"
)

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeError maps a service error onto its HTTP status.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	if ve, ok := lifecycle.AsValidation(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"error": "validation failed", "fields": ve.Fields})
		return
	}
	switch {
	case lifecycle.IsConflict(err):
		h.jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, lifecycle.ErrLockBusy):
		h.jsonError(w, err.Error(), http.StatusConflict)
	case store.IsNotFound(err):
		h.jsonError(w, "not found", http.StatusNotFound)
	default:
		log.Printf("www: %v", err)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// decode reads a JSON request body into v.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	dbOK := h.engine.DB().PingContext(r.Context()) == nil
	status := "ok"
	if !dbOK {
		status = "degraded"
	}
	h.jsonOK(w, map[string]any{
		"status":    status,
		"database":  dbOK,
		"messaging": h.engine.MessagingConnected(),
	})
}

func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if entity := q.Get("entity_type"); entity != "" {
		id, _ := strconv.ParseInt(q.Get("entity_id"), 10, 64)
		entries, err := h.engine.DB().ListEntityAudit(r.Context(), entity, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.jsonOK(w, entries)
		return
	}
	limit := queryInt(r, "limit", 100)
	entries, err := h.engine.DB().ListAuditLog(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, entries)
}

func (h *Handlers) deleteByID(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := del(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
