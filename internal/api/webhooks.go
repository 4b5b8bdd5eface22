package api

import (
	"net/http"

	"github.com/nexuscargo/backend/internal/middleware"
)

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var req struct {
		URL        string   `json:"url"`
		EventTypes []string `json:"event_types"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	sub, err := s.Webhooks.CreateSubscription(r.Context(), tenantID, req.URL, req.EventTypes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	subs, err := s.Webhooks.ListSubscriptions(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": subs})
}

func (s *Server) handleDispatchEvent(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var req struct {
		EventType string                 `json:"event_type"`
		Payload   map[string]interface{} `json:"payload"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if req.EventType == "" {
		badRequest(w, "event_type is required")
		return
	}

	created, err := s.Webhooks.DispatchEvent(r.Context(), tenantID, req.EventType, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"enqueued": created})
}

// handleProcessQueue runs one delivery batch inline. Normally the worker
// owns the queue; this endpoint serves operators and tests.
func (s *Server) handleProcessQueue(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Webhooks.ProcessDeliveryQueue(r.Context(), s.Config.Webhooks.BatchSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListDLQ(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	dead, err := s.Webhooks.ListDeadLettered(r.Context(), tenantID, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deliveries": dead})
}

func (s *Server) handleReplayDLQ(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	count, err := s.Webhooks.ReplayDeadLettered(r.Context(), tenantID, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"replayed": count})
}
