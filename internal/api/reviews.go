package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nexuscargo/backend/internal/middleware"
	"github.com/nexuscargo/backend/internal/review"
)

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	tasks, err := s.Reviews.List(r.Context(), tenantID, r.URL.Query().Get("status"), limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

func (s *Server) handleCompleteReview(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var req struct {
		Approved    bool                `json:"approved"`
		Corrections []review.Correction `json:"corrections"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	task, corrections, err := s.Reviews.CompleteReview(r.Context(), tenantID, actor(r), mux.Vars(r)["id"], req.Approved, req.Corrections)
	if err != nil {
		writeError(w, err)
		return
	}

	// Completed reviews with corrections feed the training set.
	if len(corrections) > 0 && s.Analytics != nil {
		doc, derr := s.Store.GetDocument(r.Context(), tenantID, task.DocumentID)
		if derr == nil {
			fields := make(map[string]interface{}, len(corrections))
			for _, c := range corrections {
				fields[c.FieldName] = c.NewValue
			}
			s.Analytics.CurateSample(analyticsSample(tenantID, task.DocumentID, doc.DocType, fields))
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task":        task,
		"corrections": corrections,
	})
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	events, err := s.Audit.List(r.Context(), tenantID, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
