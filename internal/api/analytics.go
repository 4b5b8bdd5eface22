package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nexuscargo/backend/internal/analytics"
	"github.com/nexuscargo/backend/internal/middleware"
)

func analyticsSample(tenantID, documentID, docType string, corrections map[string]interface{}) analytics.TrainingSample {
	return analytics.TrainingSample{
		TenantID:    tenantID,
		DocumentID:  documentID,
		DocType:     docType,
		Corrections: corrections,
	}
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	overview, err := s.Analytics.TenantOverview(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleStationThroughput(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	stations, err := s.Stations.StationThroughput(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stations": stations})
}

func (s *Server) handleCurateSample(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var sample analytics.TrainingSample
	if err := decodeJSON(r, &sample); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	sample.TenantID = tenantID

	if err := s.Analytics.CurateSample(sample); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "curated"})
}

func (s *Server) handleRegisterModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Version  string `json:"version"`
		Activate bool   `json:"activate"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if req.Name == "" || req.Version == "" {
		badRequest(w, "name and version are required")
		return
	}

	m, err := s.Analytics.RegisterModel(r.Context(), req.Name, req.Version, req.Activate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.Analytics.ListModels(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"versions": models})
}

func (s *Server) handleRollbackModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version string `json:"version"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if req.Version == "" {
		badRequest(w, "version is required")
		return
	}

	if err := s.Analytics.RollbackModel(r.Context(), mux.Vars(r)["name"], req.Version); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rolled_back", "version": req.Version})
}
