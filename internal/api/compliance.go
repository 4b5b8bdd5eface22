package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nexuscargo/backend/internal/aeca"
	"github.com/nexuscargo/backend/internal/aviqm"
	"github.com/nexuscargo/backend/internal/awb"
	"github.com/nexuscargo/backend/internal/dg"
	"github.com/nexuscargo/backend/internal/middleware"
)

// --- AWB ---

func (s *Server) handleValidateAWB(w http.ResponseWriter, r *http.Request) {
	var shipment awb.Shipment
	if err := decodeJSON(r, &shipment); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, awb.Validate(shipment))
}

func (s *Server) handleSubmitAWB(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var shipment awb.Shipment
	if err := decodeJSON(r, &shipment); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	sub, err := s.AWB.Submit(r.Context(), tenantID, actor(r), shipment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleListAWB(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	subs, err := s.AWB.ListSubmissions(r.Context(), tenantID, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": subs})
}

func (s *Server) handleAutocompleteParties(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	parties, err := s.AWB.AutocompleteParties(r.Context(), tenantID, r.URL.Query().Get("prefix"), limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"parties": parties})
}

// --- AECA ---

func (s *Server) handleValidateExport(w http.ResponseWriter, r *http.Request) {
	var d aeca.Declaration
	if err := decodeJSON(r, &d); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, aeca.ValidateDeclaration(d))
}

func (s *Server) handleCreateExportCase(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var d aeca.Declaration
	if err := decodeJSON(r, &d); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	c, err := s.AECA.CreateCase(r.Context(), tenantID, actor(r), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListExportCases(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	cases, err := s.AECA.List(r.Context(), tenantID, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cases": cases})
}

func (s *Server) handleGetExportCase(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	c, err := s.AECA.Get(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleSubmitExportCase(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	c, err := s.AECA.SubmitCase(r.Context(), tenantID, actor(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// --- DG ---

func (s *Server) handleCheckDG(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var req struct {
		DocumentID string `json:"document_id"`
		dg.Declaration
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	check, task, err := s.DG.CheckDeclaration(r.Context(), tenantID, actor(r), req.DocumentID, req.Declaration)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"check":       check,
		"review_task": task,
	})
}

// --- AVIQM ---

// handleDecodeVIN decodes the VIN from the path. An optional arrival_date
// query parameter (RFC 3339) adds the seasonal BMSB risk flag.
func (s *Server) handleDecodeVIN(w http.ResponseWriter, r *http.Request) {
	vin, err := aviqm.DecodeVIN(mux.Vars(r)["vin"])
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]interface{}{"vin": vin}
	if raw := r.URL.Query().Get("arrival_date"); raw != "" {
		arrival, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(w, "arrival_date must be RFC 3339")
			return
		}
		resp["bmsb_risk"] = aviqm.BMSBRisk(arrival)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateVehicleCase(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var in aviqm.CaseInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	c, err := s.AVIQM.CreateCase(r.Context(), tenantID, actor(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListVehicleCases(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	cases, err := s.AVIQM.List(r.Context(), tenantID, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cases": cases})
}

func (s *Server) handleGetVehicleCase(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	c, err := s.AVIQM.Get(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	alerts, err := s.AVIQM.ListAlerts(r.Context(), tenantID, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}
