package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nexuscargo/backend/internal/discrepancy"
	"github.com/nexuscargo/backend/internal/fiar"
	"github.com/nexuscargo/backend/internal/middleware"
)

// --- Discrepancy ---

func (s *Server) handleScoreDiscrepancy(w http.ResponseWriter, r *http.Request) {
	var in discrepancy.ScoreInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, discrepancy.Score(in))
}

func (s *Server) handleCreateDiscrepancy(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var in discrepancy.CaseInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	c, err := s.Discrepancies.CreateCase(r.Context(), tenantID, actor(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListDiscrepancies(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	cases, err := s.Discrepancies.List(r.Context(), tenantID, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cases": cases})
}

func (s *Server) handleGetDiscrepancy(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	c, err := s.Discrepancies.Get(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleOpenDispute(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	c, d, err := s.Discrepancies.OpenDispute(r.Context(), tenantID, actor(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"case":    c,
		"dispute": d,
	})
}

func (s *Server) handleResolveDiscrepancy(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	// The body is optional; resolution notes close out any active dispute.
	var req struct {
		ResolutionNotes string `json:"resolution_notes"`
	}
	if err := decodeJSON(r, &req); err != nil && err != io.EOF {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	c, err := s.Discrepancies.Resolve(r.Context(), tenantID, actor(r), mux.Vars(r)["id"], req.ResolutionNotes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// --- FIAR ---

func (s *Server) handleThreeWayMatch(w http.ResponseWriter, r *http.Request) {
	var in fiar.MatchInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.FIAR.Match(in))
}

func (s *Server) handleExportInvoice(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	var req struct {
		InvoiceRef string  `json:"invoice_ref"`
		Amount     float64 `json:"amount"`
		Currency   string  `json:"currency"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if req.InvoiceRef == "" {
		badRequest(w, "invoice_ref is required")
		return
	}

	exp, err := s.FIAR.ExportInvoice(r.Context(), tenantID, actor(r), req.InvoiceRef, req.Amount, req.Currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

func (s *Server) handleListInvoiceExports(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	exports, err := s.FIAR.ListExports(r.Context(), tenantID, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"exports": exports})
}
