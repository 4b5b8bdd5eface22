package api

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nexuscargo/backend/internal/ingestion"
	"github.com/nexuscargo/backend/internal/middleware"
	"github.com/nexuscargo/backend/internal/storage"
)

func limitParam(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 50
}

func actor(r *http.Request) string {
	if user := middleware.UserFromContext(r.Context()); user != "" {
		return user
	}
	return "api"
}

type ingestRequest struct {
	FileName      string `json:"file_name"`
	ContentType   string `json:"content_type"`
	ContentBase64 string `json:"content_base64"`
}

// handleIngest admits one document. The Idempotency-Key header is required
// and makes the call safe to retry: a replay with the same body returns the
// original response byte for byte, a replay with a different body is a
// conflict.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey == "" {
		badRequest(w, "Idempotency-Key header is required")
		return
	}

	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if req.FileName == "" || req.ContentBase64 == "" {
		badRequest(w, "file_name and content_base64 are required")
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		badRequest(w, "content_base64 is not valid base64")
		return
	}

	requestHash, err := s.hashIngest(req)
	if err != nil {
		writeError(w, err)
		return
	}
	stored, err := s.Guard.Check(r.Context(), tenantID, idemKey, requestHash)
	if err != nil {
		writeError(w, err)
		return
	}
	if stored != nil {
		writeJSON(w, http.StatusOK, stored)
		return
	}

	result, err := s.Ingestion.Ingest(r.Context(), tenantID, ingestion.Input{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Content:     content,
		Actor:       actor(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response := map[string]interface{}{
		"document_id":     result.Document.ID,
		"status":          result.Document.Status,
		"review_required": result.ReviewTask != nil,
		"doc_type":        result.Document.DocType,
	}
	if err := s.Guard.Save(r.Context(), tenantID, idemKey, requestHash, response); err != nil {
		s.logger.Printf("❌ Failed to save idempotency record %s: %v", idemKey, err)
	}

	writeJSON(w, http.StatusCreated, response)
}

func (s *Server) hashIngest(req ingestRequest) (string, error) {
	return hashRequest(map[string]interface{}{
		"file_name":      req.FileName,
		"content_type":   req.ContentType,
		"content_base64": req.ContentBase64,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	docs, err := s.Store.ListDocuments(r.Context(), tenantID, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	query := r.URL.Query().Get("q")
	if query == "" {
		badRequest(w, "query parameter q is required")
		return
	}
	docs, err := s.Store.SearchDocuments(r.Context(), tenantID, query, limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	doc, err := s.Store.GetDocument(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	doc, err := s.Store.GetDocument(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	url, err := s.Storage.GenerateSignedURL(r.Context(), doc.StorageURI, storage.DefaultSignedURLTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":        url,
		"expires_in": int(storage.DefaultSignedURLTTL.Seconds()),
	})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	versions, err := s.Store.ListDocumentVersions(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	entities, err := s.Store.ListExtractedEntities(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entities": entities})
}

func (s *Server) handleListValidation(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	results, err := s.Store.ListValidationResults(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}
