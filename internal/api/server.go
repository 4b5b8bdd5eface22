// Package api exposes the platform over REST/JSON.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nexuscargo/backend/internal/aeca"
	"github.com/nexuscargo/backend/internal/analytics"
	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/auth"
	"github.com/nexuscargo/backend/internal/aviqm"
	"github.com/nexuscargo/backend/internal/awb"
	"github.com/nexuscargo/backend/internal/config"
	"github.com/nexuscargo/backend/internal/dg"
	"github.com/nexuscargo/backend/internal/discrepancy"
	"github.com/nexuscargo/backend/internal/fiar"
	"github.com/nexuscargo/backend/internal/idempotency"
	"github.com/nexuscargo/backend/internal/ingestion"
	"github.com/nexuscargo/backend/internal/middleware"
	"github.com/nexuscargo/backend/internal/monitoring"
	"github.com/nexuscargo/backend/internal/review"
	"github.com/nexuscargo/backend/internal/storage"
	"github.com/nexuscargo/backend/internal/store"
	"github.com/nexuscargo/backend/internal/webhooks"
)

// Deps carries everything the server routes to.
type Deps struct {
	Config        *config.Config
	Store         store.Store
	Storage       storage.Provider
	Auth          *auth.Service
	Ingestion     *ingestion.Service
	Reviews       *review.Service
	Audit         *audit.Recorder
	Webhooks      *webhooks.Service
	Discrepancies *discrepancy.Workflow
	AWB           *awb.Service
	AECA          *aeca.Service
	DG            *dg.Service
	AVIQM         *aviqm.Service
	FIAR          *fiar.Service
	Analytics     *analytics.Service
	Stations      analytics.StationReporter
	Guard         *idempotency.Guard
	Limiter       middleware.Limiter
}

type Server struct {
	Deps
	logger *log.Logger
}

func NewServer(deps Deps) *Server {
	if deps.Stations == nil {
		deps.Stations = analytics.NoopStationReporter{}
	}
	return &Server{
		Deps:   deps,
		logger: log.New(log.Writer(), "[API] ", log.LstdFlags),
	}
}

// Router builds the full route table. Health, metrics and auth endpoints
// are open; everything under /api/v1 requires a tenant context.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(monitoring.Instrument)

	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	r.HandleFunc("/readyz", s.handleReadyz).Methods("GET")
	r.Handle("/metrics", monitoring.Handler()).Methods("GET")

	r.HandleFunc("/api/v1/auth/token", s.handleAuthToken).Methods("POST")
	r.HandleFunc("/api/v1/auth/refresh", s.handleAuthRefresh).Methods("POST")
	r.HandleFunc("/api/v1/auth/revoke", s.handleAuthRevoke).Methods("POST")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Tenant(s.Auth, s.Config.Server.TenantHeaderName))
	if s.Limiter != nil {
		api.Use(middleware.RateLimit(s.Limiter))
	}

	// Ingestion and documents
	api.HandleFunc("/documents", s.handleIngest).Methods("POST")
	api.HandleFunc("/documents", s.handleListDocuments).Methods("GET")
	api.HandleFunc("/documents/search", s.handleSearchDocuments).Methods("GET")
	api.HandleFunc("/documents/{id}", s.handleGetDocument).Methods("GET")
	api.HandleFunc("/documents/{id}/download-url", s.handleSignedURL).Methods("GET")
	api.HandleFunc("/documents/{id}/versions", s.handleListVersions).Methods("GET")
	api.HandleFunc("/documents/{id}/entities", s.handleListEntities).Methods("GET")
	api.HandleFunc("/documents/{id}/validation", s.handleListValidation).Methods("GET")

	// Review
	api.HandleFunc("/reviews", s.handleListReviews).Methods("GET")
	api.HandleFunc("/reviews/{id}/complete", s.handleCompleteReview).Methods("POST")

	// Audit
	api.HandleFunc("/audit", s.handleListAudit).Methods("GET")

	// Webhooks
	api.HandleFunc("/webhooks/subscriptions", s.handleCreateSubscription).Methods("POST")
	api.HandleFunc("/webhooks/subscriptions", s.handleListSubscriptions).Methods("GET")
	api.HandleFunc("/webhooks/dispatch", s.handleDispatchEvent).Methods("POST")
	api.HandleFunc("/webhooks/process", s.handleProcessQueue).Methods("POST")
	api.HandleFunc("/webhooks/dlq", s.handleListDLQ).Methods("GET")
	api.HandleFunc("/webhooks/dlq/replay", s.handleReplayDLQ).Methods("POST")

	// Discrepancy
	api.HandleFunc("/discrepancies/score", s.handleScoreDiscrepancy).Methods("POST")
	api.HandleFunc("/discrepancies", s.handleCreateDiscrepancy).Methods("POST")
	api.HandleFunc("/discrepancies", s.handleListDiscrepancies).Methods("GET")
	api.HandleFunc("/discrepancies/{id}", s.handleGetDiscrepancy).Methods("GET")
	api.HandleFunc("/discrepancies/{id}/dispute", s.handleOpenDispute).Methods("POST")
	api.HandleFunc("/discrepancies/{id}/resolve", s.handleResolveDiscrepancy).Methods("POST")

	// AWB
	api.HandleFunc("/awb/validate", s.handleValidateAWB).Methods("POST")
	api.HandleFunc("/awb/submissions", s.handleSubmitAWB).Methods("POST")
	api.HandleFunc("/awb/submissions", s.handleListAWB).Methods("GET")
	api.HandleFunc("/awb/parties", s.handleAutocompleteParties).Methods("GET")

	// AECA
	api.HandleFunc("/aeca/validate", s.handleValidateExport).Methods("POST")
	api.HandleFunc("/aeca/cases", s.handleCreateExportCase).Methods("POST")
	api.HandleFunc("/aeca/cases", s.handleListExportCases).Methods("GET")
	api.HandleFunc("/aeca/cases/{id}", s.handleGetExportCase).Methods("GET")
	api.HandleFunc("/aeca/cases/{id}/submit", s.handleSubmitExportCase).Methods("POST")

	// DG
	api.HandleFunc("/dg/check", s.handleCheckDG).Methods("POST")

	// AVIQM
	api.HandleFunc("/aviqm/vin/{vin}", s.handleDecodeVIN).Methods("GET")
	api.HandleFunc("/aviqm/cases", s.handleCreateVehicleCase).Methods("POST")
	api.HandleFunc("/aviqm/cases", s.handleListVehicleCases).Methods("GET")
	api.HandleFunc("/aviqm/cases/{id}", s.handleGetVehicleCase).Methods("GET")
	api.HandleFunc("/aviqm/alerts", s.handleListAlerts).Methods("GET")

	// FIAR
	api.HandleFunc("/fiar/match", s.handleThreeWayMatch).Methods("POST")
	api.HandleFunc("/fiar/exports", s.handleExportInvoice).Methods("POST")
	api.HandleFunc("/fiar/exports", s.handleListInvoiceExports).Methods("GET")

	// Analytics and model registry
	api.HandleFunc("/analytics/overview", s.handleOverview).Methods("GET")
	api.HandleFunc("/analytics/stations", s.handleStationThroughput).Methods("GET")
	api.HandleFunc("/analytics/samples", s.handleCurateSample).Methods("POST")
	api.HandleFunc("/models", s.handleRegisterModel).Methods("POST")
	api.HandleFunc("/models/{name}", s.handleListModels).Methods("GET")
	api.HandleFunc("/models/{name}/rollback", s.handleRollbackModel).Methods("POST")

	return r
}

// Start serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("🚀 Listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	type checker interface {
		HealthCheck(ctx context.Context) error
	}
	if hc, ok := s.Store.(checker); ok {
		if err := hc.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  fmt.Sprintf("store: %v", err),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
