package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscargo/backend/internal/aeca"
	"github.com/nexuscargo/backend/internal/analytics"
	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/auth"
	"github.com/nexuscargo/backend/internal/aviqm"
	"github.com/nexuscargo/backend/internal/awb"
	"github.com/nexuscargo/backend/internal/config"
	"github.com/nexuscargo/backend/internal/dg"
	"github.com/nexuscargo/backend/internal/discrepancy"
	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/fiar"
	"github.com/nexuscargo/backend/internal/idempotency"
	"github.com/nexuscargo/backend/internal/ingestion"
	"github.com/nexuscargo/backend/internal/pipeline"
	"github.com/nexuscargo/backend/internal/review"
	"github.com/nexuscargo/backend/internal/rules"
	"github.com/nexuscargo/backend/internal/storage"
	"github.com/nexuscargo/backend/internal/store"
	"github.com/nexuscargo/backend/internal/validation"
	"github.com/nexuscargo/backend/internal/webhooks"
)

type testSecrets struct{}

func (testSecrets) Resolve(ctx context.Context, ref string) (string, error) {
	return "test-secret", nil
}

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	cfg := config.Defaults()
	st := store.NewMemory()
	bus := events.NewEventBus()
	rec := audit.NewRecorder(st)
	provider := storage.NewLocalProvider(t.TempDir())
	engine := rules.NewEngine(cfg.Validation.RulePackID, cfg.Validation.RulePackVersion)
	validator := validation.NewService(engine, bus, cfg.Validation.RulePackID, cfg.Validation.RulePackVersion)
	reviews := review.NewService(st, bus, rec)
	authSvc := auth.NewService(st, []byte("test-secret"), 30*time.Minute, 24*time.Hour)
	analyticsSvc := analytics.NewService(st, t.TempDir())

	ingest := ingestion.NewService(
		st, provider, bus, rec,
		pipeline.NewPreprocessor(nil),
		pipeline.NewClassifier(),
		pipeline.NewExtractionService(pipeline.NewMockExtractor()),
		validator, reviews,
		cfg.Pipeline.ReviewConfidenceThreshold,
	)

	srv := NewServer(Deps{
		Config:        cfg,
		Store:         st,
		Storage:       provider,
		Auth:          authSvc,
		Ingestion:     ingest,
		Reviews:       reviews,
		Audit:         rec,
		Webhooks:      webhooks.NewService(st, testSecrets{}, 5, time.Second),
		Discrepancies: discrepancy.NewWorkflow(st, bus, rec),
		AWB:           awb.NewService(st, rec, nil),
		AECA:          aeca.NewService(st, bus, rec, nil),
		DG:            dg.NewService(st, rec, reviews),
		AVIQM:         aviqm.NewService(st, rec),
		FIAR:          fiar.NewService(st, rec, nil),
		Analytics:     analyticsSvc,
		Guard:         idempotency.NewGuard(st),
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body interface{}, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

var tenantHeader = map[string]string{"X-Tenant-Id": "tenant-a"}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doJSON(t, ts, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestTenantRequired(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := doJSON(t, ts, http.MethodGet, "/api/v1/documents", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthTokenFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/v1/auth/token", map[string]interface{}{
		"tenant_id":   "tenant-a",
		"tenant_name": "Acme Freight",
		"email":       "ops@acme.test",
		"role":        "admin",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access, _ := body["access_token"].(string)
	require.NotEmpty(t, access)

	// The token carries the tenant; no header needed.
	resp, _ = doJSON(t, ts, http.MethodGet, "/api/v1/documents", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func ingestHeaders(key string) map[string]string {
	return map[string]string{"X-Tenant-Id": "tenant-a", "Idempotency-Key": key}
}

func TestIngestDocument(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/v1/documents", map[string]interface{}{
		"file_name":      "awb_shipment.pdf",
		"content_type":   "application/pdf",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("%PDF fake")),
	}, ingestHeaders("ingest-1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.NotEmpty(t, body["document_id"])
	assert.Equal(t, "awb", body["doc_type"])
	assert.Equal(t, "validated", body["status"])
	assert.Equal(t, false, body["review_required"])

	// List sees it.
	resp, _ = doJSON(t, ts, http.MethodGet, "/api/v1/documents", nil, tenantHeader)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Entity rows are exposed per document.
	resp, entities := doJSON(t, ts, http.MethodGet,
		fmt.Sprintf("/api/v1/documents/%s/entities", body["document_id"]), nil, tenantHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, entities["entities"])
}

func TestIngestRequiresIdempotencyKey(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/v1/documents", map[string]interface{}{
		"file_name":      "awb_shipment.pdf",
		"content_type":   "application/pdf",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("%PDF fake")),
	}, tenantHeader)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestUnsupportedContentType(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/v1/documents", map[string]interface{}{
		"file_name":      "archive.zip",
		"content_type":   "application/zip",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("PK")),
	}, ingestHeaders("ingest-zip"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestIdempotencyReplay(t *testing.T) {
	ts, st := newTestServer(t)

	payload := map[string]interface{}{
		"file_name":      "awb_shipment.pdf",
		"content_type":   "application/pdf",
		"content_base64": base64.StdEncoding.EncodeToString([]byte("%PDF fake")),
	}
	headers := ingestHeaders("key-1")

	resp, first := doJSON(t, ts, http.MethodPost, "/api/v1/documents", payload, headers)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	firstID := first["document_id"]
	require.NotEmpty(t, firstID)

	// Same key, same body: the stored response comes back unchanged and no
	// second document is created.
	resp, replay := doJSON(t, ts, http.MethodPost, "/api/v1/documents", payload, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first, replay)

	docs, err := st.ListDocuments(context.Background(), "tenant-a", 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1, "replay must not ingest a second document")

	// Same key, different body: conflict.
	payload["file_name"] = "other.pdf"
	resp, _ = doJSON(t, ts, http.MethodPost, "/api/v1/documents", payload, headers)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAWBValidateEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/v1/awb/validate", map[string]interface{}{
		"awb_number": "123-INVALID",
		"weight_kg":  -4,
	}, tenantHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
	assert.Len(t, body["messages"], 2)

	resp, body = doJSON(t, ts, http.MethodPost, "/api/v1/awb/validate", map[string]interface{}{
		"awb_number": "123-12345678",
		"weight_kg":  10.5,
	}, tenantHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	msgs, ok := body["messages"].([]interface{})
	require.True(t, ok, "messages must be an array even when valid")
	assert.Empty(t, msgs)
}

func TestDecodeVINEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/v1/aviqm/vin/JHMCM56557C404453?arrival_date=2025-11-15T00:00:00Z", nil, tenantHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	vin, ok := body["vin"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "JHM", vin["wmi"])
	assert.Equal(t, true, body["bmsb_risk"])
}

func TestDiscrepancyEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, score := doJSON(t, ts, http.MethodPost, "/api/v1/discrepancies/score", map[string]interface{}{
		"declared_weight": 200, "actual_weight": 100,
		"declared_value": 5000, "assessed_value": 5000,
	}, tenantHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, score["mismatch"])

	resp, created := doJSON(t, ts, http.MethodPost, "/api/v1/discrepancies", map[string]interface{}{
		"awb_number":      "180-12345675",
		"declared_weight": 200, "actual_weight": 100,
	}, tenantHeader)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := created["id"].(string)

	resp, disputed := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/discrepancies/%s/dispute", id), nil, tenantHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c, ok := disputed["case"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "in_dispute", c["status"])
	d, ok := disputed["dispute"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "open", d["status"])
	assert.Equal(t, id, d["discrepancy_id"])

	// Disputing twice is an invalid transition.
	resp, _ = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/discrepancies/%s/dispute", id), nil, tenantHeader)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUnknownDocument404(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := doJSON(t, ts, http.MethodGet, "/api/v1/documents/doc_missing", nil, tenantHeader)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyticsOverviewEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := doJSON(t, ts, http.MethodGet, "/api/v1/analytics/overview", nil, tenantHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "tenant-a", body["tenant_id"])
}
