package analytics

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscargo/backend/internal/store"
)

func seedCase(t *testing.T, st store.Store, tenantID string, mismatch bool) {
	t.Helper()
	err := st.CreateDiscrepancyCase(context.Background(), &store.DiscrepancyCase{
		ID:        store.NewID("dsc"),
		TenantID:  tenantID,
		Mismatch:  mismatch,
		Status:    store.DiscrepancyStatusOpen,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestTenantOverview(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, "")
	ctx := context.Background()

	require.NoError(t, st.CreateDocument(ctx, &store.Document{
		ID: store.NewID("doc"), TenantID: "tenant-a", Status: store.DocStatusValidated,
	}))
	require.NoError(t, st.CreateReviewTask(ctx, &store.ReviewTask{
		ID: store.NewID("rvt"), TenantID: "tenant-a", DocumentID: "doc_x", Status: store.ReviewStatusOpen,
	}))
	seedCase(t, st, "tenant-a", true)
	seedCase(t, st, "tenant-a", false)
	seedCase(t, st, "tenant-a", false)

	ov, err := svc.TenantOverview(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, 1, ov.Documents)
	assert.Equal(t, 1, ov.OpenReviews)
	assert.Equal(t, 3, ov.Discrepancies)
	assert.Equal(t, 0.3333, ov.DiscrepancyRate)
	assert.NotEmpty(t, ov.GeneratedAt)
}

func TestTenantOverviewEmpty(t *testing.T) {
	svc := NewService(store.NewMemory(), "")

	ov, err := svc.TenantOverview(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, ov.DiscrepancyRate)
}

func TestCurateSampleAppendsJSONL(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(store.NewMemory(), dir)

	sample := TrainingSample{
		TenantID:    "tenant-a",
		DocumentID:  "doc_1",
		DocType:     "awb",
		Fields:      map[string]interface{}{"awb_number": "123-INVALID"},
		Corrections: map[string]interface{}{"awb_number": "180-12345675"},
	}
	require.NoError(t, svc.CurateSample(sample))
	require.NoError(t, svc.CurateSample(sample))

	raw, err := os.ReadFile(filepath.Join(dir, "tenant-a.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var got TrainingSample
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "doc_1", got.DocumentID)
	assert.Equal(t, "180-12345675", got.Corrections["awb_number"])
	assert.False(t, got.CuratedAt.IsZero())
}

func TestCurateSampleDisabled(t *testing.T) {
	svc := NewService(store.NewMemory(), "")
	assert.NoError(t, svc.CurateSample(TrainingSample{TenantID: "tenant-a"}))
}

func TestModelRegistryRollback(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, "")
	ctx := context.Background()

	_, err := svc.RegisterModel(ctx, "classifier", "v1", true)
	require.NoError(t, err)
	_, err = svc.RegisterModel(ctx, "classifier", "v2", true)
	require.NoError(t, err)

	require.NoError(t, svc.RollbackModel(ctx, "classifier", "v1"))

	versions, err := svc.ListModels(ctx, "classifier")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	for _, v := range versions {
		assert.Equal(t, v.Version == "v1", v.Active, "version %s", v.Version)
	}

	err = svc.RollbackModel(ctx, "classifier", "v9")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
