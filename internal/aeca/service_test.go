package aeca

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/store"
)

func TestValidateDeclaration(t *testing.T) {
	ok := ValidateDeclaration(Declaration{Reference: "EXP-1", DestinationCountry: "de", HSCode: "123456"})
	assert.True(t, ok.Valid)

	for _, tc := range []struct {
		name string
		d    Declaration
		msg  string
	}{
		{"restricted destination", Declaration{DestinationCountry: "IR", HSCode: "123456"}, "restricted list"},
		{"bad country code", Declaration{DestinationCountry: "DEU", HSCode: "123456"}, "two-letter country code"},
		{"bad hs code length", Declaration{DestinationCountry: "DE", HSCode: "12345"}, "6, 8 or 10 digits"},
		{"non-numeric hs code", Declaration{DestinationCountry: "DE", HSCode: "12345A"}, "6, 8 or 10 digits"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := ValidateDeclaration(tc.d)
			assert.False(t, out.Valid)
			require.NotEmpty(t, out.Errors)
			assert.Contains(t, out.Errors[0], tc.msg)
		})
	}
}

func newAECA(t *testing.T, customs CustomsAdapter) (*Service, store.Store, *events.EventBus) {
	t.Helper()
	st := store.NewMemory()
	bus := events.NewEventBus()
	return NewService(st, bus, audit.NewRecorder(st), customs), st, bus
}

func TestCreateCase(t *testing.T) {
	svc, st, _ := newAECA(t, nil)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "tenant-a", "tester", Declaration{
		Reference: "EXP-1", DestinationCountry: "de", HSCode: "12345678",
	})
	require.NoError(t, err)
	assert.Equal(t, store.ExportStatusDraft, c.Status)
	assert.Equal(t, "DE", c.DestinationCountry)

	checks, err := st.ListComplianceChecks(ctx, "tenant-a", c.ID)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.True(t, checks[0].Passed)
	assert.Equal(t, "aeca.declaration", checks[0].CheckType)
}

func TestCreateCaseInvalidDeclaration(t *testing.T) {
	svc, st, _ := newAECA(t, nil)
	ctx := context.Background()

	_, err := svc.CreateCase(ctx, "tenant-a", "tester", Declaration{
		Reference: "EXP-2", DestinationCountry: "IR", HSCode: "123456",
	})
	assert.ErrorIs(t, err, ErrInvalidExport)

	// No case row survives a failed validation.
	cases, err := st.ListExportCases(ctx, "tenant-a", 10)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestSubmitCase(t *testing.T) {
	svc, _, bus := newAECA(t, &MockCustomsAdapter{Status: "accepted"})
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "tenant-a", "tester", Declaration{
		Reference: "EXP-1", DestinationCountry: "DE", HSCode: "123456",
	})
	require.NoError(t, err)

	submitted, err := svc.SubmitCase(ctx, "tenant-a", "tester", c.ID)
	require.NoError(t, err)
	assert.Equal(t, "accepted", submitted.Status)
	assert.NotEmpty(t, submitted.SubmissionID)

	// Only draft cases can be lodged.
	_, err = svc.SubmitCase(ctx, "tenant-a", "tester", c.ID)
	assert.Error(t, err)

	var published bool
	for _, evt := range bus.Recorded() {
		if evt.Topic == events.TopicExportSubmissionUpdated {
			published = true
		}
	}
	assert.True(t, published)
}

func TestSubmitCaseCrossTenant(t *testing.T) {
	svc, _, _ := newAECA(t, nil)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "tenant-a", "tester", Declaration{
		Reference: "EXP-1", DestinationCountry: "DE", HSCode: "123456",
	})
	require.NoError(t, err)

	_, err = svc.SubmitCase(ctx, "tenant-b", "tester", c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
