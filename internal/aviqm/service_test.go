package aviqm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/store"
)

const testVIN = "WDB9634031L123456"

func TestDecodeVIN(t *testing.T) {
	vin, err := DecodeVIN(testVIN)
	require.NoError(t, err)
	assert.Equal(t, "WDB", vin.WMI)
	assert.Equal(t, "963403", vin.VDS)
	assert.Equal(t, "1L123456", vin.VIS)

	_, err = DecodeVIN("TOO-SHORT")
	assert.ErrorIs(t, err, ErrInvalidVIN)
}

func TestBMSBRisk(t *testing.T) {
	assert.True(t, BMSBRisk(time.Date(2026, time.October, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, BMSBRisk(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, BMSBRisk(time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)))
}

func newAVIQM(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemory()
	return NewService(st, audit.NewRecorder(st)), st
}

func TestCreateCaseInSeason(t *testing.T) {
	svc, st := newAVIQM(t)
	ctx := context.Background()

	arrival := time.Date(2026, time.November, 3, 0, 0, 0, 0, time.UTC)
	c, err := svc.CreateCase(ctx, "tenant-a", "tester", CaseInput{VIN: testVIN, ArrivalDate: &arrival})
	require.NoError(t, err)
	assert.True(t, c.BMSBRisk)
	assert.Equal(t, "open", c.Status)
	assert.Equal(t, "WDB", c.WMI)

	checks, err := st.ListComplianceChecks(ctx, "tenant-a", c.ID)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "aviqm.bmsb_season", checks[0].CheckType)
	assert.False(t, checks[0].Passed)
}

func TestCreateCasePermitExpiryAlert(t *testing.T) {
	svc, _ := newAVIQM(t)
	ctx := context.Background()

	expiry := time.Now().UTC().Add(10 * 24 * time.Hour)
	c, err := svc.CreateCase(ctx, "tenant-a", "tester", CaseInput{VIN: testVIN, PermitExpiry: &expiry})
	require.NoError(t, err)

	alerts, err := svc.ListAlerts(ctx, "tenant-a", 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Equal(t, c.ID, alerts[0].EntityID)
}

func TestCreateCaseDistantPermitNoAlert(t *testing.T) {
	svc, _ := newAVIQM(t)
	ctx := context.Background()

	expiry := time.Now().UTC().Add(90 * 24 * time.Hour)
	_, err := svc.CreateCase(ctx, "tenant-a", "tester", CaseInput{VIN: testVIN, PermitExpiry: &expiry})
	require.NoError(t, err)

	alerts, err := svc.ListAlerts(ctx, "tenant-a", 10)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestCreateCaseBadVIN(t *testing.T) {
	svc, st := newAVIQM(t)

	_, err := svc.CreateCase(context.Background(), "tenant-a", "tester", CaseInput{VIN: "short"})
	assert.ErrorIs(t, err, ErrInvalidVIN)

	cases, err := st.ListVehicleCases(context.Background(), "tenant-a", 10)
	require.NoError(t, err)
	assert.Empty(t, cases)
}
