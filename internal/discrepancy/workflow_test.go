package discrepancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/store"
)

func newWorkflow(t *testing.T) (*Workflow, *events.EventBus, store.Store) {
	t.Helper()
	st := store.NewMemory()
	bus := events.NewEventBus()
	return NewWorkflow(st, bus, audit.NewRecorder(st)), bus, st
}

func TestCreateCasePublishesOnMismatch(t *testing.T) {
	w, bus, _ := newWorkflow(t)
	ctx := context.Background()

	c, err := w.CreateCase(ctx, "tenant-a", "tester", CaseInput{
		AWBNumber: "180-12345675",
		ScoreInput: ScoreInput{
			DeclaredWeight: 200, ActualWeight: 100,
			DeclaredValue: 5000, AssessedValue: 5000,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, store.DiscrepancyStatusOpen, c.Status)
	assert.True(t, c.Mismatch)

	var detected bool
	for _, evt := range bus.Recorded() {
		if evt.Topic == events.TopicDiscrepancyDetected {
			detected = true
			assert.Equal(t, "tenant-a", evt.TenantID)
			assert.Equal(t, true, evt.Payload["mismatch"])
		}
	}
	assert.True(t, detected)
}

func TestCreateCaseBelowThresholdStillPublishes(t *testing.T) {
	w, bus, _ := newWorkflow(t)

	c, err := w.CreateCase(context.Background(), "tenant-a", "tester", CaseInput{
		ScoreInput: ScoreInput{
			DeclaredWeight: 101, ActualWeight: 100,
			DeclaredValue: 5000, AssessedValue: 5000,
		},
	})
	require.NoError(t, err)
	assert.False(t, c.Mismatch)

	var detected bool
	for _, evt := range bus.Recorded() {
		if evt.Topic == events.TopicDiscrepancyDetected {
			detected = true
			assert.Equal(t, false, evt.Payload["mismatch"])
		}
	}
	assert.True(t, detected)
}

func TestDisputeLifecycle(t *testing.T) {
	w, bus, st := newWorkflow(t)
	ctx := context.Background()

	c, err := w.CreateCase(ctx, "tenant-a", "tester", CaseInput{
		ScoreInput: ScoreInput{DeclaredWeight: 200, ActualWeight: 100},
	})
	require.NoError(t, err)

	disputed, dispute, err := w.OpenDispute(ctx, "tenant-a", "tester", c.ID)
	require.NoError(t, err)
	assert.Equal(t, store.DiscrepancyStatusInDispute, disputed.Status)
	require.NotNil(t, dispute)
	assert.Equal(t, store.DisputeStatusOpen, dispute.Status)
	assert.Equal(t, "tester", dispute.OpenedBy)
	assert.Equal(t, c.ID, dispute.DiscrepancyID)

	// A second dispute on the same case is rejected.
	_, _, err = w.OpenDispute(ctx, "tenant-a", "tester", c.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	resolved, err := w.Resolve(ctx, "tenant-a", "tester", c.ID, "recount confirmed declared weight")
	require.NoError(t, err)
	assert.Equal(t, store.DiscrepancyStatusResolved, resolved.Status)

	// The active dispute was closed alongside the case.
	_, err = st.GetActiveDispute(ctx, "tenant-a", c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = w.Resolve(ctx, "tenant-a", "tester", c.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var updates int
	for _, evt := range bus.Recorded() {
		if evt.Topic == events.TopicInvoiceDisputeUpdated {
			updates++
		}
	}
	assert.Equal(t, 2, updates)
}

func TestCrossTenantCaseIsNotFound(t *testing.T) {
	w, _, _ := newWorkflow(t)
	ctx := context.Background()

	c, err := w.CreateCase(ctx, "tenant-a", "tester", CaseInput{
		ScoreInput: ScoreInput{DeclaredWeight: 200, ActualWeight: 100},
	})
	require.NoError(t, err)

	_, _, err = w.OpenDispute(ctx, "tenant-b", "tester", c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
