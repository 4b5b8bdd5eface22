package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/store"
)

func newService(t *testing.T) (*Service, store.Store, *events.EventBus) {
	t.Helper()
	st := store.NewMemory()
	bus := events.NewEventBus()
	return NewService(st, bus, audit.NewRecorder(st)), st, bus
}

func TestQueueIsIdempotent(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	first, err := svc.QueueLowConfidenceReview(ctx, nil, "tenant-a", "doc_1", 0.55, "ingestion", "low-confidence or validation-failure")
	require.NoError(t, err)
	assert.Equal(t, "ingestion", first.Source)

	second, err := svc.QueueLowConfidenceReview(ctx, nil, "tenant-a", "doc_1", 0.4, "ingestion", "another reason")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "second queue must return the existing open task")

	open, err := st.ListReviewTasks(ctx, "tenant-a", store.ReviewStatusOpen, 10)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestQueueRecordsAudit(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	task, err := svc.QueueLowConfidenceReview(ctx, nil, "tenant-a", "doc_1", 0.55, "ingestion", "r")
	require.NoError(t, err)

	audits, err := st.ListAudit(ctx, "tenant-a", 10)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "review.task_opened", audits[0].Action)
	assert.Equal(t, task.ID, audits[0].EntityID)
}

func TestCompleteReviewApproved(t *testing.T) {
	svc, st, bus := newService(t)
	ctx := context.Background()

	task, err := svc.QueueLowConfidenceReview(ctx, nil, "tenant-a", "doc_1", 0.55, "ingestion", "low-confidence or validation-failure")
	require.NoError(t, err)

	corrections := []Correction{
		{FieldName: "awb_number", OldValue: "123-INVALID", NewValue: "180-12345675", ReasonTag: "ocr_error"},
	}
	done, rows, err := svc.CompleteReview(ctx, "tenant-a", "reviewer@example.com", task.ID, true, corrections)
	require.NoError(t, err)
	assert.Equal(t, store.ReviewStatusApproved, done.Status)
	assert.NotNil(t, done.CompletedAt)

	require.Len(t, rows, 1)
	assert.Equal(t, "awb_number", rows[0].FieldName)
	assert.Equal(t, "180-12345675", rows[0].NewValue)
	assert.Equal(t, "reviewer@example.com", rows[0].CorrectedBy)

	stored, err := st.ListCorrections(ctx, "tenant-a", task.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "ocr_error", stored[0].ReasonTag)

	_, _, err = svc.CompleteReview(ctx, "tenant-a", "reviewer@example.com", task.ID, true, nil)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	var completed bool
	for _, evt := range bus.Recorded() {
		if evt.Topic == events.TopicReviewCompleted {
			completed = true
			assert.Equal(t, true, evt.Payload["approved"])
		}
	}
	assert.True(t, completed)
}

func TestCompleteReviewRejected(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	task, err := svc.QueueLowConfidenceReview(ctx, nil, "tenant-a", "doc_1", 0.55, "ingestion", "r")
	require.NoError(t, err)

	done, rows, err := svc.CompleteReview(ctx, "tenant-a", "reviewer@example.com", task.ID, false, nil)
	require.NoError(t, err)
	assert.Equal(t, store.ReviewStatusRejected, done.Status)
	assert.Empty(t, rows)

	// Completion is audited.
	audits, err := st.ListAudit(ctx, "tenant-a", 10)
	require.NoError(t, err)
	var completedAudit bool
	for _, e := range audits {
		if e.Action == "review.task_completed" {
			completedAudit = true
			assert.Equal(t, false, e.Payload["approved"])
		}
	}
	assert.True(t, completedAudit)
}

func TestCompleteReviewCrossTenant(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	task, err := svc.QueueLowConfidenceReview(ctx, nil, "tenant-a", "doc_1", 0.5, "ingestion", "r")
	require.NoError(t, err)

	_, _, err = svc.CompleteReview(ctx, "tenant-b", "reviewer@example.com", task.ID, true, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompletedTaskAllowsNewQueue(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	task, err := svc.QueueLowConfidenceReview(ctx, nil, "tenant-a", "doc_1", 0.5, "ingestion", "r")
	require.NoError(t, err)
	_, _, err = svc.CompleteReview(ctx, "tenant-a", "reviewer@example.com", task.ID, true, nil)
	require.NoError(t, err)

	again, err := svc.QueueLowConfidenceReview(ctx, nil, "tenant-a", "doc_1", 0.6, "ingestion", "r")
	require.NoError(t, err)
	assert.NotEqual(t, task.ID, again.ID)
}
