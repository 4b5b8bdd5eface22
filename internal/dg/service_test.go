package dg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/review"
	"github.com/nexuscargo/backend/internal/store"
)

func TestValidate(t *testing.T) {
	ok := Validate(Declaration{UNNumber: "UN1203", PackingGroup: "II", ProperName: "Gasoline"})
	assert.True(t, ok.Valid)

	bad := Validate(Declaration{UNNumber: "1203", PackingGroup: "IV"})
	assert.False(t, bad.Valid)
	require.Len(t, bad.Errors, 2)
	assert.Contains(t, bad.Errors[0], "UN followed by digits")
	assert.Contains(t, bad.Errors[1], "I, II or III")
}

func newDG(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemory()
	rec := audit.NewRecorder(st)
	return NewService(st, rec, review.NewService(st, events.NewEventBus(), rec)), st
}

func TestCheckDeclarationPasses(t *testing.T) {
	svc, st := newDG(t)
	ctx := context.Background()

	check, task, err := svc.CheckDeclaration(ctx, "tenant-a", "tester", "doc_1", Declaration{
		UNNumber: "UN1203", PackingGroup: "II", ProperName: "Gasoline",
	})
	require.NoError(t, err)
	assert.True(t, check.Passed)
	assert.Nil(t, task)

	open, err := st.ListReviewTasks(ctx, "tenant-a", store.ReviewStatusOpen, 10)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestCheckDeclarationFailureOpensReview(t *testing.T) {
	svc, st := newDG(t)
	ctx := context.Background()

	check, task, err := svc.CheckDeclaration(ctx, "tenant-a", "tester", "doc_1", Declaration{
		UNNumber: "1203", PackingGroup: "IV",
	})
	require.NoError(t, err)
	assert.False(t, check.Passed)
	require.NotNil(t, task)
	assert.Equal(t, 0.4, task.Confidence)
	assert.Equal(t, "dangerous goods declaration failed validation", task.Reason)
	assert.Equal(t, "dg", task.Source)
	assert.Equal(t, "doc_1", task.DocumentID)

	checks, err := st.ListComplianceChecks(ctx, "tenant-a", "doc_1")
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "dg.declaration", checks[0].CheckType)
}

func TestCheckDeclarationFailureWithoutDocument(t *testing.T) {
	svc, st := newDG(t)
	ctx := context.Background()

	check, task, err := svc.CheckDeclaration(ctx, "tenant-a", "tester", "", Declaration{
		UNNumber: "garbage", PackingGroup: "II",
	})
	require.NoError(t, err)
	assert.False(t, check.Passed)
	assert.Nil(t, task, "no document to review against")

	open, err := st.ListReviewTasks(ctx, "tenant-a", store.ReviewStatusOpen, 10)
	require.NoError(t, err)
	assert.Empty(t, open)
}
