package idempotency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscargo/backend/internal/store"
)

func TestHashRequestIgnoresKeyOrder(t *testing.T) {
	a, err := HashRequest(map[string]interface{}{"file_name": "awb.pdf", "content_type": "application/pdf"})
	require.NoError(t, err)
	b, err := HashRequest(map[string]interface{}{"content_type": "application/pdf", "file_name": "awb.pdf"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	c, err := HashRequest(map[string]interface{}{"file_name": "other.pdf", "content_type": "application/pdf"})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestGuardReplayAndConflict(t *testing.T) {
	g := NewGuard(store.NewMemory())
	ctx := context.Background()

	// Unknown key: proceed.
	resp, err := g.Check(ctx, "tenant-a", "key-1", "hash-a")
	require.NoError(t, err)
	assert.Nil(t, resp)

	stored := map[string]interface{}{"document_id": "doc_1", "status": "validated"}
	require.NoError(t, g.Save(ctx, "tenant-a", "key-1", "hash-a", stored))

	// Same key, same hash: replay.
	resp, err = g.Check(ctx, "tenant-a", "key-1", "hash-a")
	require.NoError(t, err)
	assert.Equal(t, stored, resp)

	// Same key, different request: conflict.
	_, err = g.Check(ctx, "tenant-a", "key-1", "hash-b")
	assert.ErrorIs(t, err, store.ErrIdempotencyConflict)
}

func TestGuardIsTenantScoped(t *testing.T) {
	g := NewGuard(store.NewMemory())
	ctx := context.Background()

	require.NoError(t, g.Save(ctx, "tenant-a", "key-1", "hash-a", map[string]interface{}{"ok": true}))

	resp, err := g.Check(ctx, "tenant-b", "key-1", "hash-a")
	require.NoError(t, err)
	assert.Nil(t, resp, "another tenant's key must look fresh")
}
