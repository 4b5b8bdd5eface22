package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuscargo/backend/internal/store"
)

func newAuth(t *testing.T) *Service {
	t.Helper()
	return NewService(store.NewMemory(), []byte("unit-test-secret"), 15*time.Minute, 24*time.Hour)
}

func TestBootstrapIssuesVerifiablePair(t *testing.T) {
	svc := newAuth(t)

	pair, err := svc.Bootstrap(context.Background(), "tenant-a", "Acme Freight", "ops@acme.test", "admin")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int((15 * time.Minute).Seconds()), pair.ExpiresIn)

	claims, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", claims.TenantID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "access", claims.Kind)
	assert.NotEmpty(t, claims.Subject)
}

func TestRefreshRotates(t *testing.T) {
	svc := newAuth(t)
	ctx := context.Background()

	pair, err := svc.Bootstrap(ctx, "tenant-a", "Acme", "ops@acme.test", "")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The presented token was revoked by the rotation.
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// The rotated token still works.
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.NoError(t, err)
}

func TestAccessTokenIsNotARefreshToken(t *testing.T) {
	svc := newAuth(t)
	ctx := context.Background()

	pair, err := svc.Bootstrap(ctx, "tenant-a", "Acme", "ops@acme.test", "")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevoke(t *testing.T) {
	svc := newAuth(t)
	ctx := context.Background()

	pair, err := svc.Bootstrap(ctx, "tenant-a", "Acme", "ops@acme.test", "")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken))
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestForeignSignatureRejected(t *testing.T) {
	issuer := NewService(store.NewMemory(), []byte("other-secret"), time.Minute, time.Hour)
	pair, err := issuer.Bootstrap(context.Background(), "tenant-a", "Acme", "ops@acme.test", "")
	require.NoError(t, err)

	svc := newAuth(t)
	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
