// Package idempotency memoises request outcomes per (tenant, key). A reused
// key with an identical request hash replays the stored response; a reused
// key with a different hash is a conflict.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/nexuscargo/backend/internal/store"
)

// HashRequest returns the hex SHA-256 of the RFC 8785 canonical form of v.
// Key order and whitespace in the incoming JSON never change the hash.
func HashRequest(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize request: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize returns the RFC 8785 canonical JSON encoding of v.
func Canonicalize(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return canonical, nil
}

type Guard struct {
	store store.Store
}

func NewGuard(s store.Store) *Guard {
	return &Guard{store: s}
}

// Check looks up a prior record for (tenant, key). Returns the stored
// response when the request hash matches, ErrIdempotencyConflict when it
// does not, and (nil, nil) when the key is new.
func (g *Guard) Check(ctx context.Context, tenantID, key, requestHash string) (map[string]interface{}, error) {
	rec, err := g.store.GetIdempotencyRecord(ctx, tenantID, key)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.RequestHash != requestHash {
		return nil, store.ErrIdempotencyConflict
	}
	return rec.Response, nil
}

// Save stores the response for replay.
func (g *Guard) Save(ctx context.Context, tenantID, key, requestHash string, response map[string]interface{}) error {
	return g.store.SaveIdempotencyRecord(ctx, &store.IdempotencyRecord{
		TenantID:    tenantID,
		Key:         key,
		RequestHash: requestHash,
		Response:    response,
		CreatedAt:   time.Now().UTC(),
	})
}
