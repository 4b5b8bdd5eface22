// Package audit records an append-only trail of state-changing operations.
// Every write path in the platform appends exactly one event.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/nexuscargo/backend/internal/store"
)

type Recorder struct {
	store  store.Store
	logger *log.Logger
}

func NewRecorder(s store.Store) *Recorder {
	return &Recorder{
		store:  s,
		logger: log.New(log.Writer(), "[AUDIT] ", log.LstdFlags),
	}
}

// Record appends one audit event. Failures are surfaced to the caller: an
// operation whose audit row cannot be written must not commit.
func (r *Recorder) Record(ctx context.Context, tenantID, actor, action, entityType, entityID string, payload map[string]interface{}) error {
	e := &store.AuditEvent{
		ID:         store.NewID("aud"),
		TenantID:   tenantID,
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.store.AppendAudit(ctx, e); err != nil {
		r.logger.Printf("❌ Audit append failed: %s %s/%s: %v", action, entityType, entityID, err)
		return err
	}
	return nil
}

// WithStore returns a Recorder bound to a different store, typically the
// transactional store inside RunInTransaction.
func (r *Recorder) WithStore(s store.Store) *Recorder {
	return &Recorder{store: s, logger: r.logger}
}

// List returns the newest events for a tenant.
func (r *Recorder) List(ctx context.Context, tenantID string, limit int) ([]*store.AuditEvent, error) {
	return r.store.ListAudit(ctx, tenantID, limit)
}
