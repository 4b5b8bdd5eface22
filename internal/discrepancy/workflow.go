package discrepancy

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/store"
)

// ErrInvalidTransition is returned for dispute/resolve calls on a case not
// in the required state.
var ErrInvalidTransition = fmt.Errorf("invalid case state transition")

type Workflow struct {
	store  store.Store
	bus    events.Publisher
	audit  *audit.Recorder
	logger *log.Logger
}

func NewWorkflow(s store.Store, bus events.Publisher, rec *audit.Recorder) *Workflow {
	return &Workflow{
		store:  s,
		bus:    bus,
		audit:  rec,
		logger: log.New(log.Writer(), "[DISCREPANCY] ", log.LstdFlags),
	}
}

type CaseInput struct {
	AWBNumber  string `json:"awb_number"`
	DocumentID string `json:"document_id"`
	ScoreInput
}

// CreateCase scores the input, persists a case, and publishes
// discrepancy.detected. The event always fires so downstream consumers see
// every comparison; the mismatch flag in the payload carries the verdict.
func (w *Workflow) CreateCase(ctx context.Context, tenantID, actor string, in CaseInput) (*store.DiscrepancyCase, error) {
	assessment := Score(in.ScoreInput)
	now := time.Now().UTC()

	c := &store.DiscrepancyCase{
		ID:             store.NewID("dsc"),
		TenantID:       tenantID,
		AWBNumber:      in.AWBNumber,
		DocumentID:     in.DocumentID,
		DeclaredWeight: in.DeclaredWeight,
		ActualWeight:   in.ActualWeight,
		DeclaredValue:  in.DeclaredValue,
		AssessedValue:  in.AssessedValue,
		WeightDelta:    assessment.WeightDelta,
		ValueDelta:     assessment.ValueDelta,
		AnomalyScore:   assessment.AnomalyScore,
		RiskLevel:      assessment.RiskLevel,
		Mismatch:       assessment.Mismatch,
		Status:         store.DiscrepancyStatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := w.store.RunInTransaction(ctx, func(st store.Store) error {
		if err := st.CreateDiscrepancyCase(ctx, c); err != nil {
			return err
		}
		return w.audit.WithStore(st).Record(ctx, tenantID, actor, "discrepancy.case_created", "discrepancy_case", c.ID, map[string]interface{}{
			"anomaly_score": c.AnomalyScore,
			"risk_level":    c.RiskLevel,
			"mismatch":      c.Mismatch,
		})
	})
	if err != nil {
		return nil, err
	}

	w.bus.Publish(events.TopicDiscrepancyDetected, map[string]interface{}{
		"tenant_id":     tenantID,
		"case_id":       c.ID,
		"awb_number":    c.AWBNumber,
		"anomaly_score": c.AnomalyScore,
		"risk_level":    c.RiskLevel,
		"mismatch":      c.Mismatch,
	}, nil)
	if c.Mismatch {
		w.logger.Printf("⚠️  Discrepancy %s detected (score=%.4f risk=%s)", c.ID, c.AnomalyScore, c.RiskLevel)
	}
	return c, nil
}

// OpenDispute moves an open case to in_dispute and opens the backing
// dispute record. A case already disputed or resolved is rejected.
func (w *Workflow) OpenDispute(ctx context.Context, tenantID, actor, caseID string) (*store.DiscrepancyCase, *store.Dispute, error) {
	var outCase *store.DiscrepancyCase
	var outDispute *store.Dispute
	err := w.store.RunInTransaction(ctx, func(st store.Store) error {
		c, err := st.GetDiscrepancyCase(ctx, tenantID, caseID)
		if err != nil {
			return err
		}
		if c.Status != store.DiscrepancyStatusOpen {
			return ErrInvalidTransition
		}
		c.Status = store.DiscrepancyStatusInDispute
		if err := st.UpdateDiscrepancyCase(ctx, c); err != nil {
			return err
		}
		d := &store.Dispute{
			ID:            store.NewID("dsp"),
			TenantID:      tenantID,
			DiscrepancyID: c.ID,
			Status:        store.DisputeStatusOpen,
			OpenedBy:      actor,
			OpenedAt:      time.Now().UTC(),
		}
		if err := st.CreateDispute(ctx, d); err != nil {
			return err
		}
		if err := w.audit.WithStore(st).Record(ctx, tenantID, actor, "discrepancy.dispute_opened", "dispute", d.ID, map[string]interface{}{
			"case_id": c.ID,
		}); err != nil {
			return err
		}
		outCase, outDispute = c, d
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	w.publishDisputeUpdate(tenantID, outCase)
	return outCase, outDispute, nil
}

// Resolve closes a case from either open or in_dispute, resolving the
// active dispute when one exists.
func (w *Workflow) Resolve(ctx context.Context, tenantID, actor, caseID, notes string) (*store.DiscrepancyCase, error) {
	var out *store.DiscrepancyCase
	err := w.store.RunInTransaction(ctx, func(st store.Store) error {
		c, err := st.GetDiscrepancyCase(ctx, tenantID, caseID)
		if err != nil {
			return err
		}
		if c.Status == store.DiscrepancyStatusResolved {
			return ErrInvalidTransition
		}
		c.Status = store.DiscrepancyStatusResolved
		if err := st.UpdateDiscrepancyCase(ctx, c); err != nil {
			return err
		}
		if d, err := st.GetActiveDispute(ctx, tenantID, c.ID); err == nil {
			now := time.Now().UTC()
			d.Status = store.DisputeStatusResolved
			d.ResolutionNotes = notes
			d.ResolvedAt = &now
			if err := st.UpdateDispute(ctx, d); err != nil {
				return err
			}
		} else if err != store.ErrNotFound {
			return err
		}
		if err := w.audit.WithStore(st).Record(ctx, tenantID, actor, "discrepancy.resolved", "discrepancy_case", c.ID, nil); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.publishDisputeUpdate(tenantID, out)
	return out, nil
}

func (w *Workflow) publishDisputeUpdate(tenantID string, c *store.DiscrepancyCase) {
	w.bus.Publish(events.TopicInvoiceDisputeUpdated, map[string]interface{}{
		"tenant_id": tenantID,
		"case_id":   c.ID,
		"status":    c.Status,
	}, nil)
}

// Get and List expose cases to the API layer.
func (w *Workflow) Get(ctx context.Context, tenantID, id string) (*store.DiscrepancyCase, error) {
	return w.store.GetDiscrepancyCase(ctx, tenantID, id)
}

func (w *Workflow) List(ctx context.Context, tenantID string, limit int) ([]*store.DiscrepancyCase, error) {
	return w.store.ListDiscrepancyCases(ctx, tenantID, limit)
}
