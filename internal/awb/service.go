package awb

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/store"
)

// ErrInvalidShipment rejects submission of a waybill that fails validation.
var ErrInvalidShipment = fmt.Errorf("shipment failed validation")

type Service struct {
	store    store.Store
	audit    *audit.Recorder
	adapters map[string]CarrierAdapter
	logger   *log.Logger
}

func NewService(st store.Store, rec *audit.Recorder, adapters map[string]CarrierAdapter) *Service {
	if adapters == nil {
		adapters = map[string]CarrierAdapter{}
	}
	return &Service{
		store:    st,
		audit:    rec,
		adapters: adapters,
		logger:   log.New(log.Writer(), "[AWB] ", log.LstdFlags),
	}
}

// Submit validates the shipment, pushes it to the carrier system, and
// records the submission. Unknown carriers go through the mock adapter.
func (s *Service) Submit(ctx context.Context, tenantID, actor string, shipment Shipment) (*store.AWBSubmission, error) {
	if outcome := Validate(shipment); !outcome.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShipment, outcome.Messages)
	}

	adapter, ok := s.adapters[shipment.Carrier]
	if !ok {
		adapter = &MockCarrierAdapter{}
	}

	status, err := adapter.Submit(ctx, shipment)
	if err != nil {
		return nil, err
	}

	sub := &store.AWBSubmission{
		ID:        store.NewID("awb"),
		TenantID:  tenantID,
		AWBNumber: shipment.AWBNumber,
		Carrier:   shipment.Carrier,
		Shipper:   shipment.Shipper,
		Consignee: shipment.Consignee,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	err = s.store.RunInTransaction(ctx, func(st store.Store) error {
		if err := st.CreateAWBSubmission(ctx, sub); err != nil {
			return err
		}
		return s.audit.WithStore(st).Record(ctx, tenantID, actor, "awb.submitted", "awb_submission", sub.ID, map[string]interface{}{
			"awb_number": sub.AWBNumber,
			"carrier":    sub.Carrier,
			"status":     status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("✅ Submitted AWB %s via %s (%s)", shipment.AWBNumber, shipment.Carrier, status)
	return sub, nil
}

// AutocompleteParties suggests shipper/consignee names seen in prior
// submissions for the tenant.
func (s *Service) AutocompleteParties(ctx context.Context, tenantID, prefix string, limit int) ([]string, error) {
	return s.store.ListKnownParties(ctx, tenantID, prefix, limit)
}

// ListSubmissions returns recent submissions for a tenant.
func (s *Service) ListSubmissions(ctx context.Context, tenantID string, limit int) ([]*store.AWBSubmission, error) {
	return s.store.ListAWBSubmissions(ctx, tenantID, limit)
}
