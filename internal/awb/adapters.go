package awb

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexuscargo/backend/internal/integrations"
)

// Supported carrier systems.
const (
	CarrierCHAMP     = "champ"
	CarrierIBSiCargo = "ibs-icargo"
	CarrierCargoWise = "cargowise"
)

// acceptedStatuses are the partner responses that count as a successful
// submission.
var acceptedStatuses = map[string]bool{
	"accepted": true,
	"queued":   true,
	"received": true,
}

// CarrierAdapter submits a waybill to a carrier system and returns the
// partner-side status.
type CarrierAdapter interface {
	Submit(ctx context.Context, s Shipment) (string, error)
}

// MockCarrierAdapter accepts everything. Used in dev and tests.
type MockCarrierAdapter struct {
	Status string
}

func (m *MockCarrierAdapter) Submit(ctx context.Context, s Shipment) (string, error) {
	if m.Status != "" {
		return m.Status, nil
	}
	return "accepted", nil
}

// HTTPCarrierAdapter submits via the shared JSON adapter. Each carrier
// exposes a different path but the same envelope.
type HTTPCarrierAdapter struct {
	Carrier string
	Client  *integrations.JSONHTTPAdapter
}

func (h *HTTPCarrierAdapter) Submit(ctx context.Context, s Shipment) (string, error) {
	path := "/awb/submit"
	switch h.Carrier {
	case CarrierCHAMP:
		path = "/champ/v1/awb"
	case CarrierIBSiCargo:
		path = "/icargo/awb/create"
	case CarrierCargoWise:
		path = "/cargowise/shipments"
	}

	resp, err := h.Client.Post(ctx, path, s)
	if err != nil {
		return "", err
	}
	status, _ := resp["status"].(string)
	if !acceptedStatuses[strings.ToLower(status)] {
		return status, &integrations.IntegrationError{
			Op: h.Carrier, Msg: fmt.Sprintf("carrier rejected submission with status %q", status),
		}
	}
	return strings.ToLower(status), nil
}
