// Package aviqm handles automotive vehicle import quarantine management:
// VIN decoding, BMSB seasonal risk, and permit expiry alerts.
package aviqm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/store"
)

// ErrInvalidVIN rejects VINs that are not 17 characters.
var ErrInvalidVIN = fmt.Errorf("VIN must be 17 characters")

// permitExpiryWindow is how close to expiry a permit raises an alert.
const permitExpiryWindow = 30 * 24 * time.Hour

// bmsbRiskMonths is the brown marmorated stink bug season (September
// through April).
var bmsbRiskMonths = map[time.Month]bool{
	time.September: true, time.October: true, time.November: true, time.December: true,
	time.January: true, time.February: true, time.March: true, time.April: true,
}

type VIN struct {
	WMI string `json:"wmi"`
	VDS string `json:"vds"`
	VIS string `json:"vis"`
}

// DecodeVIN splits a 17-character VIN into its sections.
func DecodeVIN(vin string) (VIN, error) {
	if len(vin) != 17 {
		return VIN{}, ErrInvalidVIN
	}
	return VIN{WMI: vin[0:3], VDS: vin[3:9], VIS: vin[9:17]}, nil
}

// BMSBRisk reports whether an arrival date falls in stink bug season.
func BMSBRisk(arrival time.Time) bool {
	return bmsbRiskMonths[arrival.Month()]
}

type CaseInput struct {
	VIN          string     `json:"vin"`
	ArrivalDate  *time.Time `json:"arrival_date,omitempty"`
	PermitExpiry *time.Time `json:"permit_expiry,omitempty"`
}

type Service struct {
	store  store.Store
	audit  *audit.Recorder
	logger *log.Logger
}

func NewService(st store.Store, rec *audit.Recorder) *Service {
	return &Service{
		store:  st,
		audit:  rec,
		logger: log.New(log.Writer(), "[AVIQM] ", log.LstdFlags),
	}
}

// CreateCase decodes the VIN, records the BMSB compliance check, and
// raises a high-severity alert when the import permit expires within 30
// days.
func (s *Service) CreateCase(ctx context.Context, tenantID, actor string, in CaseInput) (*store.VehicleCase, error) {
	vin, err := DecodeVIN(in.VIN)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	risk := false
	if in.ArrivalDate != nil {
		risk = BMSBRisk(*in.ArrivalDate)
	}

	c := &store.VehicleCase{
		ID:           store.NewID("veh"),
		TenantID:     tenantID,
		VIN:          in.VIN,
		WMI:          vin.WMI,
		VDS:          vin.VDS,
		VIS:          vin.VIS,
		ArrivalDate:  in.ArrivalDate,
		BMSBRisk:     risk,
		PermitExpiry: in.PermitExpiry,
		Status:       "open",
		CreatedAt:    now,
	}

	err = s.store.RunInTransaction(ctx, func(st store.Store) error {
		if err := st.CreateVehicleCase(ctx, c); err != nil {
			return err
		}
		if err := st.CreateComplianceCheck(ctx, &store.ComplianceCheck{
			ID:          store.NewID("chk"),
			TenantID:    tenantID,
			SubjectType: "vehicle_case",
			SubjectID:   c.ID,
			CheckType:   "aviqm.bmsb_season",
			Passed:      !risk,
			Details:     map[string]interface{}{"bmsb_risk": risk},
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if in.PermitExpiry != nil && in.PermitExpiry.Sub(now) < permitExpiryWindow {
			if err := st.CreateAlert(ctx, &store.Alert{
				ID:         store.NewID("alr"),
				TenantID:   tenantID,
				Severity:   "high",
				Message:    fmt.Sprintf("import permit for VIN %s expires %s", in.VIN, in.PermitExpiry.Format("2006-01-02")),
				EntityType: "vehicle_case",
				EntityID:   c.ID,
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}
		return s.audit.WithStore(st).Record(ctx, tenantID, actor, "aviqm.case_created", "vehicle_case", c.ID, map[string]interface{}{
			"vin":       in.VIN,
			"bmsb_risk": risk,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("Created vehicle case %s (VIN=%s bmsb=%t)", c.ID, in.VIN, risk)
	return c, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*store.VehicleCase, error) {
	return s.store.GetVehicleCase(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string, limit int) ([]*store.VehicleCase, error) {
	return s.store.ListVehicleCases(ctx, tenantID, limit)
}

func (s *Service) ListAlerts(ctx context.Context, tenantID string, limit int) ([]*store.Alert, error) {
	return s.store.ListAlerts(ctx, tenantID, limit)
}
