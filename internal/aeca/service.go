// Package aeca implements Australian export compliance: export case
// creation, validation, and submission to the ABF Integrated Cargo System.
package aeca

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/integrations"
	"github.com/nexuscargo/backend/internal/store"
)

// ErrInvalidExport rejects submission of a case that fails validation.
var ErrInvalidExport = fmt.Errorf("export case failed validation")

var (
	countryRe = regexp.MustCompile(`^[A-Z]{2}$`)
	hsCodeRe  = regexp.MustCompile(`^\d+$`)
)

var restrictedDestinations = map[string]bool{
	"IR": true,
	"KP": true,
	"SY": true,
}

// acceptedSubmissionStatuses are ICS responses that count as success.
var acceptedSubmissionStatuses = map[string]bool{
	"submitted": true,
	"accepted":  true,
	"queued":    true,
}

type Declaration struct {
	Reference          string `json:"reference"`
	DestinationCountry string `json:"destination_country"`
	HSCode             string `json:"hs_code"`
}

type ValidationOutcome struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateDeclaration checks the declaration fields against export rules.
func ValidateDeclaration(d Declaration) ValidationOutcome {
	var errs []string
	dest := strings.ToUpper(d.DestinationCountry)
	if !countryRe.MatchString(dest) {
		errs = append(errs, "destination_country must be a two-letter country code")
	} else if restrictedDestinations[dest] {
		errs = append(errs, fmt.Sprintf("destination %s is on the restricted list", dest))
	}
	if !hsCodeRe.MatchString(d.HSCode) || (len(d.HSCode) != 6 && len(d.HSCode) != 8 && len(d.HSCode) != 10) {
		errs = append(errs, "hs_code must be 6, 8 or 10 digits")
	}
	return ValidationOutcome{Valid: len(errs) == 0, Errors: errs}
}

// CustomsAdapter lodges a declaration with the customs system.
type CustomsAdapter interface {
	Lodge(ctx context.Context, d Declaration) (submissionID, status string, err error)
}

type MockCustomsAdapter struct {
	Status string
}

func (m *MockCustomsAdapter) Lodge(ctx context.Context, d Declaration) (string, string, error) {
	status := m.Status
	if status == "" {
		status = "submitted"
	}
	return store.NewID("ics"), status, nil
}

// HTTPCustomsAdapter lodges through the shared JSON adapter.
type HTTPCustomsAdapter struct {
	Client *integrations.JSONHTTPAdapter
}

func (h *HTTPCustomsAdapter) Lodge(ctx context.Context, d Declaration) (string, string, error) {
	resp, err := h.Client.Post(ctx, "/ics/declarations", d)
	if err != nil {
		return "", "", err
	}
	status, _ := resp["status"].(string)
	status = strings.ToLower(status)
	submissionID, _ := resp["submission_id"].(string)
	if !acceptedSubmissionStatuses[status] {
		return submissionID, status, &integrations.IntegrationError{
			Op: "ics-lodge", Msg: fmt.Sprintf("customs rejected declaration %s with status %q", d.Reference, status),
		}
	}
	return submissionID, status, nil
}

type Service struct {
	store   store.Store
	bus     events.Publisher
	audit   *audit.Recorder
	customs CustomsAdapter
	logger  *log.Logger
}

func NewService(st store.Store, bus events.Publisher, rec *audit.Recorder, customs CustomsAdapter) *Service {
	if customs == nil {
		customs = &MockCustomsAdapter{}
	}
	return &Service{
		store:   st,
		bus:     bus,
		audit:   rec,
		customs: customs,
		logger:  log.New(log.Writer(), "[AECA] ", log.LstdFlags),
	}
}

// CreateCase validates the declaration, records a compliance check, and
// opens a draft export case. Validation failures still create the
// compliance check row but no case.
func (s *Service) CreateCase(ctx context.Context, tenantID, actor string, d Declaration) (*store.ExportCase, error) {
	outcome := ValidateDeclaration(d)

	now := time.Now().UTC()
	c := &store.ExportCase{
		ID:                 store.NewID("exp"),
		TenantID:           tenantID,
		Reference:          d.Reference,
		DestinationCountry: strings.ToUpper(d.DestinationCountry),
		HSCode:             d.HSCode,
		Status:             store.ExportStatusDraft,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.store.RunInTransaction(ctx, func(st store.Store) error {
		if err := st.CreateComplianceCheck(ctx, &store.ComplianceCheck{
			ID:          store.NewID("chk"),
			TenantID:    tenantID,
			SubjectType: "export_case",
			SubjectID:   c.ID,
			CheckType:   "aeca.declaration",
			Passed:      outcome.Valid,
			Details:     map[string]interface{}{"errors": outcome.Errors},
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if !outcome.Valid {
			return fmt.Errorf("%w: %v", ErrInvalidExport, outcome.Errors)
		}
		if err := st.CreateExportCase(ctx, c); err != nil {
			return err
		}
		return s.audit.WithStore(st).Record(ctx, tenantID, actor, "aeca.case_created", "export_case", c.ID, map[string]interface{}{
			"reference":   d.Reference,
			"destination": c.DestinationCountry,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("Created export case %s (%s → %s)", c.ID, d.Reference, c.DestinationCountry)
	return c, nil
}

// SubmitCase lodges a draft case with customs and publishes the status
// change.
func (s *Service) SubmitCase(ctx context.Context, tenantID, actor, caseID string) (*store.ExportCase, error) {
	c, err := s.store.GetExportCase(ctx, tenantID, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != store.ExportStatusDraft {
		return nil, fmt.Errorf("export case %s is not in draft", caseID)
	}

	submissionID, status, err := s.customs.Lodge(ctx, Declaration{
		Reference:          c.Reference,
		DestinationCountry: c.DestinationCountry,
		HSCode:             c.HSCode,
	})
	if err != nil {
		return nil, err
	}

	c.Status = status
	c.SubmissionID = submissionID
	err = s.store.RunInTransaction(ctx, func(st store.Store) error {
		if err := st.UpdateExportCase(ctx, c); err != nil {
			return err
		}
		return s.audit.WithStore(st).Record(ctx, tenantID, actor, "aeca.case_submitted", "export_case", c.ID, map[string]interface{}{
			"submission_id": submissionID,
			"status":        status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.TopicExportSubmissionUpdated, map[string]interface{}{
		"tenant_id":     tenantID,
		"case_id":       c.ID,
		"submission_id": submissionID,
		"status":        status,
	}, nil)

	s.logger.Printf("✅ Submitted export case %s (%s)", c.ID, status)
	return c, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*store.ExportCase, error) {
	return s.store.GetExportCase(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string, limit int) ([]*store.ExportCase, error) {
	return s.store.ListExportCases(ctx, tenantID, limit)
}
