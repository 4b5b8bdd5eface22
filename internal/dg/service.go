// Package dg validates dangerous goods declarations against IATA rules and
// routes failures to human review.
package dg

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/store"
)

var unNumberRe = regexp.MustCompile(`^UN\d+$`)

var validPackingGroups = map[string]bool{"I": true, "II": true, "III": true}

// failedCheckConfidence is recorded on the review task opened for a failed
// declaration.
const failedCheckConfidence = 0.4

type Declaration struct {
	UNNumber     string `json:"un_number"`
	PackingGroup string `json:"packing_group"`
	ProperName   string `json:"proper_shipping_name"`
}

type ValidationOutcome struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate checks UN number format and packing group.
func Validate(d Declaration) ValidationOutcome {
	var errs []string
	if !unNumberRe.MatchString(d.UNNumber) {
		errs = append(errs, fmt.Sprintf("UN number %q must match UN followed by digits", d.UNNumber))
	}
	if !validPackingGroups[d.PackingGroup] {
		errs = append(errs, fmt.Sprintf("packing group %q must be I, II or III", d.PackingGroup))
	}
	return ValidationOutcome{Valid: len(errs) == 0, Errors: errs}
}

// ReviewQueuer opens a review task; satisfied by the review service.
type ReviewQueuer interface {
	QueueLowConfidenceReview(ctx context.Context, st store.Store, tenantID, documentID string, confidence float64, source, reason string) (*store.ReviewTask, error)
}

type Service struct {
	store   store.Store
	audit   *audit.Recorder
	reviews ReviewQueuer
	logger  *log.Logger
}

func NewService(st store.Store, rec *audit.Recorder, reviews ReviewQueuer) *Service {
	return &Service{
		store:   st,
		audit:   rec,
		reviews: reviews,
		logger:  log.New(log.Writer(), "[DG] ", log.LstdFlags),
	}
}

// CheckDeclaration records a compliance check for the declaration and, on
// failure, opens a review task against the source document.
func (s *Service) CheckDeclaration(ctx context.Context, tenantID, actor, documentID string, d Declaration) (*store.ComplianceCheck, *store.ReviewTask, error) {
	outcome := Validate(d)
	now := time.Now().UTC()

	check := &store.ComplianceCheck{
		ID:          store.NewID("chk"),
		TenantID:    tenantID,
		SubjectType: "document",
		SubjectID:   documentID,
		CheckType:   "dg.declaration",
		Passed:      outcome.Valid,
		Details: map[string]interface{}{
			"un_number":     d.UNNumber,
			"packing_group": d.PackingGroup,
			"errors":        outcome.Errors,
		},
		CreatedAt: now,
	}

	var task *store.ReviewTask
	err := s.store.RunInTransaction(ctx, func(st store.Store) error {
		if err := st.CreateComplianceCheck(ctx, check); err != nil {
			return err
		}
		if err := s.audit.WithStore(st).Record(ctx, tenantID, actor, "dg.declaration_checked", "document", documentID, map[string]interface{}{
			"passed": outcome.Valid,
		}); err != nil {
			return err
		}
		if !outcome.Valid && documentID != "" {
			var err error
			task, err = s.reviews.QueueLowConfidenceReview(ctx, st, tenantID, documentID,
				failedCheckConfidence, "dg", "dangerous goods declaration failed validation")
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if !outcome.Valid {
		s.logger.Printf("⚠️  DG declaration failed for document %s: %v", documentID, outcome.Errors)
	}
	return check, task, nil
}
