// Package validation runs rule packs over extracted fields and persists the
// per-rule outcomes.
package validation

import (
	"context"
	"log"
	"time"

	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/rules"
	"github.com/nexuscargo/backend/internal/store"
)

type Service struct {
	engine      *rules.Engine
	bus         events.Publisher
	packID      string
	packVersion string
	logger      *log.Logger
}

func NewService(engine *rules.Engine, bus events.Publisher, packID, packVersion string) *Service {
	return &Service{
		engine:      engine,
		bus:         bus,
		packID:      packID,
		packVersion: packVersion,
		logger:      log.New(log.Writer(), "[VALIDATE] ", log.LstdFlags),
	}
}

// ValidateDocument evaluates the configured pack against the fields,
// persists one row per rule outcome, and publishes document.validated.
// Returns the rows and whether every rule passed. A rule failure is data,
// not an error; the error return covers persistence only.
func (s *Service) ValidateDocument(ctx context.Context, st store.Store, doc *store.Document, fields map[string]interface{}) ([]*store.ValidationResult, bool, error) {
	results, pack := s.engine.Evaluate(s.packID, s.packVersion, doc.DocType, fields)

	now := time.Now().UTC()
	rows := make([]*store.ValidationResult, 0, len(results))
	allPassed := true
	var failedCodes []string
	for _, r := range results {
		code := rules.QualifiedCode(r.Code, pack)
		rows = append(rows, &store.ValidationResult{
			ID:         store.NewID("val"),
			TenantID:   doc.TenantID,
			DocumentID: doc.ID,
			RuleCode:   code,
			Passed:     r.Passed,
			Severity:   r.Severity,
			Message:    r.Message,
			CreatedAt:  now,
		})
		if !r.Passed {
			allPassed = false
			failedCodes = append(failedCodes, code)
		}
	}

	if err := st.SaveValidationResults(ctx, rows); err != nil {
		return nil, false, err
	}

	s.bus.Publish(events.TopicDocumentValidated, map[string]interface{}{
		"tenant_id":    doc.TenantID,
		"document_id":  doc.ID,
		"passed":       allPassed,
		"failed_rules": failedCodes,
		"rule_pack":    pack.Key(),
	}, nil)

	if !allPassed {
		s.logger.Printf("Document %s failed rules %v", doc.ID, failedCodes)
	}
	return rows, allPassed, nil
}
