// Package analytics aggregates operational metrics per tenant and feeds
// extraction corrections back into model training.
package analytics

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/nexuscargo/backend/internal/store"
)

type Overview struct {
	TenantID        string  `json:"tenant_id"`
	Documents       int     `json:"documents"`
	OpenReviews     int     `json:"open_reviews"`
	Discrepancies   int     `json:"discrepancies"`
	DiscrepancyRate float64 `json:"discrepancy_rate"`
	GeneratedAt     string  `json:"generated_at"`
}

type Service struct {
	store  store.Store
	curdir string
	logger *log.Logger
}

func NewService(st store.Store, activeLearningDir string) *Service {
	return &Service{
		store:  st,
		curdir: activeLearningDir,
		logger: log.New(log.Writer(), "[ANALYTICS] ", log.LstdFlags),
	}
}

// TenantOverview computes the dashboard counters in one pass.
func (s *Service) TenantOverview(ctx context.Context, tenantID string) (*Overview, error) {
	docs, err := s.store.CountDocuments(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	openReviews, err := s.store.CountReviewTasks(ctx, tenantID, store.ReviewStatusOpen)
	if err != nil {
		return nil, err
	}
	total, mismatched, err := s.store.DiscrepancyStats(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(mismatched)/float64(total)*10000) / 10000
	}
	return &Overview{
		TenantID:        tenantID,
		Documents:       docs,
		OpenReviews:     openReviews,
		Discrepancies:   total,
		DiscrepancyRate: rate,
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// RegisterModel records a new model version in the registry.
func (s *Service) RegisterModel(ctx context.Context, name, version string, activate bool) (*store.ModelVersion, error) {
	m := &store.ModelVersion{
		ID:        store.NewID("mdl"),
		Name:      name,
		Version:   version,
		Active:    activate,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.RegisterModelVersion(ctx, m); err != nil {
		return nil, err
	}
	if activate {
		if err := s.store.ActivateModelVersion(ctx, name, version); err != nil {
			return nil, err
		}
	}
	s.logger.Printf("Registered model %s@%s (active=%t)", name, version, activate)
	return m, nil
}

// ListModels returns the registry entries for a model name.
func (s *Service) ListModels(ctx context.Context, name string) ([]*store.ModelVersion, error) {
	return s.store.ListModelVersions(ctx, name)
}

// RollbackModel re-activates a previously registered version.
func (s *Service) RollbackModel(ctx context.Context, name, version string) error {
	versions, err := s.store.ListModelVersions(ctx, name)
	if err != nil {
		return err
	}
	found := false
	for _, v := range versions {
		if v.Version == version {
			found = true
			break
		}
	}
	if !found {
		return store.ErrNotFound
	}
	if err := s.store.ActivateModelVersion(ctx, name, version); err != nil {
		return err
	}
	s.logger.Printf("⚠️  Rolled back model %s to %s", name, version)
	return nil
}
