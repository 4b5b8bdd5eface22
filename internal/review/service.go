// Package review manages human-in-the-loop review tasks. At most one open
// task exists per (tenant, document); queueing is idempotent.
package review

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/store"
)

// ErrAlreadyCompleted is returned when completing a task in a terminal state.
var ErrAlreadyCompleted = fmt.Errorf("review task already completed")

// Correction is one reviewer-supplied field fix submitted with completion.
type Correction struct {
	FieldName string `json:"field_name"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
	ReasonTag string `json:"reason_tag"`
}

type Service struct {
	store  store.Store
	bus    events.Publisher
	audit  *audit.Recorder
	logger *log.Logger
}

func NewService(s store.Store, bus events.Publisher, rec *audit.Recorder) *Service {
	return &Service{
		store:  s,
		bus:    bus,
		audit:  rec,
		logger: log.New(log.Writer(), "[REVIEW] ", log.LstdFlags),
	}
}

// QueueLowConfidenceReview opens a review task for the document unless one
// is already open, in which case the existing task is returned unchanged.
// Source names the subsystem that queued the task.
func (s *Service) QueueLowConfidenceReview(ctx context.Context, st store.Store, tenantID, documentID string, confidence float64, source, reason string) (*store.ReviewTask, error) {
	if st == nil {
		st = s.store
	}

	existing, err := st.GetOpenReviewTask(ctx, tenantID, documentID)
	if err == nil {
		return existing, nil
	}
	if err != store.ErrNotFound {
		return nil, err
	}

	task := &store.ReviewTask{
		ID:         store.NewID("rvw"),
		TenantID:   tenantID,
		DocumentID: documentID,
		Status:     store.ReviewStatusOpen,
		Source:     source,
		Reason:     reason,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}
	if err := st.CreateReviewTask(ctx, task); err != nil {
		// Concurrent queue for the same document; return the winner.
		if err == store.ErrDuplicate {
			return st.GetOpenReviewTask(ctx, tenantID, documentID)
		}
		return nil, err
	}
	if err := s.audit.WithStore(st).Record(ctx, tenantID, "system", "review.task_opened", "review_task", task.ID, map[string]interface{}{
		"document_id": documentID,
		"source":      source,
		"confidence":  confidence,
	}); err != nil {
		return nil, err
	}

	s.bus.Publish(events.TopicReviewRequired, map[string]interface{}{
		"tenant_id":   tenantID,
		"document_id": documentID,
		"task_id":     task.ID,
		"confidence":  confidence,
		"reason":      reason,
	}, nil)

	s.logger.Printf("Queued review %s for document %s (confidence=%.2f)", task.ID, documentID, confidence)
	return task, nil
}

// CompleteReview closes an open task as approved or rejected and persists
// the reviewer's corrections. A task in a terminal state cannot be
// completed again; a task in another tenant is not found.
func (s *Service) CompleteReview(ctx context.Context, tenantID, actor, taskID string, approved bool, corrections []Correction) (*store.ReviewTask, []*store.Correction, error) {
	var task *store.ReviewTask
	var rows []*store.Correction
	err := s.store.RunInTransaction(ctx, func(st store.Store) error {
		var err error
		task, err = st.GetReviewTask(ctx, tenantID, taskID)
		if err != nil {
			return err
		}
		if task.Status != store.ReviewStatusOpen {
			return ErrAlreadyCompleted
		}

		now := time.Now().UTC()
		task.Status = store.ReviewStatusRejected
		if approved {
			task.Status = store.ReviewStatusApproved
		}
		task.CompletedAt = &now
		if err := st.UpdateReviewTask(ctx, task); err != nil {
			return err
		}

		rows = rows[:0]
		for _, c := range corrections {
			rows = append(rows, &store.Correction{
				ID:           store.NewID("cor"),
				TenantID:     tenantID,
				ReviewTaskID: task.ID,
				FieldName:    c.FieldName,
				OldValue:     c.OldValue,
				NewValue:     c.NewValue,
				ReasonTag:    c.ReasonTag,
				CorrectedBy:  actor,
				CreatedAt:    now,
			})
		}
		if len(rows) > 0 {
			if err := st.CreateCorrections(ctx, rows); err != nil {
				return err
			}
		}

		return s.audit.WithStore(st).Record(ctx, tenantID, actor, "review.task_completed", "review_task", task.ID, map[string]interface{}{
			"document_id": task.DocumentID,
			"approved":    approved,
			"corrections": len(rows),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	s.bus.Publish(events.TopicReviewCompleted, map[string]interface{}{
		"tenant_id":   tenantID,
		"document_id": task.DocumentID,
		"task_id":     task.ID,
		"approved":    approved,
		"corrections": corrections,
	}, nil)

	s.logger.Printf("✅ Completed review %s for document %s (%s)", task.ID, task.DocumentID, task.Status)
	return task, rows, nil
}

// List returns tasks for a tenant, optionally filtered by status.
func (s *Service) List(ctx context.Context, tenantID, status string, limit int) ([]*store.ReviewTask, error) {
	return s.store.ListReviewTasks(ctx, tenantID, status, limit)
}
