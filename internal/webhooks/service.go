// Package webhooks implements the database-backed delivery queue. The
// webhook_deliveries table is the queue: dispatch enqueues rows, workers
// claim due rows and advance each through
// pending -> delivered | retry_scheduled | dead_lettered.
package webhooks

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/nexuscargo/backend/internal/idempotency"
	"github.com/nexuscargo/backend/internal/monitoring"
	"github.com/nexuscargo/backend/internal/store"
)

// DLQReasonSubscriptionGone marks deliveries dead-lettered because their
// subscription vanished or was deactivated after enqueue.
const DLQReasonSubscriptionGone = "subscription_missing_or_inactive"

// defaultSecretRef is where new subscriptions point for their signing key.
const defaultSecretRef = "secret-manager://webhook-signing-secret"

// maxBackoff caps the retry delay.
const maxBackoff = 300 * time.Second

// SecretResolver turns a secret reference into the signing secret.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type Stats struct {
	Processed    int `json:"processed"`
	Delivered    int `json:"delivered"`
	Retried      int `json:"retried"`
	DeadLettered int `json:"dead_lettered"`
}

type Service struct {
	store      store.Store
	secrets    SecretResolver
	client     *http.Client
	maxRetries int
	logger     *log.Logger
}

func NewService(st store.Store, secrets SecretResolver, maxRetries int, timeout time.Duration) *Service {
	if maxRetries < 1 {
		maxRetries = 5
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Service{
		store:      st,
		secrets:    secrets,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		logger:     log.New(log.Writer(), "[WEBHOOKS] ", log.LstdFlags),
	}
}

// CreateSubscription registers a webhook endpoint for a set of event types.
func (s *Service) CreateSubscription(ctx context.Context, tenantID, url string, eventTypes []string) (*store.WebhookSubscription, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if len(eventTypes) == 0 {
		return nil, fmt.Errorf("at least one event type is required")
	}
	sub := &store.WebhookSubscription{
		ID:         store.NewID("whs"),
		TenantID:   tenantID,
		URL:        url,
		EventTypes: eventTypes,
		SecretRef:  defaultSecretRef,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateWebhookSubscription(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Printf("📡 Registered webhook %s → %s (events: %v)", sub.ID, sub.URL, sub.EventTypes)
	return sub, nil
}

// DispatchEvent enqueues one delivery per matching active subscription.
// The idempotency key {sub}:{event}:{payload-hash} dedupes redispatches of
// the same payload; a duplicate enqueue is a no-op. Returns how many rows
// were actually created.
func (s *Service) DispatchEvent(ctx context.Context, tenantID, eventType string, payload map[string]interface{}) (int, error) {
	subs, err := s.store.SubscriptionsForEvent(ctx, tenantID, eventType)
	if err != nil {
		return 0, err
	}

	canonical, err := idempotency.Canonicalize(payload)
	if err != nil {
		return 0, fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	payloadHash := hex.EncodeToString(sum[:])

	created := 0
	now := time.Now().UTC()
	for _, sub := range subs {
		d := &store.WebhookDelivery{
			ID:             store.NewID("whd"),
			TenantID:       tenantID,
			SubscriptionID: sub.ID,
			EventType:      eventType,
			Payload:        payload,
			IdempotencyKey: fmt.Sprintf("%s:%s:%s", sub.ID, eventType, payloadHash),
			Status:         store.DeliveryStatusPending,
			NextAttemptAt:  now,
			CreatedAt:      now,
		}
		ok, err := s.store.EnqueueDelivery(ctx, d)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		s.logger.Printf("Enqueued %d deliveries for %s (%s)", created, eventType, tenantID)
	}
	return created, nil
}

// ProcessDeliveryQueue claims one batch of due deliveries and attempts each.
func (s *Service) ProcessDeliveryQueue(ctx context.Context, batchSize int) (Stats, error) {
	var stats Stats
	due, err := s.store.ClaimDueDeliveries(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return stats, err
	}
	monitoring.WebhookQueueDepth.Set(float64(len(due)))
	for _, d := range due {
		stats.Processed++
		switch s.attemptDelivery(ctx, d) {
		case store.DeliveryStatusDelivered:
			stats.Delivered++
			monitoring.WebhookDeliveries.WithLabelValues("delivered").Inc()
		case store.DeliveryStatusRetryScheduled:
			stats.Retried++
			monitoring.WebhookDeliveries.WithLabelValues("retried").Inc()
		case store.DeliveryStatusDeadLettered:
			stats.DeadLettered++
			monitoring.WebhookDeliveries.WithLabelValues("dead_lettered").Inc()
		}
	}
	return stats, nil
}

// attemptDelivery runs one attempt and persists the outcome. Returns the
// resulting status.
func (s *Service) attemptDelivery(ctx context.Context, d *store.WebhookDelivery) string {
	now := time.Now().UTC()
	d.LastAttemptAt = &now

	sub, err := s.store.GetWebhookSubscription(ctx, d.TenantID, d.SubscriptionID)
	if err == store.ErrNotFound || (err == nil && !sub.Active) {
		d.Status = store.DeliveryStatusDeadLettered
		d.LastError = DLQReasonSubscriptionGone
		d.DeadLetteredAt = &now
		s.persist(ctx, d)
		s.logger.Printf("⚠️  Delivery %s dead-lettered: %s", d.ID, DLQReasonSubscriptionGone)
		return d.Status
	}
	if err != nil {
		// Store error, not an endpoint failure; leave the row for the next
		// claim after the lease expires.
		s.logger.Printf("❌ Subscription lookup failed for %s: %v", d.ID, err)
		return ""
	}

	if err := s.deliver(ctx, d, sub); err != nil {
		d.AttemptCount++
		d.LastError = err.Error()
		if d.AttemptCount >= s.maxRetries {
			d.Status = store.DeliveryStatusDeadLettered
			d.DeadLetteredAt = &now
			s.logger.Printf("⚠️  Delivery %s dead-lettered after %d attempts: %v", d.ID, d.AttemptCount, err)
		} else {
			d.Status = store.DeliveryStatusRetryScheduled
			d.NextAttemptAt = now.Add(backoff(d.AttemptCount))
			s.logger.Printf("Delivery %s attempt %d failed, retry at %s: %v",
				d.ID, d.AttemptCount, d.NextAttemptAt.Format(time.RFC3339), err)
		}
	} else {
		d.AttemptCount++
		d.Status = store.DeliveryStatusDelivered
		d.LastError = ""
		s.logger.Printf("✅ Delivered %s → %s (%s)", d.ID, sub.URL, d.EventType)
	}
	s.persist(ctx, d)
	return d.Status
}

func (s *Service) deliver(ctx context.Context, d *store.WebhookDelivery, sub *store.WebhookSubscription) error {
	body, err := idempotency.Canonicalize(d.Payload)
	if err != nil {
		return fmt.Errorf("canonicalize: %w", err)
	}

	secret, err := s.secrets.Resolve(ctx, sub.SecretRef)
	if err != nil {
		return fmt.Errorf("resolve secret: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, "sha256="+SignPayload(body, secret))
	req.Header.Set(HeaderEvent, d.EventType)
	req.Header.Set(HeaderIdempotencyKey, d.IdempotencyKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (s *Service) persist(ctx context.Context, d *store.WebhookDelivery) {
	if err := s.store.UpdateDelivery(ctx, d); err != nil {
		s.logger.Printf("❌ Failed to persist delivery %s: %v", d.ID, err)
	}
}

// ReplayDeadLettered resets the most recently dead-lettered deliveries back
// to pending with a clean attempt counter. Returns how many were reset.
func (s *Service) ReplayDeadLettered(ctx context.Context, tenantID string, limit int) (int, error) {
	dead, err := s.store.ListDeadLettered(ctx, tenantID, limit)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	count := 0
	for _, d := range dead {
		d.Status = store.DeliveryStatusPending
		d.AttemptCount = 0
		d.LastError = ""
		d.NextAttemptAt = now
		d.DeadLetteredAt = nil
		if err := s.store.UpdateDelivery(ctx, d); err != nil {
			return count, err
		}
		count++
	}
	if count > 0 {
		s.logger.Printf("Replayed %d dead-lettered deliveries for %s", count, tenantID)
	}
	return count, nil
}

// ListSubscriptions exposes a tenant's subscriptions to the API layer.
func (s *Service) ListSubscriptions(ctx context.Context, tenantID string) ([]*store.WebhookSubscription, error) {
	return s.store.ListWebhookSubscriptions(ctx, tenantID)
}

// ListDeadLettered exposes the tenant DLQ.
func (s *Service) ListDeadLettered(ctx context.Context, tenantID string, limit int) ([]*store.WebhookDelivery, error) {
	return s.store.ListDeadLettered(ctx, tenantID, limit)
}

// backoff is min(2^(n-1), 300) seconds for attempt n.
func backoff(attempt int) time.Duration {
	secs := math.Pow(2, float64(attempt-1))
	d := time.Duration(secs) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
