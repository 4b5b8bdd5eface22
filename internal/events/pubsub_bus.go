package events

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
)

// PubSubEventBus wraps the in-memory EventBus and also publishes every event
// to Google Cloud Pub/Sub for durable, cross-service delivery.
//
// Fan-out strategy:
//   - Pub/Sub: durable, at-least-once delivery to downstream consumers
//   - In-memory: immediate push to in-process subscribers
//
// Each topic name maps to its own Pub/Sub topic:
// "document.received" -> "{prefix}-document-received".
type PubSubEventBus struct {
	*EventBus // embedded — Subscribe/Unsubscribe still work

	client *pubsub.Client
	prefix string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
	logger *log.Logger
}

// NewPubSubEventBus creates a Pub/Sub-backed event bus. Topics are created
// lazily on first publish if they do not exist.
func NewPubSubEventBus(projectID, prefix string) (*PubSubEventBus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}

	bus := &PubSubEventBus{
		EventBus: NewEventBus(),
		client:   client,
		prefix:   prefix,
		topics:   make(map[string]*pubsub.Topic),
		logger:   log.New(log.Writer(), "[PUBSUB] ", log.LstdFlags),
	}

	bus.logger.Printf("✅ Connected to Pub/Sub project %s (prefix=%s)", projectID, prefix)
	return bus, nil
}

// Publish builds the envelope, publishes it to Pub/Sub, and fans out to
// in-memory subscribers. Pub/Sub failures are logged, never surfaced: event
// delivery must not fail the write that produced the event.
func (pb *PubSubEventBus) Publish(topic string, payload map[string]interface{}, attributes map[string]string) {
	event := NewEvent(topic, payload, attributes)
	pb.publishToPubSub(event)
	pb.EventBus.deliver(event)
}

func (pb *PubSubEventBus) topicFor(name string) (*pubsub.Topic, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if t, ok := pb.topics[name]; ok {
		return t, nil
	}

	topicID := pb.prefix + "-" + strings.ReplaceAll(name, ".", "-")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	topic := pb.client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("topic.Exists: %w", err)
	}
	if !exists {
		topic, err = pb.client.CreateTopic(ctx, topicID)
		if err != nil {
			return nil, fmt.Errorf("CreateTopic: %w", err)
		}
		pb.logger.Printf("Created Pub/Sub topic %s", topicID)
	}

	// Tenant-scoped ordering
	topic.EnableMessageOrdering = true

	pb.topics[name] = topic
	return topic, nil
}

func (pb *PubSubEventBus) publishToPubSub(event *Event) {
	payload, err := event.JSON()
	if err != nil {
		pb.logger.Printf("❌ Failed to marshal event %s: %v", event.ID, err)
		return
	}

	topic, err := pb.topicFor(event.Topic)
	if err != nil {
		pb.logger.Printf("❌ Topic lookup failed for %s: %v", event.Topic, err)
		return
	}

	attrs := map[string]string{
		"topic":     event.Topic,
		"event_id":  event.ID,
		"time":      event.Time.Format(time.RFC3339Nano),
		"tenant_id": event.TenantID,
	}
	for k, v := range event.Attributes {
		attrs[k] = v
	}

	msg := &pubsub.Message{
		Data:        payload,
		Attributes:  attrs,
		OrderingKey: event.TenantID,
	}

	result := topic.Publish(context.Background(), msg)

	// Bounded wait off the hot path; a slow broker only costs a log line.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		serverID, err := result.Get(ctx)
		if err != nil {
			pb.logger.Printf("❌ Pub/Sub publish failed: %s → %v", event.ID, err)
			return
		}
		pb.logger.Printf("📤 Published event %s → msgID=%s (topic=%s)", event.ID, serverID, event.Topic)
	}()
}

// Close gracefully shuts down the Pub/Sub client.
func (pb *PubSubEventBus) Close() error {
	pb.mu.Lock()
	for _, t := range pb.topics {
		t.Stop()
	}
	pb.mu.Unlock()

	if err := pb.client.Close(); err != nil {
		return fmt.Errorf("pubsub client close: %w", err)
	}
	pb.logger.Printf("🔌 Pub/Sub client closed")
	return nil
}

// HealthCheck verifies Pub/Sub is reachable by probing one known topic.
func (pb *PubSubEventBus) HealthCheck(ctx context.Context) error {
	topic, err := pb.topicFor(TopicDocumentReceived)
	if err != nil {
		return err
	}
	exists, err := topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("topic health check: %w", err)
	}
	if !exists {
		return fmt.Errorf("topic does not exist")
	}
	return nil
}

// MarshalStats returns basic telemetry about the bus.
func (pb *PubSubEventBus) MarshalStats() map[string]interface{} {
	pb.mu.Lock()
	topicCount := len(pb.topics)
	pb.mu.Unlock()
	return map[string]interface{}{
		"backend":     "gcp-pubsub",
		"prefix":      pb.prefix,
		"topics":      topicCount,
		"subscribers": pb.EventBus.SubscriberCount(),
	}
}

// ensure interface compatibility
var _ Publisher = (*PubSubEventBus)(nil)
