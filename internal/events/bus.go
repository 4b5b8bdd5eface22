package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// Publisher is the interface for publishing platform events.
// Both the in-memory EventBus and PubSubEventBus satisfy this interface.
type Publisher interface {
	Publish(topic string, payload map[string]interface{}, attributes map[string]string)
}

// Recognized topics. Every payload published on these carries tenant_id.
const (
	TopicDocumentReceived        = "document.received"
	TopicDocumentPreprocessed    = "document.preprocessed"
	TopicDocumentClassified      = "document.classified"
	TopicDocumentExtracted       = "document.extracted"
	TopicDocumentValidated       = "document.validated"
	TopicReviewRequired          = "review.required"
	TopicReviewCompleted         = "review.completed"
	TopicDiscrepancyDetected     = "discrepancy.detected"
	TopicExportSubmissionUpdated = "export.submission.updated"
	TopicInvoiceDisputeUpdated   = "invoice.dispute.updated"
)

// Event is the envelope recorded and fanned out by the bus.
type Event struct {
	ID         string                 `json:"id"`
	Topic      string                 `json:"topic"`
	Time       time.Time              `json:"time"`
	TenantID   string                 `json:"tenant_id,omitempty"`
	Payload    map[string]interface{} `json:"payload"`
	Attributes map[string]string      `json:"attributes,omitempty"`
}

// NewEvent builds an envelope, lifting tenant_id out of the payload when
// present so consumers can filter without parsing the body.
func NewEvent(topic string, payload map[string]interface{}, attributes map[string]string) *Event {
	tenantID := ""
	if tid, ok := payload["tenant_id"].(string); ok {
		tenantID = tid
	}
	return &Event{
		ID:         fmt.Sprintf("evt-%d", time.Now().UnixNano()),
		Topic:      topic,
		Time:       time.Now().UTC(),
		TenantID:   tenantID,
		Payload:    payload,
		Attributes: attributes,
	}
}

// JSON serializes the event
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventBus is an in-process pub/sub event bus. It records published events
// (bounded) and pushes them to channel subscribers in real time.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan *Event // topic -> channels
	allSubs     []chan *Event
	recorded    []*Event
	maxRecorded int
	logger      *log.Logger
	bufferSize  int
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan *Event),
		allSubs:     make([]chan *Event, 0),
		maxRecorded: 1000,
		logger:      log.New(log.Writer(), "[EVENTS] ", log.LstdFlags),
		bufferSize:  100,
	}
}

// Subscribe creates a channel that receives events on specific topics.
// Pass no topics to receive ALL events.
func (eb *EventBus) Subscribe(topics ...string) chan *Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan *Event, eb.bufferSize)

	if len(topics) == 0 {
		eb.allSubs = append(eb.allSubs, ch)
	} else {
		for _, t := range topics {
			eb.subscribers[t] = append(eb.subscribers[t], ch)
		}
	}

	return ch
}

// Unsubscribe removes a subscription channel
func (eb *EventBus) Unsubscribe(ch chan *Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for t, subs := range eb.subscribers {
		filtered := make([]chan *Event, 0)
		for _, s := range subs {
			if s != ch {
				filtered = append(filtered, s)
			}
		}
		eb.subscribers[t] = filtered
	}

	filtered := make([]chan *Event, 0)
	for _, s := range eb.allSubs {
		if s != ch {
			filtered = append(filtered, s)
		}
	}
	eb.allSubs = filtered

	close(ch)
}

// Publish records the event and delivers it to all matching subscribers.
// Delivery is non-blocking; a full subscriber channel drops the event.
func (eb *EventBus) Publish(topic string, payload map[string]interface{}, attributes map[string]string) {
	event := NewEvent(topic, payload, attributes)
	eb.deliver(event)
}

func (eb *EventBus) deliver(event *Event) {
	eb.mu.Lock()
	eb.recorded = append(eb.recorded, event)
	if len(eb.recorded) > eb.maxRecorded {
		eb.recorded = eb.recorded[len(eb.recorded)-eb.maxRecorded:]
	}
	eb.mu.Unlock()

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[event.Topic] {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}

	for _, ch := range eb.allSubs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Recorded returns a snapshot of the retained event history, newest last.
func (eb *EventBus) Recorded() []*Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	out := make([]*Event, len(eb.recorded))
	copy(out, eb.recorded)
	return out
}

// SubscriberCount returns the total number of active subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	count := len(eb.allSubs)
	for _, subs := range eb.subscribers {
		count += len(subs)
	}
	return count
}

var _ Publisher = (*EventBus)(nil)
