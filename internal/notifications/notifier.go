// Package notifications surfaces exception events to operators. It
// consumes the in-process bus; deployments on Pub/Sub attach a push
// subscription instead.
package notifications

import (
	"context"
	"log"

	"github.com/nexuscargo/backend/internal/events"
)

// exceptionTopics are the events an operator should see without polling.
var exceptionTopics = []string{
	events.TopicReviewRequired,
	events.TopicDiscrepancyDetected,
	events.TopicExportSubmissionUpdated,
	events.TopicInvoiceDisputeUpdated,
}

type Notifier struct {
	bus    *events.EventBus
	logger *log.Logger
}

func NewNotifier(bus *events.EventBus) *Notifier {
	return &Notifier{
		bus:    bus,
		logger: log.New(log.Writer(), "[NOTIFY] ", log.LstdFlags),
	}
}

// Run consumes exception events until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	ch := n.bus.Subscribe(exceptionTopics...)
	defer n.bus.Unsubscribe(ch)

	n.logger.Printf("Watching %d exception topics", len(exceptionTopics))
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			n.notify(evt)
		}
	}
}

func (n *Notifier) notify(evt *events.Event) {
	switch evt.Topic {
	case events.TopicReviewRequired:
		n.logger.Printf("⚠️  Review required: tenant=%s document=%v reason=%v",
			evt.TenantID, evt.Payload["document_id"], evt.Payload["reason"])
	case events.TopicDiscrepancyDetected:
		n.logger.Printf("⚠️  Discrepancy detected: tenant=%s case=%v risk=%v",
			evt.TenantID, evt.Payload["case_id"], evt.Payload["risk_level"])
	default:
		n.logger.Printf("Update: %s tenant=%s case=%v status=%v",
			evt.Topic, evt.TenantID, evt.Payload["case_id"], evt.Payload["status"])
	}
}
