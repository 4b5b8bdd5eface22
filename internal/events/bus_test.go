package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRecordsAndDelivers(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(TopicDocumentValidated)
	defer bus.Unsubscribe(ch)

	bus.Publish(TopicDocumentValidated, map[string]interface{}{
		"tenant_id":   "tenant-a",
		"document_id": "doc_1",
	}, nil)
	bus.Publish(TopicReviewRequired, map[string]interface{}{"tenant_id": "tenant-a"}, nil)

	select {
	case evt := <-ch:
		assert.Equal(t, TopicDocumentValidated, evt.Topic)
		assert.Equal(t, "tenant-a", evt.TenantID)
		assert.Equal(t, "doc_1", evt.Payload["document_id"])
	case <-time.After(time.Second):
		t.Fatal("expected delivery on subscribed topic")
	}

	// The review event went to a topic this channel is not subscribed to.
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %s", evt.Topic)
	default:
	}

	require.Len(t, bus.Recorded(), 2)
}

func TestSubscribeAllTopics(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	bus.Publish(TopicDiscrepancyDetected, map[string]interface{}{"tenant_id": "tenant-a"}, nil)
	bus.Publish(TopicReviewCompleted, map[string]interface{}{"tenant_id": "tenant-a"}, nil)

	got := 0
	for i := 0; i < 2; i++ {
		select {
		case <-ch:
			got++
		case <-time.After(time.Second):
		}
	}
	assert.Equal(t, 2, got)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(TopicReviewRequired)
	bus.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestNewEventLiftsTenant(t *testing.T) {
	evt := NewEvent(TopicDocumentReceived, map[string]interface{}{"tenant_id": "tenant-a"}, map[string]string{"source": "test"})
	assert.Equal(t, "tenant-a", evt.TenantID)
	assert.NotEmpty(t, evt.ID)

	raw, err := evt.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"topic":"document.received"`)
}
