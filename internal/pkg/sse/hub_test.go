package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversByTopic(t *testing.T) {
	h := NewHub()
	audit, stopAudit := h.Subscribe("audit")
	defer stopAudit()
	dept, stopDept := h.Subscribe("department:d1")
	defer stopDept()

	n := h.Publish("audit", Event{ID: "e1", Event: "request.transitioned"})
	assert.Equal(t, 1, n)

	select {
	case e := <-audit:
		assert.Equal(t, "e1", e.ID)
		assert.Equal(t, "audit", e.Topic)
	default:
		t.Fatal("audit subscriber did not receive the event")
	}
	assert.Empty(t, dept)
}

func TestHubPublishToManyDeliversOnce(t *testing.T) {
	h := NewHub()
	ch, stop := h.Subscribe("department:d1", "employee:e1")
	defer stop()

	n := h.PublishToMany([]string{"audit", "department:d1", "employee:e1"}, Event{ID: "e1"})
	assert.Equal(t, 1, n)
	require.Len(t, ch, 1)
}

func TestHubCleanup(t *testing.T) {
	h := NewHub()
	_, stop := h.Subscribe("audit", "employee:e1")
	assert.Equal(t, 1, h.TotalSubscribers())
	assert.Equal(t, 1, h.SubscriberCount("audit"))

	stop()
	stop()
	assert.Equal(t, 0, h.TotalSubscribers())
	assert.Equal(t, 0, h.SubscriberCount("employee:e1"))
	assert.Equal(t, 0, h.Publish("audit", Event{ID: "e2"}))
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	ch, stop := h.Subscribe("audit")
	defer stop()

	for i := 0; i < h.bufferSize+5; i++ {
		h.Publish("audit", Event{})
	}
	assert.Len(t, ch, h.bufferSize)
}
