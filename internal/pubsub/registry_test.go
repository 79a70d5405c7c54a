package pubsub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribePublish(t *testing.T) {
	r := NewRegistry()
	ch, cancel := Subscribe(r, "updates", 4)
	defer cancel()

	r.Publish("updates", UpdateMessage("<p>hi</p>"))

	select {
	case msg := <-ch:
		var payload map[string]string
		require.NoError(t, json.Unmarshal(msg, &payload))
		assert.Equal(t, "<p>hi</p>", payload["update"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	r := NewRegistry()
	assert.NotPanics(t, func() { r.Publish("nobody-listens", RedirectMessage("/draft?a.html")) })
}

func TestPublish_SlowSubscriberNeverBlocksOthers(t *testing.T) {
	r := NewRegistry()
	slow, cancelSlow := Subscribe(r, "updates", 1)
	defer cancelSlow()
	fast, cancelFast := Subscribe(r, "updates", 4)
	defer cancelFast()

	// Fill the slow subscriber's buffer so further sends would block a
	// naive implementation; Publish must still reach the fast subscriber.
	r.Publish("updates", UpdateMessage("first"))
	r.Publish("updates", UpdateMessage("second"))

	select {
	case <-fast:
	case <-time.After(time.Second):
		t.Fatal("fast subscriber starved by slow one")
	}
	select {
	case <-fast:
	case <-time.After(time.Second):
		t.Fatal("fast subscriber missed second message")
	}

	// Drain whatever the slow one did receive; it should have at most one
	// message buffered (the rest were dropped, not blocked on).
	select {
	case <-slow:
	default:
	}
}

func TestSubscriberCount(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.SubscriberCount("updates"))

	_, cancel1 := Subscribe(r, "updates", 1)
	_, cancel2 := Subscribe(r, "updates", 1)
	assert.Equal(t, 2, r.SubscriberCount("updates"))

	cancel1()
	assert.Equal(t, 1, r.SubscriberCount("updates"))
	cancel2()
	assert.Equal(t, 0, r.SubscriberCount("updates"))
}

func TestCancel_ClosesChannel(t *testing.T) {
	r := NewRegistry()
	ch, cancel := Subscribe(r, "updates", 1)
	cancel()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
}
