package session

import "testing"

func TestTopicHubPublish(t *testing.T) {
	hub := NewTopicHub()
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	hub.Subscribe("ABC123", connA)
	hub.Subscribe("ABC123", connB)

	hub.Publish("ABC123", "test-event", "payload", "")

	if got := len(connA.framesByEvent("test-event")); got != 1 {
		t.Errorf("Subscriber A got %d frames, expected 1", got)
	}
	if got := len(connB.framesByEvent("test-event")); got != 1 {
		t.Errorf("Subscriber B got %d frames, expected 1", got)
	}
}

func TestTopicHubPublishExcludes(t *testing.T) {
	hub := NewTopicHub()
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	hub.Subscribe("ABC123", connA)
	hub.Subscribe("ABC123", connB)

	hub.Publish("ABC123", "test-event", "payload", connA.ID())

	if got := len(connA.framesByEvent("test-event")); got != 0 {
		t.Errorf("Excluded subscriber received %d frames", got)
	}
	if got := len(connB.framesByEvent("test-event")); got != 1 {
		t.Errorf("Subscriber B got %d frames, expected 1", got)
	}
}

func TestTopicHubUnsubscribe(t *testing.T) {
	hub := NewTopicHub()
	connA := newFakeConn("conn-a")

	hub.Subscribe("ABC123", connA)
	hub.Unsubscribe("ABC123", connA.ID())

	hub.Publish("ABC123", "test-event", "payload", "")

	if got := len(connA.frames); got != 0 {
		t.Errorf("Unsubscribed connection received %d frames", got)
	}
	if count := hub.SubscriberCount("ABC123"); count != 0 {
		t.Errorf("SubscriberCount = %d after unsubscribe", count)
	}
}

func TestTopicHubDropTopic(t *testing.T) {
	hub := NewTopicHub()
	connA := newFakeConn("conn-a")

	hub.Subscribe("ABC123", connA)
	hub.DropTopic("ABC123")

	hub.Publish("ABC123", "test-event", "payload", "")

	if got := len(connA.frames); got != 0 {
		t.Errorf("Dropped topic still delivered %d frames", got)
	}
}

func TestTopicHubPublishToUnknownTopic(t *testing.T) {
	hub := NewTopicHub()
	// Publishing into the void must not panic.
	hub.Publish("NOPE99", "test-event", "payload", "")
}
