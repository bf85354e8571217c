package realtime

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(topics ...string) *Client {
	return &Client{Topics: topics, Send: make(chan []byte, 8)}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return ev
	default:
		t.Fatal("expected an event")
		return Event{}
	}
}

func TestHubPublishReachesSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	alice := newTestClient(MessagesTopic("alice"))
	bob := newTestClient(MessagesTopic("bob"))
	hub.Register(alice)
	hub.Register(bob)

	hub.Publish(MessagesTopic("alice"), Event{Change: ChangeInsert, Table: "messages", RowID: "m1"})

	ev := receive(t, alice)
	if ev.Change != ChangeInsert || ev.Table != "messages" || ev.RowID != "m1" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Error("timestamp should be stamped on publish")
	}

	select {
	case <-bob.Send:
		t.Error("bob must not receive alice's events")
	default:
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(AppointmentsTopic("u1"))
	hub.Register(client)

	if got := hub.Subscribers(AppointmentsTopic("u1")); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	hub.Unregister(client)
	if got := hub.Subscribers(AppointmentsTopic("u1")); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
	if _, open := <-client.Send; open {
		t.Error("send channel should be closed after unregister")
	}

	// Publishing to a topic with no subscribers must not panic.
	hub.Publish(AppointmentsTopic("u1"), Event{Change: ChangeUpdate, Table: "appointments"})
}

func TestHubUnregisterTwice(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(NotificationsTopic("u1"))
	hub.Register(client)
	hub.Unregister(client)
	hub.Unregister(client) // second call must be a no-op, not a double close
}

func TestHubSlowClientDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{Topics: []string{MessagesTopic("u1")}, Send: make(chan []byte, 1)}
	hub.Register(client)

	hub.Publish(MessagesTopic("u1"), Event{Change: ChangeInsert, Table: "messages", RowID: "m1"})
	// Buffer is now full; this publish must drop rather than block.
	hub.Publish(MessagesTopic("u1"), Event{Change: ChangeInsert, Table: "messages", RowID: "m2"})

	ev := receive(t, client)
	if ev.RowID != "m1" {
		t.Errorf("expected first event, got %+v", ev)
	}
}

func TestPublishRowEncodesPayload(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(NotificationsTopic("u1"))
	hub.Register(client)

	hub.PublishRow(NotificationsTopic("u1"), "notifications", ChangeInsert, "n1", map[string]string{"title": "hello"})

	ev := receive(t, client)
	var payload map[string]string
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["title"] != "hello" {
		t.Errorf("unexpected payload %v", payload)
	}
}
