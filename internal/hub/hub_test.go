package hub

import "testing"

func newClient(id string, sub Subscription) *Client {
	return &Client{ID: id, Send: make(chan []byte, 1), Subscription: sub}
}

func TestBroadcastMatchesSubscription(t *testing.T) {
	h := New()
	matching := newClient("c1", Subscription{BusinessID: "b1", WaitlistID: "w1"})
	other := newClient("c2", Subscription{BusinessID: "b2"})
	h.Register(matching)
	h.Register(other)

	h.Broadcast([]byte("event"), Subscription{BusinessID: "b1", WaitlistID: "w1"})

	select {
	case msg := <-matching.Send:
		if string(msg) != "event" {
			t.Fatalf("unexpected message %q", msg)
		}
	default:
		t.Fatal("matching client got nothing")
	}
	select {
	case <-other.Send:
		t.Fatal("other business must not receive the event")
	default:
	}
}

func TestBroadcastEmptySubscriptionReceivesAll(t *testing.T) {
	h := New()
	client := newClient("c1", Subscription{})
	h.Register(client)

	h.Broadcast([]byte("event"), Subscription{BusinessID: "b1", WaitlistID: "w1"})
	select {
	case <-client.Send:
	default:
		t.Fatal("wildcard subscription should receive everything")
	}
}

func TestBroadcastDropsWhenClientFull(t *testing.T) {
	h := New()
	client := newClient("c1", Subscription{BusinessID: "b1"})
	h.Register(client)

	h.Broadcast([]byte("one"), Subscription{BusinessID: "b1"})
	h.Broadcast([]byte("two"), Subscription{BusinessID: "b1"})

	if got := <-client.Send; string(got) != "one" {
		t.Fatalf("unexpected first message %q", got)
	}
	select {
	case msg := <-client.Send:
		t.Fatalf("second message should have been dropped, got %q", msg)
	default:
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := New()
	client := newClient("c1", Subscription{})
	h.Register(client)
	h.Unregister(client)

	if _, ok := <-client.Send; ok {
		t.Fatal("send channel should be closed")
	}
	h.Broadcast([]byte("event"), Subscription{})
}

func TestParseSubscribe(t *testing.T) {
	msg, ok := ParseSubscribe([]byte(`{"action":"subscribe","business_id":"b1","waitlist_id":"w1"}`))
	if !ok {
		t.Fatal("expected valid subscribe message")
	}
	if msg.BusinessID != "b1" || msg.WaitlistID != "w1" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	if _, ok := ParseSubscribe([]byte(`{"action":"dance"}`)); ok {
		t.Fatal("unknown action must be rejected")
	}
	if _, ok := ParseSubscribe([]byte(`not json`)); ok {
		t.Fatal("invalid json must be rejected")
	}
}
