package main

import (
	"testing"

	"waitify/internal/store"
)

func TestExtractMeta(t *testing.T) {
	tests := []struct {
		name         string
		event        store.OutboxEvent
		wantBusiness string
		wantWaitlist string
	}{
		{
			"waitlist in payload",
			store.OutboxEvent{BusinessID: "b1", Payload: []byte(`{"waitlist_id":"w1","entry_id":"e1"}`)},
			"b1", "w1",
		},
		{
			"no waitlist",
			store.OutboxEvent{BusinessID: "b1", Payload: []byte(`{"entry_id":"e1"}`)},
			"b1", "",
		},
		{
			"invalid payload keeps business",
			store.OutboxEvent{BusinessID: "b1", Payload: []byte(`not json`)},
			"b1", "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			meta := extractMeta(tc.event)
			if meta.BusinessID != tc.wantBusiness || meta.WaitlistID != tc.wantWaitlist {
				t.Fatalf("unexpected meta: %+v", meta)
			}
		})
	}
}
