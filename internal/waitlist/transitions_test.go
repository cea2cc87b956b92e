package waitlist

import (
	"testing"

	"waitify/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from  string
		to    string
		valid bool
	}{
		{"waiting", "notified", true},
		{"waiting", "seated", true},
		{"waiting", "cancelled", true},
		{"notified", "seated", true},
		{"notified", "cancelled", true},
		{"notified", "waiting", false},
		{"seated", "waiting", false},
		{"seated", "notified", false},
		{"seated", "cancelled", false},
		{"cancelled", "waiting", false},
		{"cancelled", "seated", false},
		{"waiting", "waiting", false},
		{"unknown", "seated", false},
	}

	for _, tt := range cases {
		if got := CanTransition(tt.from, tt.to); got != tt.valid {
			t.Fatalf("CanTransition(%q, %q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestTerminalStatusesAdmitNoActions(t *testing.T) {
	for _, status := range []string{models.StatusSeated, models.StatusCancelled} {
		if !IsTerminal(status) {
			t.Fatalf("expected %s to be terminal", status)
		}
		if next := AllowedNext(status); len(next) != 0 {
			t.Fatalf("expected no allowed transitions from %s, got %v", status, next)
		}
	}
	for _, status := range []string{models.StatusWaiting, models.StatusNotified} {
		if IsTerminal(status) {
			t.Fatalf("did not expect %s to be terminal", status)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{"waiting", "notified", "seated", "cancelled"} {
		if !ValidStatus(status) {
			t.Fatalf("expected %s to be valid", status)
		}
	}
	if ValidStatus("arrived") {
		t.Fatal("expected arrived to be invalid")
	}
}
