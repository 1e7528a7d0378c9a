package appointment

import (
	"testing"
	"time"
)

func at(minuteOfDay int) time.Time {
	return time.Date(2026, 3, 2, minuteOfDay/60, minuteOfDay%60, 0, 0, time.UTC)
}

func TestSlotStatusFirstWindow(t *testing.T) {
	// Deadline is minute 500 (08:20).
	if got := SlotStatus(SlotFirst, at(499)); got != StatusPresent {
		t.Fatalf("minute 499: got %s, want %s", got, StatusPresent)
	}
	if got := SlotStatus(SlotFirst, at(500)); got != StatusPresent {
		t.Fatalf("minute 500 (on the deadline): got %s, want %s", got, StatusPresent)
	}
	if got := SlotStatus(SlotFirst, at(501)); got != StatusLate {
		t.Fatalf("minute 501: got %s, want %s", got, StatusLate)
	}
}

func TestSlotStatusSecondWindow(t *testing.T) {
	// Deadline is minute 860 (14:20).
	if got := SlotStatus(SlotSecond, at(860)); got != StatusPresent {
		t.Fatalf("minute 860: got %s, want %s", got, StatusPresent)
	}
	if got := SlotStatus(SlotSecond, at(861)); got != StatusLate {
		t.Fatalf("minute 861: got %s, want %s", got, StatusLate)
	}
	// An early-morning scan against the second slot is still present.
	if got := SlotStatus(SlotSecond, at(499)); got != StatusPresent {
		t.Fatalf("minute 499 second slot: got %s, want %s", got, StatusPresent)
	}
}

func TestDateKey(t *testing.T) {
	ts := time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)
	if got := DateKey(ts); got != "2026-03-02" {
		t.Fatalf("DateKey = %q", got)
	}
}

func TestSlotValid(t *testing.T) {
	if !SlotFirst.Valid() || !SlotSecond.Valid() {
		t.Fatal("expected first and second to be valid")
	}
	if Slot("third").Valid() || Slot("").Valid() {
		t.Fatal("expected unknown slots to be invalid")
	}
}
