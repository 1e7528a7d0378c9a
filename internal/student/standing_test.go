package student

import "testing"

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		remaining int
		want      Status
	}{
		{0, StatusCritical},
		{3, StatusCritical},
		{5, StatusCritical},
		{6, StatusLowDays},
		{15, StatusLowDays},
		{20, StatusLowDays},
		{21, StatusActive},
		{180, StatusActive},
	}
	for _, tc := range cases {
		if got := Classify(tc.remaining); got != tc.want {
			t.Fatalf("Classify(%d) = %s, want %s", tc.remaining, got, tc.want)
		}
	}
}

func TestAdvanceRevertIsInverse(t *testing.T) {
	before := Stats{DaysRegistered: 40, RemainingDays: 90, AttendanceRate: 75}
	after := Revert(Advance(before))
	if after.DaysRegistered != before.DaysRegistered {
		t.Fatalf("daysRegistered not restored: got %d, want %d", after.DaysRegistered, before.DaysRegistered)
	}
	if after.RemainingDays != before.RemainingDays {
		t.Fatalf("remainingDays not restored: got %d, want %d", after.RemainingDays, before.RemainingDays)
	}
}

func TestAdvanceClampsAtZero(t *testing.T) {
	s := Advance(Stats{DaysRegistered: 200, RemainingDays: 0})
	if s.RemainingDays != 0 {
		t.Fatalf("remainingDays went below zero: %d", s.RemainingDays)
	}
	if s.DaysRegistered != 201 {
		t.Fatalf("daysRegistered = %d, want 201", s.DaysRegistered)
	}
	// At the clamp the pair of operations is not reversible.
	if restored := Revert(s); restored.RemainingDays != 1 {
		t.Fatalf("revert at clamp: remainingDays = %d, want 1", restored.RemainingDays)
	}
}

func TestRevertClampsAtMax(t *testing.T) {
	s := Revert(Stats{DaysRegistered: 0, RemainingDays: MaxRemainingDays})
	if s.RemainingDays != MaxRemainingDays {
		t.Fatalf("remainingDays exceeded max: %d", s.RemainingDays)
	}
	if s.DaysRegistered != 0 {
		t.Fatalf("daysRegistered went below zero: %d", s.DaysRegistered)
	}
}

func TestRate(t *testing.T) {
	if got := Rate(0, 0); got != 0 {
		t.Fatalf("Rate(0,0) = %d, want 0", got)
	}
	if got := Rate(2, 3); got != 67 {
		t.Fatalf("Rate(2,3) = %d, want 67", got)
	}
	if got := Rate(3, 3); got != 100 {
		t.Fatalf("Rate(3,3) = %d, want 100", got)
	}
	// Recomputation with unchanged inputs is idempotent.
	first := Rate(7, 11)
	if second := Rate(7, 11); second != first {
		t.Fatalf("rate not idempotent: %d then %d", first, second)
	}
}
