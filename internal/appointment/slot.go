package appointment

import "time"

// Late deadlines as minutes past midnight in the service timezone:
// 08:20 for the first slot, 14:20 for the second.
const (
	firstDeadlineMinute  = 8*60 + 20
	secondDeadlineMinute = 14*60 + 20
)

// SlotStatus classifies a check-in time against the slot's deadline. Exactly
// on the deadline still counts as present.
func SlotStatus(slot Slot, at time.Time) string {
	minute := at.Hour()*60 + at.Minute()
	deadline := firstDeadlineMinute
	if slot == SlotSecond {
		deadline = secondDeadlineMinute
	}
	if minute > deadline {
		return StatusLate
	}
	return StatusPresent
}

// DateKey formats a time as the calendar-day key used for slot uniqueness.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
