package student

import "math"

// Remaining-days bounds and classification thresholds. These constants are
// the only place the standing cutoffs exist; storage never encodes them.
const (
	MaxRemainingDays = 180

	criticalMaxDays = 5
	lowMaxDays      = 20
)

// Classify maps a remaining-days counter to a standing category.
func Classify(remainingDays int) Status {
	switch {
	case remainingDays <= criticalMaxDays:
		return StatusCritical
	case remainingDays <= lowMaxDays:
		return StatusLowDays
	default:
		return StatusActive
	}
}

// Advance applies one attendance credit: a day registered and a remaining
// day consumed, clamped at zero.
func Advance(s Stats) Stats {
	s.DaysRegistered++
	if s.RemainingDays > 0 {
		s.RemainingDays--
	}
	return s
}

// Revert is the inverse of Advance for a removed attendance record. The
// clamps at 0 and MaxRemainingDays make the boundaries non-reversible, which
// is accepted behavior.
func Revert(s Stats) Stats {
	if s.DaysRegistered > 0 {
		s.DaysRegistered--
	}
	if s.RemainingDays < MaxRemainingDays {
		s.RemainingDays++
	}
	return s
}

// Rate computes the attendance percentage over all slot records:
// round(100 * (present + late) / total), or 0 when there are no records.
func Rate(presentOrLate, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(presentOrLate) / float64(total)))
}
