package appointment

import "time"

// Slot is one of the two fixed daily check-in windows.
type Slot string

const (
	SlotFirst  Slot = "first"
	SlotSecond Slot = "second"
)

// Valid reports whether s names a known slot.
func (s Slot) Valid() bool { return s == SlotFirst || s == SlotSecond }

// Record statuses.
const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusAbsent  = "absent"
)

// Record is one appointment-slot attendance entry. Exactly one record may
// exist per (student, date, slot); the storage layer enforces it.
type Record struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	StudentName     string     `json:"student_name,omitempty"`
	StudentEmail    string     `json:"student_email,omitempty"`
	StudentCollege  string     `json:"student_college,omitempty"`
	Date            string     `json:"date"` // YYYY-MM-DD
	Slot            Slot       `json:"appointment_slot"`
	Status          string     `json:"status"`
	CheckInTime     *time.Time `json:"check_in_time,omitempty"`
	StationName     string     `json:"station_name,omitempty"`
	StationLocation string     `json:"station_location,omitempty"`
	Coordinates     string     `json:"coordinates,omitempty"`
	SupervisorID    string     `json:"supervisor_id,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ListFilter narrows record listings.
type ListFilter struct {
	StudentID string
	DateFrom  string
	DateTo    string
	Slot      Slot
	Status    string
	Page      int
	Limit     int
}

// SlotCounts breaks a day's records down by status for one slot.
type SlotCounts struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
	Total   int `json:"total"`
}

// TodaySummary is the aggregated dashboard view for one calendar day.
type TodaySummary struct {
	Date    string     `json:"date"`
	First   SlotCounts `json:"first"`
	Second  SlotCounts `json:"second"`
	Records []Record   `json:"records"`
}
