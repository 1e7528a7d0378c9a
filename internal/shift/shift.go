package shift

import "time"

// Shift statuses. A shift is terminal once closed.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Shift is a supervisor's bounded scanning session. AttendanceRecords and
// TotalScans are projections of the shift_scans table.
type Shift struct {
	ID                string       `json:"id"`
	SupervisorID      string       `json:"supervisor_id"`
	SupervisorName    string       `json:"supervisor_name,omitempty"`
	SupervisorEmail   string       `json:"supervisor_email,omitempty"`
	Status            string       `json:"status"`
	ShiftStart        time.Time    `json:"shift_start"`
	ShiftEnd          *time.Time   `json:"shift_end,omitempty"`
	TotalScans        int          `json:"total_scans"`
	AttendanceRecords []ScanRecord `json:"attendance_records"`
}

// ScanRecord is one accepted QR scan, snapshotting the student's identity
// fields as of scan time.
type ScanRecord struct {
	ID           string    `json:"id"`
	ShiftID      string    `json:"shift_id"`
	StudentID    string    `json:"student_id,omitempty"`
	StudentCode  string    `json:"student_code,omitempty"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	College      string    `json:"college,omitempty"`
	Major        string    `json:"major,omitempty"`
	Grade        string    `json:"grade,omitempty"`
	ScanTime     time.Time `json:"scan_time"`
	Location     string    `json:"location,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Status       string    `json:"status"`
	SupervisorID string    `json:"supervisor_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListFilter narrows shift listings.
type ListFilter struct {
	SupervisorID string
	Status       string
	Date         string // calendar day, YYYY-MM-DD
	Limit        int
}
