package student

import (
	"context"
	"time"
)

// Status is the derived standing category. Inactive is accepted by storage
// but never assigned here; it is set externally by the subscription side.
type Status string

const (
	StatusActive   Status = "active"
	StatusLowDays  Status = "low_days"
	StatusCritical Status = "critical"
	StatusInactive Status = "inactive"
)

// Stats is the mutable attendance-statistics block on a student.
type Stats struct {
	DaysRegistered int `json:"days_registered"`
	RemainingDays  int `json:"remaining_days"`
	AttendanceRate int `json:"attendance_rate"`
}

// Student is the canonical student record. Profile fields are owned by the
// registration side; Stats and Status are owned by the standing logic.
type Student struct {
	ID          string    `json:"id"`
	StudentCode string    `json:"student_code"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	College     string    `json:"college"`
	Major       string    `json:"major"`
	Grade       string    `json:"grade"`
	Stats       Stats     `json:"attendance_stats"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary is the minimal shape returned alongside a scan result.
type Summary struct {
	ID          string `json:"id"`
	StudentCode string `json:"student_code"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	College     string `json:"college,omitempty"`
	Status      Status `json:"status"`
}

// Summarize projects a student onto the scan-response shape.
func (s *Student) Summarize() Summary {
	return Summary{
		ID:          s.ID,
		StudentCode: s.StudentCode,
		Name:        s.Name,
		Email:       s.Email,
		College:     s.College,
		Status:      s.Status,
	}
}

// Resolver turns a scanned identity hint into a canonical student record.
// Implementations return (nil, nil) when no student matches.
type Resolver interface {
	ByEmail(ctx context.Context, email string) (*Student, error)
	ByCode(ctx context.Context, code string) (*Student, error)
}
