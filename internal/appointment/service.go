package appointment

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"transportal/internal/apperr"
	"transportal/internal/metrics"
	"transportal/internal/student"
)

// Store is the slice of the repository the service needs.
type Store interface {
	Create(ctx context.Context, rec Record, applyStats bool) (Record, error)
	Delete(ctx context.Context, id string) (Record, error)
	ExistingForSlot(ctx context.Context, studentID, date string, slot Slot) (*Record, error)
	Update(ctx context.Context, id, status string, notes *string) (Record, error)
	List(ctx context.Context, f ListFilter) ([]Record, int, error)
	Today(ctx context.Context, day string) (TodaySummary, error)
}

// StudentDirectory resolves scanned identities and looks up students by id.
type StudentDirectory interface {
	student.Resolver
	Get(ctx context.Context, id string) (*student.Student, error)
}

// ScanQRInput is one check-in at a station.
type ScanQRInput struct {
	QRData          string
	Slot            Slot
	StationName     string
	StationLocation string
	Coordinates     string
	ActingUserID    string
}

// Service runs the appointment-slot attendance flow.
type Service struct {
	store    Store
	students StudentDirectory
	loc      *time.Location
	now      func() time.Time
}

// NewService creates the appointment engine. The location decides the
// calendar-day key and the late deadlines.
func NewService(store Store, students StudentDirectory, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{store: store, students: students, loc: loc}
	s.now = func() time.Time { return time.Now().In(s.loc) }
	return s
}

// ScanQR records a slot check-in. On a duplicate, the existing record is
// returned alongside the Conflict error so the client can display it.
func (s *Service) ScanQR(ctx context.Context, in ScanQRInput) (Record, student.Summary, error) {
	if !in.Slot.Valid() {
		return Record{}, student.Summary{}, apperr.New(apperr.Validation, "appointment slot must be first or second")
	}

	hint, err := parseQR(in.QRData)
	if err != nil {
		return Record{}, student.Summary{}, err
	}

	st, err := s.lookup(ctx, hint)
	if err != nil {
		return Record{}, student.Summary{}, err
	}
	if st == nil {
		return Record{}, student.Summary{}, apperr.New(apperr.NotFound, "student not found")
	}

	now := s.now()
	checkIn := now
	rec := Record{
		StudentID:       st.ID,
		Date:            DateKey(now),
		Slot:            in.Slot,
		Status:          SlotStatus(in.Slot, now),
		CheckInTime:     &checkIn,
		StationName:     in.StationName,
		StationLocation: in.StationLocation,
		Coordinates:     in.Coordinates,
		SupervisorID:    in.ActingUserID,
	}

	created, err := s.store.Create(ctx, rec, true)
	if err != nil {
		if apperr.KindOf(err) == apperr.Conflict {
			if existing, lookupErr := s.store.ExistingForSlot(ctx, st.ID, rec.Date, in.Slot); lookupErr == nil && existing != nil {
				return *existing, st.Summarize(), err
			}
		}
		return Record{}, student.Summary{}, err
	}

	metrics.AppointmentCheckin.WithLabelValues(created.Status).Inc()
	created.StudentName = st.Name
	created.StudentEmail = st.Email
	created.StudentCollege = st.College
	return created, st.Summarize(), nil
}

// MarkAbsent records an absence directly. It does not touch the student's
// standing: an absence does not consume a remaining day.
func (s *Service) MarkAbsent(ctx context.Context, studentID string, slot Slot, date string) (Record, error) {
	if !slot.Valid() {
		return Record{}, apperr.New(apperr.Validation, "appointment slot must be first or second")
	}
	if studentID == "" {
		return Record{}, apperr.New(apperr.Validation, "student id is required")
	}
	if date == "" {
		date = DateKey(s.now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return Record{}, apperr.New(apperr.Validation, "date must be YYYY-MM-DD")
	}

	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return Record{}, err
	}
	if st == nil {
		return Record{}, apperr.New(apperr.NotFound, "student not found")
	}

	rec := Record{
		StudentID: st.ID,
		Date:      date,
		Slot:      slot,
		Status:    StatusAbsent,
	}
	created, err := s.store.Create(ctx, rec, false)
	if err != nil {
		return Record{}, err
	}
	metrics.AppointmentCheckin.WithLabelValues(StatusAbsent).Inc()
	created.StudentName = st.Name
	created.StudentEmail = st.Email
	return created, nil
}

// Update changes a record's status and notes.
func (s *Service) Update(ctx context.Context, id, status string, notes *string) (Record, error) {
	switch status {
	case StatusPresent, StatusLate, StatusAbsent:
	default:
		return Record{}, apperr.New(apperr.Validation, "status must be present, late, or absent")
	}
	return s.store.Update(ctx, id, status, notes)
}

// Delete removes a record and reverses the standing update it caused.
func (s *Service) Delete(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, apperr.New(apperr.Validation, "record id is required")
	}
	return s.store.Delete(ctx, id)
}

// List returns filtered records with a paging total.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Record, int, error) {
	return s.store.List(ctx, f)
}

// Today aggregates the current calendar day.
func (s *Service) Today(ctx context.Context) (TodaySummary, error) {
	return s.store.Today(ctx, DateKey(s.now()))
}

// TodayKey exposes the current calendar-day key for cache lookups.
func (s *Service) TodayKey() string { return DateKey(s.now()) }

// qrHint is the identity carried by an appointment QR payload.
type qrHint struct {
	studentID string
	code      string
	email     string
}

// parseQR decodes the structured QR payload. Unlike shift scans, bare-string
// codes are not accepted here.
func parseQR(raw string) (qrHint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return qrHint{}, apperr.New(apperr.Validation, "qr data is required")
	}
	var body struct {
		StudentID string `json:"studentId"`
		SnakeID   string `json:"student_id"`
		ID        string `json:"id"`
		Code      string `json:"code"`
		Email     string `json:"email"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return qrHint{}, apperr.New(apperr.Validation, "invalid qr data")
	}
	hint := qrHint{
		studentID: firstNonEmpty(body.StudentID, body.SnakeID, body.ID),
		code:      strings.TrimSpace(body.Code),
		email:     strings.TrimSpace(body.Email),
	}
	if hint.studentID == "" && hint.code == "" && hint.email == "" {
		return qrHint{}, apperr.New(apperr.Validation, "qr data missing student identifier")
	}
	return hint, nil
}

// lookup tries id, then code, then email.
func (s *Service) lookup(ctx context.Context, hint qrHint) (*student.Student, error) {
	if hint.studentID != "" {
		if st, err := s.students.Get(ctx, hint.studentID); err != nil || st != nil {
			return st, err
		}
		// An id embedded in a QR payload is often the student code.
		if st, err := s.students.ByCode(ctx, hint.studentID); err != nil || st != nil {
			return st, err
		}
	}
	if hint.code != "" {
		if st, err := s.students.ByCode(ctx, hint.code); err != nil || st != nil {
			return st, err
		}
	}
	if hint.email != "" {
		return s.students.ByEmail(ctx, hint.email)
	}
	return nil, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
