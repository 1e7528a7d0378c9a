package shift

import (
	"context"
	"log"
	"time"

	"transportal/internal/apperr"
	"transportal/internal/metrics"
	"transportal/internal/queue"
	"transportal/internal/student"
)

// Store is the slice of the repository the scan pipeline needs.
type Store interface {
	Get(ctx context.Context, shiftID string) (*Shift, error)
	InsertScan(ctx context.Context, rec ScanRecord) (ScanRecord, error)
}

// ScanInput is one scan request against an open shift.
type ScanInput struct {
	ShiftID      string
	Payload      string
	SupervisorID string
	Location     string
	Notes        string
}

// Service validates scans, resolves identity, and records attendance.
type Service struct {
	store    Store
	resolver student.Resolver
	queue    queue.Queue
	now      func() time.Time
}

// NewService creates the scan ingestion service. The queue may be nil when
// no worker is deployed.
func NewService(store Store, resolver student.Resolver, q queue.Queue) *Service {
	return &Service{store: store, resolver: resolver, queue: q, now: func() time.Time { return time.Now().UTC() }}
}

// Scan ingests one QR scan. The duplicate check is the insert itself: a
// second scan for the same student in the same shift fails on the unique
// index and surfaces as Conflict.
func (s *Service) Scan(ctx context.Context, in ScanInput) (ScanRecord, student.Summary, error) {
	if in.ShiftID == "" {
		return ScanRecord{}, student.Summary{}, apperr.New(apperr.Validation, "shift id is required")
	}

	sh, err := s.store.Get(ctx, in.ShiftID)
	if err != nil {
		return ScanRecord{}, student.Summary{}, err
	}
	if sh == nil {
		metrics.ScanRejected.Inc()
		return ScanRecord{}, student.Summary{}, apperr.New(apperr.NotFound, "shift not found")
	}
	if sh.Status != StatusOpen {
		metrics.ScanRejected.Inc()
		return ScanRecord{}, student.Summary{}, apperr.New(apperr.InvalidOp, "no active shift")
	}

	payload, err := ParsePayload(in.Payload)
	if err != nil {
		metrics.ScanRejected.Inc()
		return ScanRecord{}, student.Summary{}, err
	}

	st, err := s.resolve(ctx, payload)
	if err != nil {
		return ScanRecord{}, student.Summary{}, err
	}
	if st == nil {
		metrics.ScanRejected.Inc()
		return ScanRecord{}, student.Summary{}, apperr.New(apperr.NotFound, "student not found")
	}

	rec := ScanRecord{
		ShiftID:      sh.ID,
		StudentID:    st.ID,
		StudentCode:  firstNonEmpty(st.StudentCode, payload.Code),
		StudentName:  firstNonEmpty(st.Name, payload.Name),
		StudentEmail: firstNonEmpty(st.Email, payload.Email),
		College:      firstNonEmpty(st.College, payload.College),
		Major:        firstNonEmpty(st.Major, payload.Major),
		Grade:        firstNonEmpty(st.Grade, payload.Grade),
		ScanTime:     s.now(),
		Location:     in.Location,
		Notes:        in.Notes,
		Status:       "present",
		SupervisorID: firstNonEmpty(in.SupervisorID, sh.SupervisorID),
	}

	created, err := s.store.InsertScan(ctx, rec)
	if err != nil {
		if apperr.KindOf(err) == apperr.Conflict {
			metrics.ScanDuplicate.Inc()
		}
		return ScanRecord{}, student.Summary{}, err
	}
	metrics.ScanAccepted.Inc()

	if s.queue != nil {
		if err := s.queue.Publish(ctx, queue.Message{Type: queue.TypeShiftScan, Body: []byte(created.ID)}); err != nil {
			log.Printf("queue publish failed for scan %s: %v", created.ID, err)
		}
	}

	return created, st.Summarize(), nil
}

// resolve tries the embedded email first, then the student code.
func (s *Service) resolve(ctx context.Context, p Payload) (*student.Student, error) {
	if p.Email != "" {
		st, err := s.resolver.ByEmail(ctx, p.Email)
		if err != nil {
			return nil, err
		}
		if st != nil {
			return st, nil
		}
	}
	if p.Code != "" {
		return s.resolver.ByCode(ctx, p.Code)
	}
	return nil, nil
}
