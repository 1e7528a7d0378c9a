package shift

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"transportal/internal/apperr"
	"transportal/internal/queue"
	"transportal/internal/student"
)

type fakeStore struct {
	shifts map[string]*Shift
	seen   map[string]struct{}
}

func newFakeStore(shifts ...*Shift) *fakeStore {
	f := &fakeStore{shifts: map[string]*Shift{}, seen: map[string]struct{}{}}
	for _, s := range shifts {
		f.shifts[s.ID] = s
	}
	return f
}

func (f *fakeStore) Get(_ context.Context, shiftID string) (*Shift, error) {
	s, ok := f.shifts[shiftID]
	if !ok {
		return nil, nil
	}
	return s, nil
}

// InsertScan mirrors the unique-index behavior of the real repository.
func (f *fakeStore) InsertScan(_ context.Context, rec ScanRecord) (ScanRecord, error) {
	key := rec.ShiftID + "|" + strings.ToLower(rec.StudentEmail)
	if _, dup := f.seen[key]; dup {
		return ScanRecord{}, apperr.New(apperr.Conflict, "already scanned for this shift")
	}
	f.seen[key] = struct{}{}
	rec.ID = fmt.Sprintf("scan-%d", len(f.seen))
	rec.CreatedAt = time.Now()
	s := f.shifts[rec.ShiftID]
	s.AttendanceRecords = append(s.AttendanceRecords, rec)
	s.TotalScans++
	return rec, nil
}

type fakeResolver struct {
	students []*student.Student
}

func (f *fakeResolver) ByEmail(_ context.Context, email string) (*student.Student, error) {
	for _, s := range f.students {
		if strings.EqualFold(s.Email, email) {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeResolver) ByCode(_ context.Context, code string) (*student.Student, error) {
	for _, s := range f.students {
		if strings.EqualFold(s.StudentCode, code) {
			return s, nil
		}
	}
	return nil, nil
}

func openShift(id string) *Shift {
	return &Shift{
		ID:           id,
		SupervisorID: "sup-1",
		Status:       StatusOpen,
		ShiftStart:   time.Now().Add(-time.Hour),
	}
}

var roster = &fakeResolver{students: []*student.Student{
	{ID: "s-1", StudentCode: "20231045", Name: "Sara Alotaibi", Email: "x@e.edu", College: "Engineering"},
	{ID: "s-2", StudentCode: "20231099", Name: "Omar Hassan", Email: "omar@e.edu"},
}}

func TestScanRequiresOpenShift(t *testing.T) {
	closed := openShift("shift-1")
	closed.Status = StatusClosed
	svc := NewService(newFakeStore(closed), roster, nil)

	_, _, err := svc.Scan(context.Background(), ScanInput{ShiftID: "shift-1", Payload: "20231045"})
	if apperr.KindOf(err) != apperr.InvalidOp {
		t.Fatalf("expected InvalidOp for closed shift, got %v", err)
	}

	_, _, err = svc.Scan(context.Background(), ScanInput{ShiftID: "missing", Payload: "20231045"})
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("expected NotFound for missing shift, got %v", err)
	}
}

func TestScanUnknownStudent(t *testing.T) {
	svc := NewService(newFakeStore(openShift("shift-1")), roster, nil)
	_, _, err := svc.Scan(context.Background(), ScanInput{ShiftID: "shift-1", Payload: `{"email":"nobody@e.edu"}`})
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestScanDedup(t *testing.T) {
	store := newFakeStore(openShift("shift-1"))
	svc := NewService(store, roster, nil)

	rec, summary, err := svc.Scan(context.Background(), ScanInput{ShiftID: "shift-1", Payload: `{"email":"x@e.edu"}`})
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if rec.StudentEmail != "x@e.edu" || summary.Name != "Sara Alotaibi" {
		t.Fatalf("unexpected result: rec=%+v summary=%+v", rec, summary)
	}
	if store.shifts["shift-1"].TotalScans != 1 {
		t.Fatalf("totalScans = %d, want 1", store.shifts["shift-1"].TotalScans)
	}

	_, _, err = svc.Scan(context.Background(), ScanInput{ShiftID: "shift-1", Payload: `{"email":"x@e.edu"}`})
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "already scanned") {
		t.Fatalf("conflict message = %q", err.Error())
	}
	if store.shifts["shift-1"].TotalScans != 1 {
		t.Fatalf("totalScans after duplicate = %d, want 1", store.shifts["shift-1"].TotalScans)
	}
}

func TestScanCounterInvariant(t *testing.T) {
	store := newFakeStore(openShift("shift-1"))
	svc := NewService(store, roster, nil)

	// Two distinct students, then a duplicate that must not count.
	payloads := []string{`{"email":"x@e.edu"}`, "20231099", `{"email":"X@E.EDU"}`}
	accepted := 0
	for _, p := range payloads {
		if _, _, err := svc.Scan(context.Background(), ScanInput{ShiftID: "shift-1", Payload: p}); err == nil {
			accepted++
		}
	}
	s := store.shifts["shift-1"]
	if accepted != 2 {
		t.Fatalf("accepted = %d, want 2", accepted)
	}
	if s.TotalScans != accepted || len(s.AttendanceRecords) != accepted {
		t.Fatalf("invariant broken: totalScans=%d records=%d accepted=%d", s.TotalScans, len(s.AttendanceRecords), accepted)
	}
}

func TestScanIdentityFallbacks(t *testing.T) {
	store := newFakeStore(openShift("shift-1"))
	svc := NewService(store, roster, nil)

	// Roster has no college for Omar; the payload supplies one.
	rec, _, err := svc.Scan(context.Background(), ScanInput{
		ShiftID: "shift-1",
		Payload: `{"student_id":"20231099","college":"Business"}`,
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if rec.StudentName != "Omar Hassan" {
		t.Fatalf("name = %q, roster value must win", rec.StudentName)
	}
	if rec.College != "Business" {
		t.Fatalf("college = %q, payload fallback must fill the gap", rec.College)
	}
}

func TestScanPublishesToQueue(t *testing.T) {
	store := newFakeStore(openShift("shift-1"))
	q := queue.NewInMemory(4)
	svc := NewService(store, roster, q)

	rec, _, err := svc.Scan(context.Background(), ScanInput{ShiftID: "shift-1", Payload: "20231045"})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	messages, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	select {
	case msg := <-messages:
		if msg.Type != queue.TypeShiftScan || string(msg.Body) != rec.ID {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-ctx.Done():
		t.Fatal("no message published")
	}
}
