package appointment

import (
	"context"
	"testing"
	"time"

	"transportal/internal/apperr"
	"transportal/internal/student"
)

type fakeStore struct {
	byID         map[string]Record
	byKey        map[string]string
	statsApplied int
	statsRevert  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[string]Record{}, byKey: map[string]string{}}
}

func slotKey(studentID, date string, slot Slot) string {
	return studentID + "|" + date + "|" + string(slot)
}

func (f *fakeStore) Create(_ context.Context, rec Record, applyStats bool) (Record, error) {
	key := slotKey(rec.StudentID, rec.Date, rec.Slot)
	if _, ok := f.byKey[key]; ok {
		return Record{}, apperr.New(apperr.Conflict, "attendance already recorded for this slot")
	}
	if rec.ID == "" {
		rec.ID = "rec-" + key
	}
	rec.CreatedAt = time.Now()
	f.byID[rec.ID] = rec
	f.byKey[key] = rec.ID
	if applyStats {
		f.statsApplied++
	}
	return rec, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) (Record, error) {
	rec, ok := f.byID[id]
	if !ok {
		return Record{}, apperr.New(apperr.NotFound, "attendance record not found")
	}
	delete(f.byID, id)
	delete(f.byKey, slotKey(rec.StudentID, rec.Date, rec.Slot))
	f.statsRevert++
	return rec, nil
}

func (f *fakeStore) ExistingForSlot(_ context.Context, studentID, date string, slot Slot) (*Record, error) {
	id, ok := f.byKey[slotKey(studentID, date, slot)]
	if !ok {
		return nil, nil
	}
	rec := f.byID[id]
	return &rec, nil
}

func (f *fakeStore) Update(_ context.Context, id, status string, notes *string) (Record, error) {
	rec, ok := f.byID[id]
	if !ok {
		return Record{}, apperr.New(apperr.NotFound, "attendance record not found")
	}
	rec.Status = status
	if notes != nil {
		rec.Notes = *notes
	}
	f.byID[id] = rec
	return rec, nil
}

func (f *fakeStore) List(_ context.Context, _ ListFilter) ([]Record, int, error) {
	var res []Record
	for _, rec := range f.byID {
		res = append(res, rec)
	}
	return res, len(res), nil
}

func (f *fakeStore) Today(_ context.Context, day string) (TodaySummary, error) {
	return TodaySummary{Date: day, Records: []Record{}}, nil
}

type fakeDirectory struct {
	students []*student.Student
}

func (f *fakeDirectory) Get(_ context.Context, id string) (*student.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) ByCode(_ context.Context, code string) (*student.Student, error) {
	for _, s := range f.students {
		if s.StudentCode == code {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeDirectory) ByEmail(_ context.Context, email string) (*student.Student, error) {
	for _, s := range f.students {
		if s.Email == email {
			return s, nil
		}
	}
	return nil, nil
}

func newTestService(store Store, dir StudentDirectory, nowMinute int) *Service {
	svc := NewService(store, dir, time.UTC)
	svc.now = func() time.Time { return at(nowMinute) }
	return svc
}

var testStudent = &student.Student{
	ID:          "0b2f8c36-5f0e-4d7b-9a65-0f4a1f1a2b3c",
	StudentCode: "20231045",
	Name:        "Sara Alotaibi",
	Email:       "sara@example.edu",
	College:     "Engineering",
}

func TestScanQRPresentAndLate(t *testing.T) {
	dir := &fakeDirectory{students: []*student.Student{testStudent}}

	svc := newTestService(newFakeStore(), dir, 480) // 08:00
	rec, summary, err := svc.ScanQR(context.Background(), ScanQRInput{
		QRData: `{"studentId":"20231045"}`, Slot: SlotFirst, StationName: "Gate A",
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if rec.Status != StatusPresent {
		t.Fatalf("status = %s, want present", rec.Status)
	}
	if summary.Name != testStudent.Name {
		t.Fatalf("summary name = %q", summary.Name)
	}

	svc = newTestService(newFakeStore(), dir, 510) // 08:30, past 08:20
	rec, _, err = svc.ScanQR(context.Background(), ScanQRInput{
		QRData: `{"studentId":"20231045"}`, Slot: SlotFirst,
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if rec.Status != StatusLate {
		t.Fatalf("status = %s, want late", rec.Status)
	}
}

func TestScanQRDuplicateSlot(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{students: []*student.Student{testStudent}}
	svc := newTestService(store, dir, 480)

	in := ScanQRInput{QRData: `{"email":"sara@example.edu"}`, Slot: SlotFirst}
	first, _, err := svc.ScanQR(context.Background(), in)
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}

	existing, _, err := svc.ScanQR(context.Background(), in)
	if err == nil {
		t.Fatal("expected conflict on second scan")
	}
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if existing.ID != first.ID {
		t.Fatalf("conflict should return the existing record, got %q want %q", existing.ID, first.ID)
	}
	if len(store.byID) != 1 {
		t.Fatalf("stored count = %d, want 1", len(store.byID))
	}
	if store.statsApplied != 1 {
		t.Fatalf("stats applied %d times, want 1", store.statsApplied)
	}
}

func TestScanQRValidation(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeDirectory{}, 480)

	if _, _, err := svc.ScanQR(context.Background(), ScanQRInput{QRData: "not-json", Slot: SlotFirst}); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("malformed payload: expected Validation, got %v", err)
	}
	if _, _, err := svc.ScanQR(context.Background(), ScanQRInput{QRData: `{"studentId":"x"}`, Slot: "third"}); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("bad slot: expected Validation, got %v", err)
	}
	if _, _, err := svc.ScanQR(context.Background(), ScanQRInput{QRData: `{"studentId":"unknown"}`, Slot: SlotFirst}); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("unknown student: expected NotFound, got %v", err)
	}
}

func TestMarkAbsentSkipsStanding(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{students: []*student.Student{testStudent}}
	svc := newTestService(store, dir, 480)

	rec, err := svc.MarkAbsent(context.Background(), testStudent.ID, SlotSecond, "2026-03-02")
	if err != nil {
		t.Fatalf("mark absent failed: %v", err)
	}
	if rec.Status != StatusAbsent {
		t.Fatalf("status = %s, want absent", rec.Status)
	}
	if store.statsApplied != 0 {
		t.Fatalf("absence must not consume a remaining day, stats applied %d times", store.statsApplied)
	}

	if _, err := svc.MarkAbsent(context.Background(), testStudent.ID, SlotSecond, "2026-03-02"); apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("duplicate mark-absent: expected Conflict, got %v", err)
	}
}

func TestDeleteRevertsStanding(t *testing.T) {
	store := newFakeStore()
	dir := &fakeDirectory{students: []*student.Student{testStudent}}
	svc := newTestService(store, dir, 480)

	rec, _, err := svc.ScanQR(context.Background(), ScanQRInput{QRData: `{"email":"sara@example.edu"}`, Slot: SlotFirst})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if _, err := svc.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if store.statsRevert != 1 {
		t.Fatalf("stats reverted %d times, want 1", store.statsRevert)
	}
	if _, err := svc.Delete(context.Background(), rec.ID); apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("second delete: expected NotFound, got %v", err)
	}
}

func TestUpdateValidatesStatus(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeDirectory{}, 480)
	if _, err := svc.Update(context.Background(), "some-id", "vanished", nil); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected Validation, got %v", err)
	}
}
