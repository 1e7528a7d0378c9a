package reporting

import (
	"sort"
	"strings"
	"time"
)

// Sources for a merged row.
const (
	SourceShift       = "shift"
	SourceAppointment = "appointment"
)

// Row is the common projection of a shift scan or an appointment record.
type Row struct {
	RecordID     string    `json:"record_id"`
	Source       string    `json:"source"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	College      string    `json:"college,omitempty"`
	Status       string    `json:"status"`
	Slot         string    `json:"appointment_slot,omitempty"`
	ShiftID      string    `json:"shift_id,omitempty"`
	Location     string    `json:"location,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// SourceCounts reports how many merged rows each store contributed.
type SourceCounts struct {
	Shift       int `json:"shift"`
	Appointment int `json:"appointment"`
}

// Result is one page of the merged view.
type Result struct {
	Records []Row        `json:"records"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
	Total   int          `json:"total"`
	Pages   int          `json:"pages"`
	Sources SourceCounts `json:"sources"`
}

// PageRequest carries pagination and sorting for the merged view.
type PageRequest struct {
	Page      int
	Limit     int
	SortBy    string // "timestamp", "name", or "email"
	SortOrder string // "asc" or "desc"
}

// dedupKey collapses a student's attendance to one row per calendar day,
// whichever source or slot it came from.
func dedupKey(r Row) string {
	return strings.ToLower(r.StudentEmail) + "|" + r.Timestamp.Format("2006-01-02")
}

// Merge concatenates both sources, deduplicates by (email, day) keeping the
// first-encountered row, sorts, and pages. This is a read-side
// reconciliation only; the stores themselves are never modified.
func Merge(shiftRows, appointmentRows []Row, req PageRequest) Result {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	combined := make([]Row, 0, len(shiftRows)+len(appointmentRows))
	combined = append(combined, shiftRows...)
	combined = append(combined, appointmentRows...)

	seen := make(map[string]struct{}, len(combined))
	deduped := make([]Row, 0, len(combined))
	var sources SourceCounts
	for _, r := range combined {
		key := dedupKey(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, r)
		if r.Source == SourceShift {
			sources.Shift++
		} else {
			sources.Appointment++
		}
	}

	sortRows(deduped, req.SortBy, req.SortOrder)

	total := len(deduped)
	pages := (total + req.Limit - 1) / req.Limit
	start := (req.Page - 1) * req.Limit
	if start > total {
		start = total
	}
	end := start + req.Limit
	if end > total {
		end = total
	}

	return Result{
		Records: deduped[start:end],
		Page:    req.Page,
		Limit:   req.Limit,
		Total:   total,
		Pages:   pages,
		Sources: sources,
	}
}

func sortRows(rows []Row, sortBy, sortOrder string) {
	desc := strings.EqualFold(sortOrder, "desc")
	less := func(a, b Row) bool { return a.Timestamp.Before(b.Timestamp) }
	switch sortBy {
	case "name":
		less = func(a, b Row) bool { return strings.ToLower(a.StudentName) < strings.ToLower(b.StudentName) }
	case "email":
		less = func(a, b Row) bool { return strings.ToLower(a.StudentEmail) < strings.ToLower(b.StudentEmail) }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

// RowTimestamp picks a record's timestamp: the check-in time when present,
// otherwise the record's creation time. Absence rows never have a check-in.
func RowTimestamp(checkIn *time.Time, createdAt time.Time) time.Time {
	if checkIn != nil {
		return *checkIn
	}
	return createdAt
}

// Coalesce returns the first non-empty value, used to normalize the two
// stores' field-name variants into the common shape.
func Coalesce(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
