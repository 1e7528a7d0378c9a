package reporting

import (
	"context"
	"database/sql"
	"time"
)

// Repository pulls the raw rows the merged view is built from. Reads only.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ShiftRows returns scan records from shifts of any status, optionally
// filtered by a search term over name, email, and college.
func (r *Repository) ShiftRows(ctx context.Context, search string) ([]Row, error) {
	query := `
		SELECT sc.id, sc.student_name, sc.student_email, COALESCE(sc.college, ''),
			sc.status, sc.scan_time, sc.shift_id, COALESCE(sc.location, '')
		FROM shift_scans sc
		JOIN shifts sh ON sh.id = sc.shift_id`
	args := []any{}
	if search != "" {
		query += `
		WHERE sc.student_name ILIKE $1 OR sc.student_email ILIKE $1 OR sc.college ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += `
		ORDER BY sc.scan_time DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Row
	for rows.Next() {
		row := Row{Source: SourceShift}
		if err := rows.Scan(&row.RecordID, &row.StudentName, &row.StudentEmail, &row.College,
			&row.Status, &row.Timestamp, &row.ShiftID, &row.Location); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// AppointmentRows returns slot records joined with the roster, normalizing
// the alternate field names into the common shape. The timestamp is the
// check-in time; absence rows have none and use the record's creation time.
func (r *Repository) AppointmentRows(ctx context.Context, search string) ([]Row, error) {
	query := `
		SELECT a.id, s.name, s.email, COALESCE(s.college, ''), a.status, a.slot,
			a.check_in_time, a.created_at,
			COALESCE(a.station_location, ''), COALESCE(a.station_name, '')
		FROM appointment_records a
		JOIN students s ON s.id = a.student_id`
	args := []any{}
	if search != "" {
		query += `
		WHERE s.name ILIKE $1 OR s.email ILIKE $1 OR s.college ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += `
		ORDER BY a.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Row
	for rows.Next() {
		row := Row{Source: SourceAppointment}
		var checkIn sql.NullTime
		var createdAt time.Time
		var stationLocation, stationName string
		if err := rows.Scan(&row.RecordID, &row.StudentName, &row.StudentEmail, &row.College,
			&row.Status, &row.Slot, &checkIn, &createdAt, &stationLocation, &stationName); err != nil {
			return nil, err
		}
		row.Location = Coalesce(stationLocation, stationName)
		var checkedIn *time.Time
		if checkIn.Valid {
			checkedIn = &checkIn.Time
		}
		row.Timestamp = RowTimestamp(checkedIn, createdAt)
		res = append(res, row)
	}
	return res, rows.Err()
}
