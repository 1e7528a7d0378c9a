package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"transportal/internal/apperr"
	"transportal/internal/student"
)

// Repository persists appointment-slot records and applies the standing
// updates that accompany them. Record insert/delete and the student stats
// mutation run in one transaction; the student row lock serializes
// concurrent check-ins for the same student.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `a.id, a.student_id, s.name, s.email, s.college, a.att_date::text, a.slot, a.status,
	a.check_in_time, a.station_name, a.station_location, a.coordinates, a.supervisor_id, a.notes, a.created_at`

const recordFrom = ` FROM appointment_records a JOIN students s ON s.id = a.student_id`

func scanRow(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	var name, email, college, station, stationLoc, coords, supervisor, notes sql.NullString
	var checkIn sql.NullTime
	err := row.Scan(&rec.ID, &rec.StudentID, &name, &email, &college, &rec.Date, &rec.Slot, &rec.Status,
		&checkIn, &station, &stationLoc, &coords, &supervisor, &notes, &rec.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	rec.StudentName = name.String
	rec.StudentEmail = email.String
	rec.StudentCollege = college.String
	if checkIn.Valid {
		t := checkIn.Time
		rec.CheckInTime = &t
	}
	rec.StationName = station.String
	rec.StationLocation = stationLoc.String
	rec.Coordinates = coords.String
	rec.SupervisorID = supervisor.String
	rec.Notes = notes.String
	return rec, nil
}

// Create inserts a record. When applyStats is set the student's standing is
// advanced in the same transaction; mark-absent inserts skip this on purpose
// since an absence does not consume a remaining day.
func (r *Repository) Create(ctx context.Context, rec Record, applyStats bool) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO appointment_records (id, student_id, att_date, slot, status, check_in_time,
			station_name, station_location, coordinates, supervisor_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), NULLIF($8,''), NULLIF($9,''), NULLIF($10,''), NULLIF($11,''))
		RETURNING created_at
	`, rec.ID, rec.StudentID, rec.Date, rec.Slot, rec.Status, rec.CheckInTime,
		rec.StationName, rec.StationLocation, rec.Coordinates, rec.SupervisorID, rec.Notes)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Record{}, apperr.New(apperr.Conflict, "attendance already recorded for this slot")
		}
		return Record{}, err
	}

	if applyStats {
		if err := r.applyStanding(ctx, tx, rec.StudentID, student.Advance); err != nil {
			return Record{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete removes a record and reverts the student's standing.
func (r *Repository) Delete(ctx context.Context, id string) (Record, error) {
	if uuid.Validate(id) != nil {
		return Record{}, apperr.New(apperr.NotFound, "attendance record not found")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+recordColumns+recordFrom+` WHERE a.id = $1 FOR UPDATE OF a
	`, id)
	rec, err := scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, apperr.New(apperr.NotFound, "attendance record not found")
		}
		return Record{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM appointment_records WHERE id = $1`, id); err != nil {
		return Record{}, err
	}

	if err := r.applyStanding(ctx, tx, rec.StudentID, student.Revert); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// applyStanding mutates the locked student row using the pure standing
// functions. The rate counts run inside the same transaction, so they see
// the insert or delete that triggered the update.
func (r *Repository) applyStanding(ctx context.Context, tx *sql.Tx, studentID string, step func(student.Stats) student.Stats) error {
	stats, err := student.LockStats(ctx, tx, studentID)
	if err != nil {
		return err
	}
	stats = step(stats)

	var presentOrLate, total int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE status IN ($2, $3)), COUNT(*)
		FROM appointment_records WHERE student_id = $1
	`, studentID, StatusPresent, StatusLate).Scan(&presentOrLate, &total)
	if err != nil {
		return err
	}
	stats.AttendanceRate = student.Rate(presentOrLate, total)

	return student.SaveStats(ctx, tx, studentID, stats)
}

// ExistingForSlot returns the record for (student, date, slot), or nil.
func (r *Repository) ExistingForSlot(ctx context.Context, studentID, date string, slot Slot) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+recordFrom+`
		WHERE a.student_id = $1 AND a.att_date = $2 AND a.slot = $3
	`, studentID, date, slot)
	rec, err := scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Get returns a record by id.
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+recordFrom+` WHERE a.id = $1`, id)
	rec, err := scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Update changes a record's status and, optionally, its notes.
func (r *Repository) Update(ctx context.Context, id, status string, notes *string) (Record, error) {
	if uuid.Validate(id) != nil {
		return Record{}, apperr.New(apperr.NotFound, "attendance record not found")
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE appointment_records
		SET status = $2, notes = COALESCE($3, notes)
		WHERE id = $1
		RETURNING id
	`, id, status, notes)
	var updated string
	if err := row.Scan(&updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, apperr.New(apperr.NotFound, "attendance record not found")
		}
		return Record{}, err
	}
	rec, err := r.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	return *rec, nil
}

// List returns records matching the filter plus a total count for paging.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Record, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	args := []any{}
	clauses := []string{}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		clauses = append(clauses, fmt.Sprintf("a.student_id = $%d", len(args)))
	}
	if f.DateFrom != "" {
		args = append(args, f.DateFrom)
		clauses = append(clauses, fmt.Sprintf("a.att_date >= $%d", len(args)))
	}
	if f.DateTo != "" {
		args = append(args, f.DateTo)
		clauses = append(clauses, fmt.Sprintf("a.att_date <= $%d", len(args)))
	}
	if f.Slot != "" {
		args = append(args, f.Slot)
		clauses = append(clauses, fmt.Sprintf("a.slot = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("a.status = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + clauses[0]
		for _, c := range clauses[1:] {
			where += " AND " + c
		}
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+recordFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := `SELECT ` + recordColumns + recordFrom + where +
		fmt.Sprintf(" ORDER BY a.att_date DESC, a.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, rec)
	}
	return res, total, rows.Err()
}

// Today aggregates the given calendar day per slot and status.
func (r *Repository) Today(ctx context.Context, day string) (TodaySummary, error) {
	recs, _, err := r.List(ctx, ListFilter{DateFrom: day, DateTo: day, Limit: 1000})
	if err != nil {
		return TodaySummary{}, err
	}
	summary := TodaySummary{Date: day, Records: recs}
	if summary.Records == nil {
		summary.Records = []Record{}
	}
	for _, rec := range recs {
		counts := &summary.First
		if rec.Slot == SlotSecond {
			counts = &summary.Second
		}
		counts.Total++
		switch rec.Status {
		case StatusPresent:
			counts.Present++
		case StatusLate:
			counts.Late++
		case StatusAbsent:
			counts.Absent++
		}
	}
	return summary, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
