package shift

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"transportal/internal/apperr"
)

// Repository persists shifts and their scan records in Postgres. The
// shift_scans table is the single source of truth; the shift's embedded
// record list is loaded from it on read.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const shiftColumns = `id, supervisor_id, supervisor_name, supervisor_email, status, shift_start, shift_end, total_scans`

func scanShift(row interface{ Scan(...any) error }) (*Shift, error) {
	var s Shift
	var name, email sql.NullString
	var end sql.NullTime
	err := row.Scan(&s.ID, &s.SupervisorID, &name, &email, &s.Status, &s.ShiftStart, &end, &s.TotalScans)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.SupervisorName = name.String
	s.SupervisorEmail = email.String
	if end.Valid {
		t := end.Time
		s.ShiftEnd = &t
	}
	s.AttendanceRecords = []ScanRecord{}
	return &s, nil
}

// Open creates a new open shift. Supervisors may hold several open shifts at
// once; no uniqueness is enforced here.
func (r *Repository) Open(ctx context.Context, supervisorID, supervisorName, supervisorEmail string) (Shift, error) {
	s := Shift{
		ID:                uuid.NewString(),
		SupervisorID:      supervisorID,
		SupervisorName:    supervisorName,
		SupervisorEmail:   supervisorEmail,
		Status:            StatusOpen,
		ShiftStart:        time.Now().UTC(),
		AttendanceRecords: []ScanRecord{},
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shifts (id, supervisor_id, supervisor_name, supervisor_email, status, shift_start, total_scans)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, 0)
	`, s.ID, s.SupervisorID, s.SupervisorName, s.SupervisorEmail, s.Status, s.ShiftStart)
	if err != nil {
		return Shift{}, err
	}
	return s, nil
}

// Close seals an open shift. An already-closed shift is indistinguishable
// from a missing one; both report NotFound.
func (r *Repository) Close(ctx context.Context, shiftID, supervisorID string) (Shift, error) {
	if uuid.Validate(shiftID) != nil {
		return Shift{}, apperr.New(apperr.NotFound, "no open shift found")
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE shifts
		SET status = $3, shift_end = NOW()
		WHERE id = $1 AND supervisor_id = $2 AND status = $4
		RETURNING `+shiftColumns+`
	`, shiftID, supervisorID, StatusClosed, StatusOpen)
	s, err := scanShift(row)
	if err != nil {
		return Shift{}, err
	}
	if s == nil {
		return Shift{}, apperr.New(apperr.NotFound, "no open shift found")
	}
	return *s, nil
}

// FindOpen returns the supervisor's most recent open shift, or nil.
func (r *Repository) FindOpen(ctx context.Context, supervisorID string) (*Shift, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE supervisor_id = $1 AND status = $2
		ORDER BY shift_start DESC
		LIMIT 1
	`, supervisorID, StatusOpen)
	return scanShift(row)
}

// Get returns the shift regardless of status, or nil when it does not exist.
func (r *Repository) Get(ctx context.Context, shiftID string) (*Shift, error) {
	if uuid.Validate(shiftID) != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts WHERE id = $1
	`, shiftID)
	return scanShift(row)
}

// List returns shifts with their embedded scan records.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Shift, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	query := `SELECT ` + shiftColumns + ` FROM shifts`
	args := []any{}
	clauses := []string{}
	if f.SupervisorID != "" {
		args = append(args, f.SupervisorID)
		clauses = append(clauses, fmt.Sprintf("supervisor_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		clauses = append(clauses, fmt.Sprintf("shift_start::date = $%d::date", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY shift_start DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Shift
	ids := []string{}
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return res, nil
	}

	byShift, err := r.recordsForShifts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range res {
		if recs, ok := byShift[res[i].ID]; ok {
			res[i].AttendanceRecords = recs
		}
	}
	return res, nil
}

const scanColumns = `id, shift_id, student_id, student_code, student_name, student_email,
	college, major, grade, scan_time, location, notes, status, supervisor_id, created_at`

func scanRecord(row interface{ Scan(...any) error }) (ScanRecord, error) {
	var rec ScanRecord
	var studentID, code, college, major, grade, location, notes, supervisor sql.NullString
	err := row.Scan(&rec.ID, &rec.ShiftID, &studentID, &code, &rec.StudentName, &rec.StudentEmail,
		&college, &major, &grade, &rec.ScanTime, &location, &notes, &rec.Status, &supervisor, &rec.CreatedAt)
	if err != nil {
		return ScanRecord{}, err
	}
	rec.StudentID = studentID.String
	rec.StudentCode = code.String
	rec.College = college.String
	rec.Major = major.String
	rec.Grade = grade.String
	rec.Location = location.String
	rec.Notes = notes.String
	rec.SupervisorID = supervisor.String
	return rec, nil
}

func (r *Repository) recordsForShifts(ctx context.Context, shiftIDs []string) (map[string][]ScanRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scanColumns+` FROM shift_scans
		WHERE shift_id = ANY($1)
		ORDER BY scan_time ASC
	`, shiftIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byShift := make(map[string][]ScanRecord)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		byShift[rec.ShiftID] = append(byShift[rec.ShiftID], rec)
	}
	return byShift, rows.Err()
}

// InsertScan writes a scan record and bumps the shift counter in one
// transaction. The unique index on (shift_id, lower(student_email)) makes
// the insert itself the duplicate check.
func (r *Repository) InsertScan(ctx context.Context, rec ScanRecord) (ScanRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ScanTime.IsZero() {
		rec.ScanTime = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = "present"
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ScanRecord{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO shift_scans (id, shift_id, student_id, student_code, student_name, student_email,
			college, major, grade, scan_time, location, notes, status, supervisor_id)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, $6, NULLIF($7,''), NULLIF($8,''),
			NULLIF($9,''), $10, NULLIF($11,''), NULLIF($12,''), $13, NULLIF($14,''))
		RETURNING created_at
	`, rec.ID, rec.ShiftID, rec.StudentID, rec.StudentCode, rec.StudentName, rec.StudentEmail,
		rec.College, rec.Major, rec.Grade, rec.ScanTime, rec.Location, rec.Notes, rec.Status, rec.SupervisorID)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ScanRecord{}, apperr.New(apperr.Conflict, "already scanned for this shift")
		}
		return ScanRecord{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE shifts SET total_scans = total_scans + 1 WHERE id = $1
	`, rec.ShiftID); err != nil {
		return ScanRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		return ScanRecord{}, err
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
