package student

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"transportal/internal/apperr"
)

// Repository persists student records in Postgres. It is also the default
// identity resolver for the scan pipelines.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, student_code, name, email, college, major, grade,
	days_registered, remaining_days, attendance_rate, status, created_at`

func scanStudent(row interface{ Scan(...any) error }) (*Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.StudentCode, &s.Name, &s.Email, &s.College, &s.Major, &s.Grade,
		&s.Stats.DaysRegistered, &s.Stats.RemainingDays, &s.Stats.AttendanceRate, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ByEmail resolves a student by email, case-insensitively.
func (r *Repository) ByEmail(ctx context.Context, email string) (*Student, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE lower(email) = $1`, email)
	return scanStudent(row)
}

// ByCode resolves a student by student code.
func (r *Repository) ByCode(ctx context.Context, code string) (*Student, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE upper(student_code) = upper($1)`, code)
	return scanStudent(row)
}

// Get returns a student by primary id. Non-UUID input resolves to nil so a
// scanned code can fall through to ByCode without a storage error.
func (r *Repository) Get(ctx context.Context, id string) (*Student, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

// List returns the roster ordered by student code.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Student, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY student_code LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	return res, rows.Err()
}

// LockStats reads a student's stats inside tx with a row lock, serializing
// concurrent stats mutations per student.
func LockStats(ctx context.Context, tx *sql.Tx, studentID string) (Stats, error) {
	var st Stats
	err := tx.QueryRowContext(ctx, `
		SELECT days_registered, remaining_days, attendance_rate
		FROM students WHERE id = $1 FOR UPDATE
	`, studentID).Scan(&st.DaysRegistered, &st.RemainingDays, &st.AttendanceRate)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, apperr.New(apperr.NotFound, "student not found")
	}
	return st, err
}

// SaveStats writes back stats and the status derived from them. Must run in
// the same tx as the LockStats that produced st.
func SaveStats(ctx context.Context, tx *sql.Tx, studentID string, st Stats) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE students
		SET days_registered = $2, remaining_days = $3, attendance_rate = $4, status = $5
		WHERE id = $1
	`, studentID, st.DaysRegistered, st.RemainingDays, st.AttendanceRate, Classify(st.RemainingDays))
	return err
}
