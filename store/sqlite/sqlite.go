/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements engine.Repository plus the list/save operations the HTTP API
  needs, using SQLite. In production, the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

SOFT-DELETE CONTRACT:
  The schedules table has no DELETE path. Bookings leave circulation by
  having status set to 'deleted'; FindBookings excludes them by default so
  every overlap and capacity query sees only live rows.

KEY TABLES:
  students:     Lesson participants (auto-provisioned rows included)
  instructors:  Teaching resources, must pre-exist before booking
  class_types:  Lesson categories, must pre-exist before booking
  schedules:    Bookings, keyed by registration id

INDEXES:
  Same-day resource queries are the hot path of a batch run, so each
  resource id is indexed together with the stored start instant.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The engine itself is strictly
  sequential; the mutex guards the API's read endpoints against a running
  batch.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency
  and crash recovery.

USAGE:
  st, err := sqlite.New("./data/lessons.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  eng := engine.New(st, engine.ConfigFromEnv())

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/repository.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/lesson-engine/engine"
)

// Store implements engine.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		student_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS instructors (
		instructor_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS class_types (
		class_type_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Bookings. Soft-deleted rows keep their place; status drives visibility.
	CREATE TABLE IF NOT EXISTS schedules (
		registration_id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		instructor_id TEXT NOT NULL,
		class_type_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		duration INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Same-day resource scans are the engine's hot path.
	CREATE INDEX IF NOT EXISTS idx_schedules_instructor_date
		ON schedules(instructor_id, date);
	CREATE INDEX IF NOT EXISTS idx_schedules_student_date
		ON schedules(student_id, date);
	CREATE INDEX IF NOT EXISTS idx_schedules_class_type_date
		ON schedules(class_type_id, date);
	CREATE INDEX IF NOT EXISTS idx_schedules_status
		ON schedules(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPOSITORY (engine.Repository interface)
// =============================================================================

// FindStudent retrieves a student by id. Returns (nil, nil) when missing.
func (s *Store) FindStudent(ctx context.Context, studentID string) (*engine.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st engine.Student
	err := s.db.QueryRowContext(ctx,
		"SELECT student_id, name FROM students WHERE student_id = ?",
		studentID,
	).Scan(&st.StudentID, &st.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// CreateStudent saves a student, updating the name if the id already exists.
func (s *Store) CreateStudent(ctx context.Context, st engine.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO students (student_id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(student_id) DO UPDATE SET
			name = excluded.name
	`
	_, err := s.db.ExecContext(ctx, query, st.StudentID, st.Name, nowRFC3339())
	return err
}

// FindInstructor retrieves an instructor by id. Returns (nil, nil) when missing.
func (s *Store) FindInstructor(ctx context.Context, instructorID string) (*engine.Instructor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var in engine.Instructor
	err := s.db.QueryRowContext(ctx,
		"SELECT instructor_id, name FROM instructors WHERE instructor_id = ?",
		instructorID,
	).Scan(&in.InstructorID, &in.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// CreateInstructor saves an instructor.
func (s *Store) CreateInstructor(ctx context.Context, in engine.Instructor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO instructors (instructor_id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(instructor_id) DO UPDATE SET
			name = excluded.name
	`
	_, err := s.db.ExecContext(ctx, query, in.InstructorID, in.Name, nowRFC3339())
	return err
}

// FindClassType retrieves a class type by id. Returns (nil, nil) when missing.
func (s *Store) FindClassType(ctx context.Context, classTypeID string) (*engine.ClassType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ct engine.ClassType
	err := s.db.QueryRowContext(ctx,
		"SELECT class_type_id, name FROM class_types WHERE class_type_id = ?",
		classTypeID,
	).Scan(&ct.ClassTypeID, &ct.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

// CreateClassType saves a class type.
func (s *Store) CreateClassType(ctx context.Context, ct engine.ClassType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO class_types (class_type_id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(class_type_id) DO UPDATE SET
			name = excluded.name
	`
	_, err := s.db.ExecContext(ctx, query, ct.ClassTypeID, ct.Name, nowRFC3339())
	return err
}

// FindBooking retrieves a booking by registration id, soft-deleted ones
// included. Returns (nil, nil) when missing.
func (s *Store) FindBooking(ctx context.Context, registrationID string) (*engine.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT registration_id, student_id, instructor_id, class_type_id,
		       date, start_time, duration, status
		FROM schedules
		WHERE registration_id = ?
	`

	bookings, err := s.queryBookings(ctx, query, registrationID)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, nil
	}
	return &bookings[0], nil
}

// FindBookings returns bookings matching the filter, ordered by start
// instant. Soft-deleted rows are excluded unless the filter includes them.
func (s *Store) FindBookings(ctx context.Context, filter engine.BookingFilter) ([]engine.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.StudentID != "" {
		where = append(where, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.InstructorID != "" {
		where = append(where, "instructor_id = ?")
		args = append(args, filter.InstructorID)
	}
	if filter.ClassTypeID != "" {
		where = append(where, "class_type_id = ?")
		args = append(args, filter.ClassTypeID)
	}
	if !filter.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatInstant(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, formatInstant(filter.To))
	}
	if filter.ExcludeRegistrationID != "" {
		where = append(where, "registration_id != ?")
		args = append(args, filter.ExcludeRegistrationID)
	}
	if !filter.IncludeDeleted {
		where = append(where, "status != ?")
		args = append(args, string(engine.BookingDeleted))
	}

	query := `
		SELECT registration_id, student_id, instructor_id, class_type_id,
		       date, start_time, duration, status
		FROM schedules
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, registration_id ASC"

	return s.queryBookings(ctx, query, args...)
}

// CreateBooking inserts a booking. Registration ids are unique; a duplicate
// insert fails rather than silently overwriting.
func (s *Store) CreateBooking(ctx context.Context, b engine.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO schedules
		(registration_id, student_id, instructor_id, class_type_id, date,
		 start_time, duration, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := nowRFC3339()
	_, err := s.db.ExecContext(ctx, query,
		b.RegistrationID, b.StudentID, b.InstructorID, b.ClassTypeID,
		formatInstant(b.Date), b.StartTime, b.Duration, string(b.Status),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// UpdateBooking replaces the stored booking identified by its registration id.
func (s *Store) UpdateBooking(ctx context.Context, b engine.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE schedules SET
			student_id = ?,
			instructor_id = ?,
			class_type_id = ?,
			date = ?,
			start_time = ?,
			duration = ?,
			status = ?,
			updated_at = ?
		WHERE registration_id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		b.StudentID, b.InstructorID, b.ClassTypeID,
		formatInstant(b.Date), b.StartTime, b.Duration, string(b.Status),
		nowRFC3339(), b.RegistrationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no booking with registration id %s", b.RegistrationID)
	}
	return nil
}

func (s *Store) queryBookings(ctx context.Context, query string, args ...any) ([]engine.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []engine.Booking
	for rows.Next() {
		var (
			b      engine.Booking
			date   string
			status string
		)
		if err := rows.Scan(
			&b.RegistrationID, &b.StudentID, &b.InstructorID, &b.ClassTypeID,
			&date, &b.StartTime, &b.Duration, &status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		parsed, _ := time.Parse(time.RFC3339, date)
		// Interval arithmetic recombines the StartTime clock onto the date's
		// calendar day, so the instant must come back in the zone rows are
		// created in, not as a bare UTC instant.
		b.Date = parsed.In(time.Local)
		b.Status = engine.BookingStatus(status)
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// =============================================================================
// LIST QUERIES (for the API)
// =============================================================================

// ListStudents returns all students ordered by id.
func (s *Store) ListStudents(ctx context.Context) ([]engine.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT student_id, name FROM students ORDER BY student_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []engine.Student
	for rows.Next() {
		var st engine.Student
		if err := rows.Scan(&st.StudentID, &st.Name); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// ListInstructors returns all instructors ordered by id.
func (s *Store) ListInstructors(ctx context.Context) ([]engine.Instructor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT instructor_id, name FROM instructors ORDER BY instructor_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instructors []engine.Instructor
	for rows.Next() {
		var in engine.Instructor
		if err := rows.Scan(&in.InstructorID, &in.Name); err != nil {
			return nil, err
		}
		instructors = append(instructors, in)
	}
	return instructors, rows.Err()
}

// ListClassTypes returns all class types ordered by id.
func (s *Store) ListClassTypes(ctx context.Context) ([]engine.ClassType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT class_type_id, name FROM class_types ORDER BY class_type_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classTypes []engine.ClassType
	for rows.Next() {
		var ct engine.ClassType
		if err := rows.Scan(&ct.ClassTypeID, &ct.Name); err != nil {
			return nil, err
		}
		classTypes = append(classTypes, ct)
	}
	return classTypes, rows.Err()
}

// ListBookings returns every booking, soft-deleted ones included.
func (s *Store) ListBookings(ctx context.Context) ([]engine.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT registration_id, student_id, instructor_id, class_type_id,
		       date, start_time, duration, status
		FROM schedules
		ORDER BY date ASC, registration_id ASC
	`
	return s.queryBookings(ctx, query)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for seeding/tests).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"schedules", "students", "instructors", "class_types"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Instants are stored as UTC RFC3339 strings so range predicates can compare
// lexicographically. queryBookings converts them back to local time on read.
func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
