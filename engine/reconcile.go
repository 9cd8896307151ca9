/*
reconcile.go - The per-row reconciliation state machine

PURPOSE:
  Applies a batch of instructions against the booking set, one row at a
  time, in the order given. Each accepted row is persisted before the next
  row is evaluated, so later rows see earlier writes. Each row yields
  exactly one outcome; failures are row-scoped and never abort the batch.

CHECK ORDER (new):
  instructor-overlap -> instructor-cap -> student-overlap -> student-cap ->
  classtype-cap. The first failing check wins; only that error is reported.
  Capacity is checked against the count BEFORE the new booking is added.

UPDATE SEMANTICS:
  Only a date or start-time change triggers conflict re-checks, against
  same-day bookings excluding the booking being updated. Capacity is not
  re-checked on update. Instructor and class type ids are validated before
  being applied; a new student id is applied without an existence check
  (students are auto-provisioned on create, so an unknown id is not treated
  as corrupt anywhere).

CONCURRENCY:
  The engine is single-threaded over the row list and performs no locking;
  it assumes it is the sole writer for the batch's lifetime.

SEE ALSO:
  - time.go: Interval arithmetic used by the checks
  - report.go: Outcome accumulation
*/
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine reconciles instruction batches against a Repository.
type Engine struct {
	repo  Repository
	cfg   Config
	clock func() time.Time
}

// New creates an engine. Zero-valued config fields are replaced with the
// defaults so a partially filled Config cannot disable a cap.
func New(repo Repository, cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.ClassDuration <= 0 {
		cfg.ClassDuration = defaults.ClassDuration
	}
	if cfg.MaxStudentClasses <= 0 {
		cfg.MaxStudentClasses = defaults.MaxStudentClasses
	}
	if cfg.MaxInstructorClasses <= 0 {
		cfg.MaxInstructorClasses = defaults.MaxInstructorClasses
	}
	if cfg.MaxClassTypeClasses <= 0 {
		cfg.MaxClassTypeClasses = defaults.MaxClassTypeClasses
	}
	return &Engine{repo: repo, cfg: cfg, clock: time.Now}
}

// WithClock overrides the wall clock. The clock feeds registration id
// generation and the lenient fallback for unparseable dates.
func (e *Engine) WithClock(fn func() time.Time) *Engine {
	e.clock = fn
	return e
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// ProcessBatch applies instructions strictly sequentially and returns one
// outcome per row, in input order. Row failures, including storage errors,
// are recorded and processing continues with the next row.
func (e *Engine) ProcessBatch(ctx context.Context, instructions []Instruction) BatchReport {
	reporter := &Reporter{}
	for _, in := range instructions {
		reporter.Record(e.processRow(ctx, in))
	}
	return reporter.Report()
}

func (e *Engine) processRow(ctx context.Context, in Instruction) RowOutcome {
	var (
		out RowOutcome
		err error
	)
	switch in.Action {
	case ActionNew:
		out, err = e.create(ctx, in)
	case ActionUpdate:
		out, err = e.update(ctx, in)
	case ActionDelete:
		out, err = e.remove(ctx, in)
	default:
		err = &UnknownActionError{Action: string(in.Action)}
	}
	if err != nil {
		return RowOutcome{Status: StatusError, Message: err.Error()}
	}
	return out
}

// =============================================================================
// NEW
// =============================================================================

func (e *Engine) create(ctx context.Context, in Instruction) (RowOutcome, error) {
	now := e.clock()
	start := ResolveStart(in.DateStr, in.StartTimeStr, now)
	end := ResolveEnd(start, e.cfg.ClassDuration)

	instructor, err := e.repo.FindInstructor(ctx, in.InstructorID)
	if err != nil {
		return RowOutcome{}, err
	}
	if instructor == nil {
		return RowOutcome{}, &InvalidReferenceError{Field: "instructorId", ID: in.InstructorID}
	}

	classType, err := e.repo.FindClassType(ctx, in.ClassTypeID)
	if err != nil {
		return RowOutcome{}, err
	}
	if classType == nil {
		return RowOutcome{}, &InvalidReferenceError{Field: "classTypeId", ID: in.ClassTypeID}
	}

	// An empty student id would auto-provision student "" and turn the
	// same-day filter into a match-everything query. All three references
	// are required.
	if in.StudentID == "" {
		return RowOutcome{}, &InvalidReferenceError{Field: "studentId", ID: in.StudentID}
	}

	student, err := e.repo.FindStudent(ctx, in.StudentID)
	if err != nil {
		return RowOutcome{}, err
	}
	if student == nil {
		// Unknown students are provisioned with a placeholder name.
		if err := e.repo.CreateStudent(ctx, Student{
			StudentID: in.StudentID,
			Name:      fmt.Sprintf("Student %s", in.StudentID),
		}); err != nil {
			return RowOutcome{}, err
		}
	}

	dayStart, dayEnd := DayWindow(start)

	instructorBookings, err := e.repo.FindBookings(ctx, BookingFilter{
		InstructorID: in.InstructorID,
		From:         dayStart,
		To:           dayEnd,
	})
	if err != nil {
		return RowOutcome{}, err
	}
	if err := e.firstOverlap(instructorBookings, start, end, "Instructor", in.InstructorID); err != nil {
		return RowOutcome{}, err
	}
	if len(instructorBookings) >= e.cfg.MaxInstructorClasses {
		return RowOutcome{}, &CapacityError{Resource: "Instructor", ID: in.InstructorID, Max: e.cfg.MaxInstructorClasses}
	}

	studentBookings, err := e.repo.FindBookings(ctx, BookingFilter{
		StudentID: in.StudentID,
		From:      dayStart,
		To:        dayEnd,
	})
	if err != nil {
		return RowOutcome{}, err
	}
	if err := e.firstOverlap(studentBookings, start, end, "Student", in.StudentID); err != nil {
		return RowOutcome{}, err
	}
	if len(studentBookings) >= e.cfg.MaxStudentClasses {
		return RowOutcome{}, &CapacityError{Resource: "Student", ID: in.StudentID, Max: e.cfg.MaxStudentClasses}
	}

	// Class types carry only a capacity cap, no overlap rule: distinct
	// instructors may teach the same class type simultaneously.
	classTypeBookings, err := e.repo.FindBookings(ctx, BookingFilter{
		ClassTypeID: in.ClassTypeID,
		From:        dayStart,
		To:          dayEnd,
	})
	if err != nil {
		return RowOutcome{}, err
	}
	if len(classTypeBookings) >= e.cfg.MaxClassTypeClasses {
		return RowOutcome{}, &CapacityError{Resource: "Class type", ID: in.ClassTypeID, Max: e.cfg.MaxClassTypeClasses}
	}

	booking := Booking{
		RegistrationID: e.newRegistrationID(now),
		StudentID:      in.StudentID,
		InstructorID:   in.InstructorID,
		ClassTypeID:    in.ClassTypeID,
		Date:           start,
		StartTime:      start.Format("15:04"),
		Duration:       e.cfg.ClassDuration,
		Status:         BookingScheduled,
	}
	if err := e.repo.CreateBooking(ctx, booking); err != nil {
		return RowOutcome{}, err
	}

	return RowOutcome{
		Status:         StatusSuccess,
		Message:        "New schedule created",
		RegistrationID: booking.RegistrationID,
	}, nil
}

// =============================================================================
// UPDATE
// =============================================================================

func (e *Engine) update(ctx context.Context, in Instruction) (RowOutcome, error) {
	booking, err := e.repo.FindBooking(ctx, in.RegistrationID)
	if err != nil {
		return RowOutcome{}, err
	}
	if booking == nil {
		return RowOutcome{}, &NotFoundError{RegistrationID: in.RegistrationID}
	}

	if in.DateStr != "" || in.StartTimeStr != "" {
		start := e.resolveUpdateStart(*booking, in)
		duration := booking.Duration
		if duration <= 0 {
			duration = e.cfg.ClassDuration
		}
		end := ResolveEnd(start, duration)
		dayStart, dayEnd := DayWindow(start)

		// Conflicts are checked against the possibly-updated resource ids,
		// excluding the booking being moved.
		instructorID := in.InstructorID
		if instructorID == "" {
			instructorID = booking.InstructorID
		}
		instructorBookings, err := e.repo.FindBookings(ctx, BookingFilter{
			InstructorID:          instructorID,
			From:                  dayStart,
			To:                    dayEnd,
			ExcludeRegistrationID: in.RegistrationID,
		})
		if err != nil {
			return RowOutcome{}, err
		}
		if err := e.firstOverlap(instructorBookings, start, end, "Instructor", instructorID); err != nil {
			return RowOutcome{}, err
		}

		studentID := in.StudentID
		if studentID == "" {
			studentID = booking.StudentID
		}
		studentBookings, err := e.repo.FindBookings(ctx, BookingFilter{
			StudentID:             studentID,
			From:                  dayStart,
			To:                    dayEnd,
			ExcludeRegistrationID: in.RegistrationID,
		})
		if err != nil {
			return RowOutcome{}, err
		}
		if err := e.firstOverlap(studentBookings, start, end, "Student", studentID); err != nil {
			return RowOutcome{}, err
		}

		booking.Date = start
		booking.StartTime = start.Format("15:04")
	}

	if in.InstructorID != "" {
		instructor, err := e.repo.FindInstructor(ctx, in.InstructorID)
		if err != nil {
			return RowOutcome{}, err
		}
		if instructor == nil {
			return RowOutcome{}, &InvalidReferenceError{Field: "instructorId", ID: in.InstructorID}
		}
		booking.InstructorID = in.InstructorID
	}

	if in.ClassTypeID != "" {
		classType, err := e.repo.FindClassType(ctx, in.ClassTypeID)
		if err != nil {
			return RowOutcome{}, err
		}
		if classType == nil {
			return RowOutcome{}, &InvalidReferenceError{Field: "classTypeId", ID: in.ClassTypeID}
		}
		booking.ClassTypeID = in.ClassTypeID
	}

	if in.StudentID != "" {
		booking.StudentID = in.StudentID
	}

	if err := e.repo.UpdateBooking(ctx, *booking); err != nil {
		return RowOutcome{}, err
	}

	return RowOutcome{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Schedule updated (%s)", in.RegistrationID),
	}, nil
}

// resolveUpdateStart computes the candidate start for a date/time change,
// falling back to the booking's current date and clock for whichever part
// the instruction did not supply.
func (e *Engine) resolveUpdateStart(booking Booking, in Instruction) time.Time {
	clock := in.StartTimeStr
	if clock == "" {
		clock = booking.StartTime
	}
	if in.DateStr != "" {
		return ResolveStart(in.DateStr, clock, e.clock())
	}
	return combineClock(booking.Date, clock)
}

// =============================================================================
// DELETE
// =============================================================================

func (e *Engine) remove(ctx context.Context, in Instruction) (RowOutcome, error) {
	booking, err := e.repo.FindBooking(ctx, in.RegistrationID)
	if err != nil {
		return RowOutcome{}, err
	}
	if booking == nil {
		return RowOutcome{}, &NotFoundError{RegistrationID: in.RegistrationID}
	}

	// Soft delete: the row stays stored but leaves every overlap and
	// capacity computation. A repeat delete just re-sets the status.
	booking.Status = BookingDeleted
	if err := e.repo.UpdateBooking(ctx, *booking); err != nil {
		return RowOutcome{}, err
	}

	return RowOutcome{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Schedule deleted (%s)", in.RegistrationID),
	}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// firstOverlap tests the candidate interval against each existing booking's
// effective interval and returns a ConflictError for the first hit.
func (e *Engine) firstOverlap(bookings []Booking, start, end time.Time, resource, id string) error {
	for _, b := range bookings {
		bStart, bEnd := EffectiveInterval(b, e.cfg.ClassDuration)
		if Overlaps(start, end, bStart, bEnd) {
			return &ConflictError{Resource: resource, ID: id, StartTime: b.StartTime}
		}
	}
	return nil
}

// newRegistrationID generates a unique handle of the form
// REG-<unix-millis>-<random suffix>. Assigned once at creation, never
// changed afterwards.
func (e *Engine) newRegistrationID(now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("REG-%d-%s", now.UnixMilli(), suffix)
}
