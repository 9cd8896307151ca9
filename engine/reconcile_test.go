package engine_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lesson-engine/engine"
	"github.com/warp/lesson-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testClock = time.Date(2024, time.October, 1, 9, 0, 0, 0, time.UTC)

func newTestEngine(cfg engine.Config) (*engine.Engine, *store.Memory) {
	mem := store.NewMemory()
	mem.Seed(
		[]engine.Student{
			{StudentID: "123", Name: "John Doe"},
			{StudentID: "124", Name: "Jane Smith"},
		},
		[]engine.Instructor{
			{InstructorID: "111", Name: "Professor Smith"},
			{InstructorID: "101", Name: "Dr. Johnson"},
		},
		[]engine.ClassType{
			{ClassTypeID: "1", Name: "Yoga Basics"},
			{ClassTypeID: "2", Name: "Advanced Pilates"},
		},
	)
	eng := engine.New(mem, cfg).WithClock(func() time.Time { return testClock })
	return eng, mem
}

func newRow(student, instructor, classType, date, startTime string) engine.Instruction {
	return engine.Instruction{
		Action:       engine.ActionNew,
		StudentID:    student,
		InstructorID: instructor,
		ClassTypeID:  classType,
		DateStr:      date,
		StartTimeStr: startTime,
	}
}

// createBooking runs a single "new" row and returns its registration id.
func createBooking(t *testing.T, eng *engine.Engine, in engine.Instruction) string {
	t.Helper()
	report := eng.ProcessBatch(context.Background(), []engine.Instruction{in})
	require.Equal(t, engine.StatusSuccess, report.Results[0].Status, "setup row failed: %s", report.Results[0].Message)
	return report.Results[0].RegistrationID
}

func findBooking(t *testing.T, mem *store.Memory, registrationID string) engine.Booking {
	t.Helper()
	b, err := mem.FindBooking(context.Background(), registrationID)
	require.NoError(t, err)
	require.NotNil(t, b)
	return *b
}

// =============================================================================
// NEW
// =============================================================================

func TestCreate_Success(t *testing.T) {
	// GIVEN: A valid row for a known instructor, class type, and student
	// WHEN: Processing
	// THEN: Booking is persisted with the configured duration and a REG- id

	eng, mem := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("123", "111", "1", "2024-10-08", "13:00"),
	})

	require.Len(t, report.Results, 1)
	out := report.Results[0]
	assert.Equal(t, engine.StatusSuccess, out.Status)
	assert.Equal(t, "New schedule created", out.Message)
	assert.True(t, strings.HasPrefix(out.RegistrationID, "REG-"), "id %q", out.RegistrationID)

	b := findBooking(t, mem, out.RegistrationID)
	assert.Equal(t, "123", b.StudentID)
	assert.Equal(t, "111", b.InstructorID)
	assert.Equal(t, "1", b.ClassTypeID)
	assert.Equal(t, "13:00", b.StartTime)
	assert.Equal(t, 45, b.Duration)
	assert.Equal(t, engine.BookingScheduled, b.Status)
	assert.Equal(t, time.Date(2024, 10, 8, 13, 0, 0, 0, time.UTC), b.Date)
}

func TestCreate_UnknownInstructorRejected(t *testing.T) {
	eng, _ := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("123", "999", "1", "2024-10-08", "13:00"),
	})

	out := report.Results[0]
	assert.Equal(t, engine.StatusError, out.Status)
	assert.Equal(t, "Invalid instructorId: 999", out.Message)
	assert.Empty(t, out.RegistrationID)
}

func TestCreate_UnknownClassTypeRejected(t *testing.T) {
	eng, _ := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("123", "111", "99", "2024-10-08", "13:00"),
	})

	assert.Equal(t, "Invalid classTypeId: 99", report.Results[0].Message)
}

func TestCreate_InstructorCheckedBeforeClassType(t *testing.T) {
	// Both references are bad; only the instructor error is reported.
	eng, _ := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("123", "999", "99", "2024-10-08", "13:00"),
	})

	assert.Equal(t, "Invalid instructorId: 999", report.Results[0].Message)
}

func TestCreate_AutoProvisionsUnknownStudent(t *testing.T) {
	// GIVEN: A row naming a student nobody has seen before
	// WHEN: Processing
	// THEN: The student is created with a placeholder name and the row succeeds

	eng, mem := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("777", "111", "1", "2024-10-08", "13:00"),
	})

	assert.Equal(t, engine.StatusSuccess, report.Results[0].Status)

	student, err := mem.FindStudent(context.Background(), "777")
	require.NoError(t, err)
	require.NotNil(t, student)
	assert.Equal(t, "Student 777", student.Name)
}

func TestCreate_EmptyStudentIDRejected(t *testing.T) {
	// GIVEN: An existing same-day booking for an unrelated student
	// WHEN: A row arrives with its student cell blanked (e.g. a "null" token)
	// THEN: The row fails on the missing id - not with a phantom conflict
	// against the unrelated booking - and no student "" is provisioned

	eng, mem := newTestEngine(engine.DefaultConfig())
	createBooking(t, eng, newRow("124", "101", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("", "111", "1", "2024-10-08", "13:30"),
	})

	out := report.Results[0]
	assert.Equal(t, engine.StatusError, out.Status)
	assert.Equal(t, "Invalid studentId: ", out.Message)

	ghost, err := mem.FindStudent(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, ghost)
}

func TestCreate_MalformedDateFallsBackToNow(t *testing.T) {
	eng, mem := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("123", "111", "1", "garbage", "25:99"),
	})

	out := report.Results[0]
	require.Equal(t, engine.StatusSuccess, out.Status)
	b := findBooking(t, mem, out.RegistrationID)
	assert.Equal(t, testClock, b.Date)
}

// =============================================================================
// CONFLICTS
// =============================================================================

func TestCreate_InstructorOverlapRejected(t *testing.T) {
	// GIVEN: Instructor 111 teaching 13:00-13:45
	// WHEN: Another student books 111 at 13:30
	// THEN: The row fails with the instructor conflict message

	eng, _ := newTestEngine(engine.DefaultConfig())
	createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("124", "111", "1", "2024-10-08", "13:30"),
	})

	out := report.Results[0]
	assert.Equal(t, engine.StatusError, out.Status)
	assert.Equal(t, "Instructor 111 already has a class scheduled at this time (13:00)", out.Message)
}

func TestCreate_BackToBackAllowed(t *testing.T) {
	// A lesson starting exactly when the previous one ends is not a conflict.
	eng, _ := newTestEngine(engine.DefaultConfig())
	createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("124", "111", "1", "2024-10-08", "13:45"),
	})

	assert.Equal(t, engine.StatusSuccess, report.Results[0].Status)
}

func TestCreate_StudentOverlapRejected(t *testing.T) {
	// Same student, different instructors, overlapping times.
	eng, _ := newTestEngine(engine.DefaultConfig())
	createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("123", "101", "2", "2024-10-08", "13:30"),
	})

	assert.Equal(t, "Student 123 already has a class scheduled at this time (13:00)", report.Results[0].Message)
}

func TestCreate_InstructorConflictReportedBeforeStudentConflict(t *testing.T) {
	// Both the instructor and the student are double-booked; the instructor
	// check runs first and only its error is reported.
	eng, _ := newTestEngine(engine.DefaultConfig())
	createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("123", "111", "1", "2024-10-08", "13:30"),
	})

	assert.Equal(t, "Instructor 111 already has a class scheduled at this time (13:00)", report.Results[0].Message)
}

func TestCreate_RowsSeeEarlierRowsInSameBatch(t *testing.T) {
	// GIVEN: A batch whose second row collides with the first
	// WHEN: Processing both in one call
	// THEN: Row one succeeds, row two fails against row one's booking

	eng, _ := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("123", "111", "1", "2024-10-08", "13:00"),
		newRow("124", "111", "1", "2024-10-08", "13:20"),
	})

	assert.Equal(t, engine.StatusSuccess, report.Results[0].Status)
	assert.Equal(t, engine.StatusError, report.Results[1].Status)
	assert.Equal(t, 1, report.Summary.Success)
	assert.Equal(t, 1, report.Summary.Errors)
}

// =============================================================================
// CAPACITY
// =============================================================================

func TestCreate_InstructorDailyCap(t *testing.T) {
	// GIVEN: A cap of 2 classes per instructor per day
	// WHEN: Booking a third, non-overlapping class the same day
	// THEN: The capacity message names the instructor and the cap

	eng, _ := newTestEngine(engine.Config{MaxInstructorClasses: 2})
	createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "09:00"))
	createBooking(t, eng, newRow("124", "111", "1", "2024-10-08", "10:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("777", "111", "1", "2024-10-08", "11:00"),
	})

	assert.Equal(t, "Instructor 111 has reached maximum 2 classes per day", report.Results[0].Message)
}

func TestCreate_InstructorCapIsPerDay(t *testing.T) {
	// The same instructor is free again the next day.
	eng, _ := newTestEngine(engine.Config{MaxInstructorClasses: 2})
	createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "09:00"))
	createBooking(t, eng, newRow("124", "111", "1", "2024-10-08", "10:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("777", "111", "1", "2024-10-09", "09:00"),
	})

	assert.Equal(t, engine.StatusSuccess, report.Results[0].Status)
}

func TestCreate_StudentDailyCap(t *testing.T) {
	eng, _ := newTestEngine(engine.Config{MaxStudentClasses: 2})
	createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "09:00"))
	createBooking(t, eng, newRow("123", "101", "1", "2024-10-08", "10:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("123", "111", "1", "2024-10-08", "11:00"),
	})

	assert.Equal(t, "Student 123 has reached maximum 2 classes per day", report.Results[0].Message)
}

func TestCreate_ClassTypeDailyCap(t *testing.T) {
	eng, _ := newTestEngine(engine.Config{MaxClassTypeClasses: 2})
	createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "09:00"))
	createBooking(t, eng, newRow("124", "101", "1", "2024-10-08", "09:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("777", "111", "1", "2024-10-08", "11:00"),
	})

	assert.Equal(t, "Class type 1 has reached maximum 2 classes per day", report.Results[0].Message)
}

func TestCreate_DistinctInstructorsMayShareClassTypeSlot(t *testing.T) {
	// Class types have no overlap rule: two instructors can run the same
	// class type at the same time.
	eng, _ := newTestEngine(engine.DefaultConfig())
	createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("124", "101", "1", "2024-10-08", "13:00"),
	})

	assert.Equal(t, engine.StatusSuccess, report.Results[0].Status)
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate_NotFound(t *testing.T) {
	eng, _ := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionUpdate, RegistrationID: "REG-404", StartTimeStr: "14:00"},
	})

	out := report.Results[0]
	assert.Equal(t, engine.StatusError, out.Status)
	assert.Equal(t, "No schedule found with ID REG-404", out.Message)
}

func TestUpdate_MoveTime_Success(t *testing.T) {
	// GIVEN: A booking at 13:00
	// WHEN: Moving it to 13:10 (an interval overlapping its own old slot)
	// THEN: The move succeeds; the booking never conflicts with itself

	eng, mem := newTestEngine(engine.DefaultConfig())
	regID := createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionUpdate, RegistrationID: regID, StartTimeStr: "13:10"},
	})

	out := report.Results[0]
	assert.Equal(t, engine.StatusSuccess, out.Status)
	assert.Equal(t, fmt.Sprintf("Schedule updated (%s)", regID), out.Message)

	b := findBooking(t, mem, regID)
	assert.Equal(t, "13:10", b.StartTime)
	assert.Equal(t, time.Date(2024, 10, 8, 13, 10, 0, 0, time.UTC), b.Date)
}

func TestUpdate_MoveDate_KeepsClockTime(t *testing.T) {
	// Only the date changes; the booking keeps its clock time.
	eng, mem := newTestEngine(engine.DefaultConfig())
	regID := createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionUpdate, RegistrationID: regID, DateStr: "2024-10-09"},
	})

	require.Equal(t, engine.StatusSuccess, report.Results[0].Status)
	b := findBooking(t, mem, regID)
	assert.Equal(t, "13:00", b.StartTime)
	assert.Equal(t, time.Date(2024, 10, 9, 13, 0, 0, 0, time.UTC), b.Date)
}

func TestUpdate_MoveIntoConflict_NothingChanges(t *testing.T) {
	// GIVEN: Two bookings for the same instructor at 13:00 and 15:00
	// WHEN: Moving the second onto the first
	// THEN: The row fails and the second booking is untouched

	eng, mem := newTestEngine(engine.DefaultConfig())
	createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))
	regID := createBooking(t, eng, newRow("124", "111", "1", "2024-10-08", "15:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionUpdate, RegistrationID: regID, StartTimeStr: "13:30"},
	})

	out := report.Results[0]
	assert.Equal(t, engine.StatusError, out.Status)
	assert.Equal(t, "Instructor 111 already has a class scheduled at this time (13:00)", out.Message)

	b := findBooking(t, mem, regID)
	assert.Equal(t, "15:00", b.StartTime)
}

func TestUpdate_UnknownInstructorRejected(t *testing.T) {
	eng, mem := newTestEngine(engine.DefaultConfig())
	regID := createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionUpdate, RegistrationID: regID, InstructorID: "999"},
	})

	assert.Equal(t, "Invalid instructorId: 999", report.Results[0].Message)
	assert.Equal(t, "111", findBooking(t, mem, regID).InstructorID)
}

func TestUpdate_SwapInstructor_Success(t *testing.T) {
	eng, mem := newTestEngine(engine.DefaultConfig())
	regID := createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionUpdate, RegistrationID: regID, InstructorID: "101"},
	})

	assert.Equal(t, engine.StatusSuccess, report.Results[0].Status)
	assert.Equal(t, "101", findBooking(t, mem, regID).InstructorID)
}

func TestUpdate_StudentAppliedWithoutExistenceCheck(t *testing.T) {
	// Students are auto-provisioned on create, so an update may hand the
	// booking to an id nobody has seen; the id is applied as-is.
	eng, mem := newTestEngine(engine.DefaultConfig())
	regID := createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionUpdate, RegistrationID: regID, StudentID: "ghost"},
	})

	assert.Equal(t, engine.StatusSuccess, report.Results[0].Status)
	assert.Equal(t, "ghost", findBooking(t, mem, regID).StudentID)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_SoftDeletesAndFreesSlot(t *testing.T) {
	// GIVEN: A booking at 13:00, then deleted
	// WHEN: Another row books the exact same slot
	// THEN: The slot is free; the deleted row is still stored

	eng, mem := newTestEngine(engine.DefaultConfig())
	regID := createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionDelete, RegistrationID: regID},
		newRow("123", "111", "1", "2024-10-08", "13:00"),
	})

	assert.Equal(t, engine.StatusSuccess, report.Results[0].Status)
	assert.Equal(t, fmt.Sprintf("Schedule deleted (%s)", regID), report.Results[0].Message)
	assert.Equal(t, engine.StatusSuccess, report.Results[1].Status)

	assert.Equal(t, engine.BookingDeleted, findBooking(t, mem, regID).Status)
}

func TestDelete_RepeatDeleteSucceeds(t *testing.T) {
	eng, _ := newTestEngine(engine.DefaultConfig())
	regID := createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "13:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionDelete, RegistrationID: regID},
		{Action: engine.ActionDelete, RegistrationID: regID},
	})

	assert.Equal(t, engine.StatusSuccess, report.Results[0].Status)
	assert.Equal(t, engine.StatusSuccess, report.Results[1].Status)
}

func TestDelete_UnknownRegistrationID(t *testing.T) {
	eng, _ := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionDelete, RegistrationID: "REG-404"},
	})

	assert.Equal(t, "No schedule found with ID REG-404", report.Results[0].Message)
}

func TestDelete_DeletedBookingsLeaveCapacityChecks(t *testing.T) {
	// A deleted booking stops counting toward the daily cap.
	eng, _ := newTestEngine(engine.Config{MaxInstructorClasses: 1})
	regID := createBooking(t, eng, newRow("123", "111", "1", "2024-10-08", "09:00"))

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.ActionDelete, RegistrationID: regID},
		newRow("124", "111", "1", "2024-10-08", "11:00"),
	})

	assert.Equal(t, engine.StatusSuccess, report.Results[1].Status)
}

// =============================================================================
// BATCH SEMANTICS
// =============================================================================

func TestProcessBatch_UnknownAction(t *testing.T) {
	eng, _ := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		{Action: engine.Action("cancel")},
		{Action: engine.Action("")},
	})

	assert.Equal(t, "Unknown or empty action 'cancel'. Expected: new, update, or delete", report.Results[0].Message)
	assert.Equal(t, "Unknown or empty action ''. Expected: new, update, or delete", report.Results[1].Message)
}

func TestProcessBatch_ReportShape(t *testing.T) {
	// GIVEN: A mixed batch of good and bad rows
	// WHEN: Processing
	// THEN: One result per row, in input order, with matching summary counts

	eng, _ := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), []engine.Instruction{
		newRow("123", "111", "1", "2024-10-08", "13:00"),
		newRow("124", "999", "1", "2024-10-08", "14:00"),
		{Action: engine.ActionDelete, RegistrationID: "REG-404"},
		newRow("124", "101", "2", "2024-10-08", "14:00"),
	})

	assert.Equal(t, 4, report.TotalRows)
	require.Len(t, report.Results, 4)
	assert.Equal(t, engine.StatusSuccess, report.Results[0].Status)
	assert.Equal(t, engine.StatusError, report.Results[1].Status)
	assert.Equal(t, engine.StatusError, report.Results[2].Status)
	assert.Equal(t, engine.StatusSuccess, report.Results[3].Status)
	assert.Equal(t, 2, report.Summary.Success)
	assert.Equal(t, 2, report.Summary.Errors)
}

func TestProcessBatch_EmptyBatch(t *testing.T) {
	eng, _ := newTestEngine(engine.DefaultConfig())

	report := eng.ProcessBatch(context.Background(), nil)

	assert.Equal(t, 0, report.TotalRows)
	assert.NotNil(t, report.Results)
	assert.Empty(t, report.Results)
}
