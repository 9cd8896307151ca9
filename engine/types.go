/*
Package engine provides the lesson booking reconciliation core.

PURPOSE:
  This package contains the domain types and the batch reconciliation
  algorithm for recurring one-to-one lesson bookings. A batch of typed
  instruction rows (create / update / delete) is applied against the
  existing set of bookings one row at a time, in order, with each row
  observing every write committed by the rows before it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Student / Instructor / ClassType: the three resource record types
  - Booking: the mutable scheduled-lesson entity (soft-deleted, never removed)
  - Instruction: one normalized create/update/delete directive
  - Action: the instruction verb

DESIGN PRINCIPLES:
  1. Sequential visibility: row N+1 reads see row N's writes
  2. Soft delete: bookings carry a status flag, rows are never removed
  3. Storage agnosticism: the engine only talks to the Repository interface
  4. Row-scoped failure: a bad row is reported, the batch keeps going

USAGE:
  eng := engine.New(repo, engine.DefaultConfig())
  report := eng.ProcessBatch(ctx, instructions)

SEE ALSO:
  - reconcile.go: The per-row state machine
  - repository.go: Storage interface consumed by the engine
  - normalize.go: Raw record to Instruction mapping
*/
package engine

import (
	"time"
)

// =============================================================================
// RESOURCE RECORDS
// =============================================================================

// Student is a lesson participant. Students referenced by a "new" instruction
// are auto-provisioned when unknown; they are never deleted by the engine.
type Student struct {
	StudentID string
	Name      string
}

// Instructor must pre-exist before any instruction can reference it.
type Instructor struct {
	InstructorID string
	Name         string
}

// ClassType must pre-exist before any instruction can reference it.
type ClassType struct {
	ClassTypeID string
	Name        string
}

// =============================================================================
// BOOKING - The mutable entity at the heart of the engine
// =============================================================================

type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingDeleted   BookingStatus = "deleted"
)

// Booking is one scheduled lesson. Date carries the start instant; StartTime
// is the authoritative "HH:MM" clock time, kept separately so timezone or
// serialization drift on Date cannot move the lesson. Duration is persisted
// per booking at creation so later configuration changes never retroactively
// alter existing bookings.
type Booking struct {
	RegistrationID string
	StudentID      string
	InstructorID   string
	ClassTypeID    string
	Date           time.Time
	StartTime      string
	Duration       int // minutes
	Status         BookingStatus
}

// Deleted reports whether the booking has been soft-deleted.
func (b Booking) Deleted() bool { return b.Status == BookingDeleted }

// =============================================================================
// INSTRUCTIONS
// =============================================================================

type Action string

const (
	ActionNew    Action = "new"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Instruction is one normalized batch row. Empty string fields were not
// supplied by the row; on update each supplied field is applied
// independently. An unrecognized Action value is carried through so the
// engine can report it, rather than being rejected at normalization time.
type Instruction struct {
	Action         Action
	RegistrationID string
	StudentID      string
	InstructorID   string
	ClassTypeID    string
	DateStr        string
	StartTimeStr   string
}
