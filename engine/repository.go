/*
repository.go - Storage interface consumed by the engine

PURPOSE:
  Defines the read/write surface over the four record collections. The
  engine never talks to a storage backend directly; anything implementing
  Repository can back a batch run.

CONVENTIONS:
  - Lookups return (nil, nil) when the record does not exist. A non-nil
    error always means the storage layer itself failed.
  - FindBookings excludes soft-deleted bookings unless the filter says
    otherwise; every overlap and capacity check relies on that default.
  - UpdateBooking replaces the stored booking identified by its
    registration id. Bookings are never physically removed.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - engine/store: in-memory store for tests and dev
*/
package engine

import (
	"context"
	"time"
)

// BookingFilter selects same-day bookings for one resource. Exactly one of
// the three resource ids is expected to be set. From/To bound the stored
// start instant inclusively.
type BookingFilter struct {
	StudentID    string
	InstructorID string
	ClassTypeID  string

	From time.Time
	To   time.Time

	// ExcludeRegistrationID drops one booking from the result, used when
	// re-checking conflicts for the booking being updated.
	ExcludeRegistrationID string

	// IncludeDeleted widens the query to soft-deleted bookings. The engine
	// never sets this; it exists for administrative read paths.
	IncludeDeleted bool
}

// Repository is the engine's only view of storage.
type Repository interface {
	FindStudent(ctx context.Context, studentID string) (*Student, error)
	CreateStudent(ctx context.Context, s Student) error

	FindInstructor(ctx context.Context, instructorID string) (*Instructor, error)
	FindClassType(ctx context.Context, classTypeID string) (*ClassType, error)

	FindBooking(ctx context.Context, registrationID string) (*Booking, error)
	FindBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	CreateBooking(ctx context.Context, b Booking) error
	UpdateBooking(ctx context.Context, b Booking) error
}
