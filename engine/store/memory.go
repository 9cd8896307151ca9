// Package store provides Repository implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/lesson-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	students    map[string]engine.Student
	instructors map[string]engine.Instructor
	classTypes  map[string]engine.ClassType
	bookings    map[string]engine.Booking
}

func NewMemory() *Memory {
	return &Memory{
		students:    make(map[string]engine.Student),
		instructors: make(map[string]engine.Instructor),
		classTypes:  make(map[string]engine.ClassType),
		bookings:    make(map[string]engine.Booking),
	}
}

// Seed loads record collections in one call. Used by tests and dev setups.
func (m *Memory) Seed(students []engine.Student, instructors []engine.Instructor, classTypes []engine.ClassType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range students {
		m.students[s.StudentID] = s
	}
	for _, i := range instructors {
		m.instructors[i.InstructorID] = i
	}
	for _, c := range classTypes {
		m.classTypes[c.ClassTypeID] = c
	}
}

func (m *Memory) FindStudent(_ context.Context, studentID string) (*engine.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.students[studentID]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) CreateStudent(_ context.Context, s engine.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.StudentID] = s
	return nil
}

func (m *Memory) FindInstructor(_ context.Context, instructorID string) (*engine.Instructor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i, ok := m.instructors[instructorID]; ok {
		return &i, nil
	}
	return nil, nil
}

func (m *Memory) CreateInstructor(_ context.Context, i engine.Instructor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instructors[i.InstructorID] = i
	return nil
}

func (m *Memory) FindClassType(_ context.Context, classTypeID string) (*engine.ClassType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.classTypes[classTypeID]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) CreateClassType(_ context.Context, c engine.ClassType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classTypes[c.ClassTypeID] = c
	return nil
}

func (m *Memory) FindBooking(_ context.Context, registrationID string) (*engine.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.bookings[registrationID]; ok {
		return &b, nil
	}
	return nil, nil
}

func (m *Memory) FindBookings(_ context.Context, filter engine.BookingFilter) ([]engine.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Booking
	for _, b := range m.bookings {
		if !matches(b, filter) {
			continue
		}
		result = append(result, b)
	}
	// Map iteration order is random; callers expect stable results.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].RegistrationID < result[j].RegistrationID
	})
	return result, nil
}

func matches(b engine.Booking, f engine.BookingFilter) bool {
	if f.StudentID != "" && b.StudentID != f.StudentID {
		return false
	}
	if f.InstructorID != "" && b.InstructorID != f.InstructorID {
		return false
	}
	if f.ClassTypeID != "" && b.ClassTypeID != f.ClassTypeID {
		return false
	}
	if f.ExcludeRegistrationID != "" && b.RegistrationID == f.ExcludeRegistrationID {
		return false
	}
	if !f.IncludeDeleted && b.Deleted() {
		return false
	}
	if !f.From.IsZero() && b.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && b.Date.After(f.To) {
		return false
	}
	return true
}

func (m *Memory) CreateBooking(_ context.Context, b engine.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.RegistrationID] = b
	return nil
}

func (m *Memory) UpdateBooking(_ context.Context, b engine.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.RegistrationID] = b
	return nil
}

// ListBookings returns every stored booking, soft-deleted ones included.
func (m *Memory) ListBookings(_ context.Context) ([]engine.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RegistrationID < result[j].RegistrationID
	})
	return result, nil
}
