/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Entities:
    StudentDTO, InstructorDTO, ClassTypeDTO, ScheduleDTO

  Batch:
    The batch report itself is engine.BatchReport; the engine owns its
    JSON shape because clients consume it verbatim.

  Stats:
    StatsDTO, ResourceUtilizationDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/report.go: Batch report shape
*/
package api

import (
	"github.com/warp/lesson-engine/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

// InstructorDTO represents an instructor in API responses.
type InstructorDTO struct {
	InstructorID string `json:"instructorId"`
	Name         string `json:"name"`
}

// ClassTypeDTO represents a class type in API responses.
type ClassTypeDTO struct {
	ClassTypeID string `json:"classTypeId"`
	Name        string `json:"name"`
}

// ScheduleDTO represents a booking in API responses.
type ScheduleDTO struct {
	RegistrationID string `json:"registrationId"`
	StudentID      string `json:"studentId"`
	InstructorID   string `json:"instructorId"`
	ClassTypeID    string `json:"classTypeId"`
	Date           string `json:"date"`
	StartTime      string `json:"startTime"`
	Duration       int    `json:"duration"`
	Status         string `json:"status"`
}

// CreateStudentRequest is the body for POST /api/registrations/students.
type CreateStudentRequest struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

// CreateInstructorRequest is the body for POST /api/registrations/instructors.
type CreateInstructorRequest struct {
	InstructorID string `json:"instructorId"`
	Name         string `json:"name"`
}

// CreateClassTypeRequest is the body for POST /api/registrations/classtypes.
type CreateClassTypeRequest struct {
	ClassTypeID string `json:"classTypeId"`
	Name        string `json:"name"`
}

// AllDataDTO is the combined dataset returned by GET /api/registrations/all.
type AllDataDTO struct {
	Students    []StudentDTO    `json:"students"`
	Instructors []InstructorDTO `json:"instructors"`
	ClassTypes  []ClassTypeDTO  `json:"classTypes"`
	Schedules   []ScheduleDTO   `json:"schedules"`
	Counts      CountsDTO       `json:"counts"`
}

// CountsDTO carries the collection sizes alongside the full dump.
type CountsDTO struct {
	Students    int `json:"students"`
	Instructors int `json:"instructors"`
	ClassTypes  int `json:"classTypes"`
	Schedules   int `json:"schedules"`
}

// SeedResponse reports what the seed operation created.
type SeedResponse struct {
	Message     string `json:"message"`
	Students    int    `json:"students"`
	Instructors int    `json:"instructors"`
	ClassTypes  int    `json:"classTypes"`
}

// ResourceUtilizationDTO reports how full one resource's daily allowance is.
// Ratios are fixed-point decimal strings so clients never see float noise.
type ResourceUtilizationDTO struct {
	ID          string `json:"id"`
	Scheduled   int    `json:"scheduled"`
	DailyLimit  int    `json:"dailyLimit"`
	Utilization string `json:"utilization"`
}

// StatsDTO is the response for GET /api/registrations/stats.
type StatsDTO struct {
	TotalSchedules int                      `json:"totalSchedules"`
	Active         int                      `json:"active"`
	Deleted        int                      `json:"deleted"`
	Instructors    []ResourceUtilizationDTO `json:"instructors"`
	Students       []ResourceUtilizationDTO `json:"students"`
	ClassTypes     []ResourceUtilizationDTO `json:"classTypes"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toScheduleDTO(b engine.Booking) ScheduleDTO {
	return ScheduleDTO{
		RegistrationID: b.RegistrationID,
		StudentID:      b.StudentID,
		InstructorID:   b.InstructorID,
		ClassTypeID:    b.ClassTypeID,
		Date:           b.Date.Format("2006-01-02"),
		StartTime:      b.StartTime,
		Duration:       b.Duration,
		Status:         string(b.Status),
	}
}
