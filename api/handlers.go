/*
handlers.go - HTTP API handlers for the lesson booking system

PURPOSE:
  Exposes the booking reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Batch:
    POST   /api/registrations/upload       Upload a CSV/TSV batch file

  Reference data:
    POST   /api/registrations/students     Create student
    POST   /api/registrations/instructors  Create instructor
    POST   /api/registrations/classtypes   Create class type
    POST   /api/registrations/seed         Reset and load demo data
    GET    /api/registrations/all          Dump the full dataset

  Reporting:
    GET    /api/registrations/stats        Daily utilization per resource
    GET    /api/registrations/test         Liveness check

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (list queries beyond the engine's repository)
  - Engine: Batch reconciliation

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 500: Internal errors
  Row-level batch failures are NOT HTTP errors; they come back inside the
  batch report with status 200.

SEE ALSO:
  - dto.go: Request/response data structures
  - upload.go: Batch file parsing
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/lesson-engine/engine"
	"github.com/warp/lesson-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *engine.Engine
}

// NewHandler creates a new handler with the given store and engine.
func NewHandler(store *sqlite.Store, eng *engine.Engine) *Handler {
	return &Handler{Store: store, Engine: eng}
}

// =============================================================================
// LIVENESS
// =============================================================================

// Ping confirms the API is up.
// GET /api/registrations/test
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Registration API is working",
	})
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// CreateStudent creates or renames a student.
// POST /api/registrations/students
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "studentId is required", nil)
		return
	}
	if req.Name == "" {
		req.Name = "Student " + req.StudentID
	}

	student := engine.Student{StudentID: req.StudentID, Name: req.Name}
	if err := h.Store.CreateStudent(r.Context(), student); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create student", err)
		return
	}

	writeJSON(w, http.StatusCreated, StudentDTO(student))
}

// CreateInstructor creates or renames an instructor.
// POST /api/registrations/instructors
func (h *Handler) CreateInstructor(w http.ResponseWriter, r *http.Request) {
	var req CreateInstructorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.InstructorID == "" {
		writeError(w, http.StatusBadRequest, "instructorId is required", nil)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	instructor := engine.Instructor{InstructorID: req.InstructorID, Name: req.Name}
	if err := h.Store.CreateInstructor(r.Context(), instructor); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create instructor", err)
		return
	}

	writeJSON(w, http.StatusCreated, InstructorDTO(instructor))
}

// CreateClassType creates or renames a class type.
// POST /api/registrations/classtypes
func (h *Handler) CreateClassType(w http.ResponseWriter, r *http.Request) {
	var req CreateClassTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ClassTypeID == "" {
		writeError(w, http.StatusBadRequest, "classTypeId is required", nil)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	classType := engine.ClassType{ClassTypeID: req.ClassTypeID, Name: req.Name}
	if err := h.Store.CreateClassType(r.Context(), classType); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create class type", err)
		return
	}

	writeJSON(w, http.StatusCreated, ClassTypeDTO(classType))
}

// SeedData wipes the database and loads a small demo dataset.
// POST /api/registrations/seed
func (h *Handler) SeedData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	students := []engine.Student{
		{StudentID: "123", Name: "John Doe"},
		{StudentID: "124", Name: "Jane Smith"},
		{StudentID: "125", Name: "Bob Johnson"},
		{StudentID: "S001", Name: "Alice Williams"},
		{StudentID: "S002", Name: "Charlie Brown"},
	}
	instructors := []engine.Instructor{
		{InstructorID: "111", Name: "Professor Smith"},
		{InstructorID: "101", Name: "Dr. Johnson"},
		{InstructorID: "102", Name: "Ms. Davis"},
		{InstructorID: "I001", Name: "Mr. Anderson"},
		{InstructorID: "I002", Name: "Mrs. Wilson"},
	}
	classTypes := []engine.ClassType{
		{ClassTypeID: "1", Name: "Yoga Basics"},
		{ClassTypeID: "2", Name: "Advanced Pilates"},
		{ClassTypeID: "3", Name: "Cardio Kickboxing"},
		{ClassTypeID: "C001", Name: "Meditation"},
		{ClassTypeID: "C002", Name: "Spin Class"},
	}

	for _, st := range students {
		if err := h.Store.CreateStudent(ctx, st); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed students", err)
			return
		}
	}
	for _, in := range instructors {
		if err := h.Store.CreateInstructor(ctx, in); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed instructors", err)
			return
		}
	}
	for _, ct := range classTypes {
		if err := h.Store.CreateClassType(ctx, ct); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed class types", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, SeedResponse{
		Message:     "Database seeded successfully",
		Students:    len(students),
		Instructors: len(instructors),
		ClassTypes:  len(classTypes),
	})
}

// GetAllData dumps every table, soft-deleted bookings included.
// GET /api/registrations/all
func (h *Handler) GetAllData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	students, err := h.Store.ListStudents(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}
	instructors, err := h.Store.ListInstructors(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list instructors", err)
		return
	}
	classTypes, err := h.Store.ListClassTypes(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list class types", err)
		return
	}
	bookings, err := h.Store.ListBookings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schedules", err)
		return
	}

	data := AllDataDTO{
		Students:    make([]StudentDTO, 0, len(students)),
		Instructors: make([]InstructorDTO, 0, len(instructors)),
		ClassTypes:  make([]ClassTypeDTO, 0, len(classTypes)),
		Schedules:   make([]ScheduleDTO, 0, len(bookings)),
	}
	for _, st := range students {
		data.Students = append(data.Students, StudentDTO(st))
	}
	for _, in := range instructors {
		data.Instructors = append(data.Instructors, InstructorDTO(in))
	}
	for _, ct := range classTypes {
		data.ClassTypes = append(data.ClassTypes, ClassTypeDTO(ct))
	}
	for _, b := range bookings {
		data.Schedules = append(data.Schedules, toScheduleDTO(b))
	}
	data.Counts = CountsDTO{
		Students:    len(data.Students),
		Instructors: len(data.Instructors),
		ClassTypes:  len(data.ClassTypes),
		Schedules:   len(data.Schedules),
	}

	writeJSON(w, http.StatusOK, data)
}

// =============================================================================
// REPORTING
// =============================================================================

// GetStats reports daily utilization per resource for a given date
// (?date=YYYY-MM-DD, defaulting to today).
// GET /api/registrations/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	day := time.Now()
	if q := r.URL.Query().Get("date"); q != "" {
		// Batch dates resolve in local time, so the stats day must too.
		parsed, err := time.ParseInLocation("2006-01-02", q, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		day = parsed
	}

	all, err := h.Store.ListBookings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schedules", err)
		return
	}

	stats := StatsDTO{
		TotalSchedules: len(all),
		Instructors:    []ResourceUtilizationDTO{},
		Students:       []ResourceUtilizationDTO{},
		ClassTypes:     []ResourceUtilizationDTO{},
	}

	dayStart, dayEnd := engine.DayWindow(day)
	byInstructor := map[string]int{}
	byStudent := map[string]int{}
	byClassType := map[string]int{}

	for _, b := range all {
		if b.Deleted() {
			stats.Deleted++
			continue
		}
		stats.Active++
		if b.Date.Before(dayStart) || b.Date.After(dayEnd) {
			continue
		}
		byInstructor[b.InstructorID]++
		byStudent[b.StudentID]++
		byClassType[b.ClassTypeID]++
	}

	cfg := h.Engine.Config()
	stats.Instructors = utilization(byInstructor, cfg.MaxInstructorClasses)
	stats.Students = utilization(byStudent, cfg.MaxStudentClasses)
	stats.ClassTypes = utilization(byClassType, cfg.MaxClassTypeClasses)

	writeJSON(w, http.StatusOK, stats)
}

// utilization converts per-resource counts into ratio rows. decimal keeps
// 3/7-style divisions exact to two places instead of leaking float64 noise.
func utilization(counts map[string]int, limit int) []ResourceUtilizationDTO {
	out := make([]ResourceUtilizationDTO, 0, len(counts))
	for id, n := range counts {
		ratio := decimal.NewFromInt(int64(n)).
			Div(decimal.NewFromInt(int64(limit))).
			Round(2)
		out = append(out, ResourceUtilizationDTO{
			ID:          id,
			Scheduled:   n,
			DailyLimit:  limit,
			Utilization: ratio.String(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
