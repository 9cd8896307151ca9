package engine

import (
	"os"
	"strconv"
)

// =============================================================================
// CONFIGURATION - Passed explicitly into the engine, no hidden lookups
// =============================================================================

// Config carries the lesson duration and the per-resource daily caps. It is
// read once at engine construction; changing it mid-batch has no effect on
// rows already processed.
type Config struct {
	// ClassDuration is the default lesson length in minutes, persisted onto
	// each booking at creation.
	ClassDuration int

	// Daily caps on non-deleted bookings per resource per calendar day.
	MaxStudentClasses    int
	MaxInstructorClasses int
	MaxClassTypeClasses  int
}

// DefaultConfig returns the stock limits: 45-minute lessons, 3 classes per
// student, 5 per instructor, 10 per class type.
func DefaultConfig() Config {
	return Config{
		ClassDuration:        45,
		MaxStudentClasses:    3,
		MaxInstructorClasses: 5,
		MaxClassTypeClasses:  10,
	}
}

// ConfigFromEnv reads the limits from the environment, falling back to the
// defaults for unset or non-numeric values.
//
// Variables: CLASS_DURATION, MAX_STUDENT_CLASSES, MAX_INSTRUCTOR_CLASSES,
// MAX_CLASS_TYPE_CLASSES.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ClassDuration = envInt("CLASS_DURATION", cfg.ClassDuration)
	cfg.MaxStudentClasses = envInt("MAX_STUDENT_CLASSES", cfg.MaxStudentClasses)
	cfg.MaxInstructorClasses = envInt("MAX_INSTRUCTOR_CLASSES", cfg.MaxInstructorClasses)
	cfg.MaxClassTypeClasses = envInt("MAX_CLASS_TYPE_CLASSES", cfg.MaxClassTypeClasses)
	return cfg
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
