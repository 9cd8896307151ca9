package engine

import "strings"

// =============================================================================
// ROW NORMALIZER - Raw string-keyed record to canonical Instruction
// =============================================================================

// Accepted header spellings per logical field. Batch files arrive with
// either display headers ("Registration ID") or camelCase ones
// ("registrationId"); the first alias carrying a value wins.
var (
	actionAliases       = []string{"Action", "action"}
	registrationAliases = []string{"Registration ID", "registrationId"}
	studentAliases      = []string{"Student ID", "studentId"}
	instructorAliases   = []string{"Instructor ID", "instructorId"}
	classTypeAliases    = []string{"Class ID", "classTypeId", "classId"}
	startTimeAliases    = []string{"Class Start Time", "startTime"}
	dateAliases         = []string{"date", "Date"}
)

// CleanValue trims surrounding whitespace and treats the literal token
// "null" (any casing) as an absent value.
func CleanValue(v string) string {
	cleaned := strings.TrimSpace(v)
	if strings.EqualFold(cleaned, "null") {
		return ""
	}
	return cleaned
}

// Normalize maps one raw record into a canonical Instruction. The action is
// lower-cased but otherwise passed through unchanged, so an unrecognized
// token surfaces as an engine error instead of being swallowed here. When no
// distinct date field was supplied, the date falls back to the start-time
// field, which may embed both ("10/8/2024 13:00").
func Normalize(raw map[string]string) Instruction {
	startTime := pick(raw, startTimeAliases)
	date := pick(raw, dateAliases)
	if date == "" {
		date = startTime
	}

	return Instruction{
		Action:         Action(strings.ToLower(pick(raw, actionAliases))),
		RegistrationID: pick(raw, registrationAliases),
		StudentID:      pick(raw, studentAliases),
		InstructorID:   pick(raw, instructorAliases),
		ClassTypeID:    pick(raw, classTypeAliases),
		DateStr:        date,
		StartTimeStr:   startTime,
	}
}

// NormalizeBatch maps a slice of raw records, preserving order.
func NormalizeBatch(rows []map[string]string) []Instruction {
	instructions := make([]Instruction, len(rows))
	for i, row := range rows {
		instructions[i] = Normalize(row)
	}
	return instructions
}

func pick(raw map[string]string, aliases []string) string {
	for _, key := range aliases {
		if v, ok := raw[key]; ok && v != "" {
			return CleanValue(v)
		}
	}
	return ""
}
