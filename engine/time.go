package engine

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// TIME ARITHMETIC - Pure functions over lesson intervals
// =============================================================================

// Date layouts accepted for instruction rows. Tried in order; the first
// match wins. Month-first slash forms mirror the batch files this system
// has historically ingested.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1-2-2006",
	time.RFC3339,
}

// ResolveStart computes a lesson's start instant from a date string and an
// "HH:MM" clock string. Either column may embed a full datetime
// ("10/8/2024 13:00"); the embedded parts are split out, with a separately
// supplied date winning over one embedded in the time column. Seconds and
// sub-second precision are always zeroed.
//
// Malformed input does not fail: it resolves to now. Existing batch files
// rely on this lenient fallback, so a typo'd date schedules for today.
func ResolveStart(dateStr, timeStr string, now time.Time) time.Time {
	if i := strings.IndexByte(timeStr, ' '); i >= 0 {
		if dateStr == "" || dateStr == timeStr {
			dateStr = timeStr[:i]
		}
		timeStr = timeStr[i+1:]
	}
	if timeStr == "" {
		if i := strings.IndexByte(dateStr, ' '); i >= 0 {
			dateStr, timeStr = dateStr[:i], dateStr[i+1:]
		}
	}

	date, ok := parseDate(dateStr, now.Location())
	if !ok {
		return now
	}
	if timeStr == "" {
		return date
	}

	hour, min, ok := parseClock(timeStr)
	if !ok {
		return now
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, date.Location())
}

// ResolveEnd returns start + durationMinutes.
func ResolveEnd(start time.Time, durationMinutes int) time.Time {
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back intervals (aEnd == bStart) do not
// overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DayWindow returns the calendar-day floor (00:00:00.000) and ceiling
// (23:59:59.999) of t, in t's location.
func DayWindow(t time.Time) (dayStart, dayEnd time.Time) {
	dayStart = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	dayEnd = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
	return dayStart, dayEnd
}

// EffectiveInterval recomputes a stored booking's [start, end) from its Date
// and its authoritative StartTime clock string. The booking's own persisted
// duration wins; fallbackDuration covers rows stored before duration was
// persisted. An unparseable clock falls back to the Date instant as-is.
func EffectiveInterval(b Booking, fallbackDuration int) (start, end time.Time) {
	start = combineClock(b.Date, b.StartTime)
	duration := b.Duration
	if duration <= 0 {
		duration = fallbackDuration
	}
	return start, ResolveEnd(start, duration)
}

// combineClock places an "HH:MM" clock onto date's calendar day.
func combineClock(date time.Time, clock string) time.Time {
	hour, min, ok := parseClock(clock)
	if !ok {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, date.Location())
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseClock(s string) (hour, min int, ok bool) {
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	min, err = strconv.Atoi(strings.TrimSpace(m))
	if err != nil || min < 0 || min > 59 {
		return 0, 0, false
	}
	return hour, min, true
}
