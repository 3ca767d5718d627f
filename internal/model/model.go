package model

import "time"

// ClockTime is a wall-clock time of day without a date.
type ClockTime struct {
	Hour   int
	Minute int
}

// After reports whether t is strictly later in the day than u.
func (t ClockTime) After(u ClockTime) bool {
	if t.Hour != u.Hour {
		return t.Hour > u.Hour
	}
	return t.Minute > u.Minute
}

// Lesson is one scheduled class recovered from a timetable grid cell.
// Lessons are transient values: they live only between grid extraction and
// event composition and are never stored between weeks.
type Lesson struct {
	Start ClockTime
	End   ClockTime

	// DayIndex is the offset in days from the week's Monday (0..6).
	// -1 means the grid did not expose a day column for this cell; such
	// lessons are discarded by the pipeline.
	DayIndex int

	Subject string
	Room    string
}

// Cell is a raw grid cell before label parsing: the accessibility label
// plus the day-column index recovered from the surrounding DOM (-1 if none).
type Cell struct {
	Label    string
	DayIndex int
}

// WeekContext describes one displayed week of the timetable.
type WeekContext struct {
	// Monday is the anchor date (midnight, local zone) of the displayed
	// week, or nil when the period banner could not be parsed.
	Monday *time.Time

	// Cells are the raw lesson cells of the week. Order carries no meaning.
	Cells []Cell

	// Header is the raw period-banner text, kept for diagnostics.
	Header string
}

// PupilEvent is a calendar event materialized from a lesson, ready to be
// written to the family calendar.
type PupilEvent struct {
	// ID is the deterministic identifier derived from (start, end, title,
	// room). Repeated runs produce the same ID for the same lesson.
	ID string

	Summary  string
	Location string

	// Start / End are timezone-qualified timestamps in the configured
	// local zone.
	Start time.Time
	End   time.Time

	// ColorID is the provider-specific color tag marking pupil events.
	ColorID string
}
