// Package timetable turns the portal's rendered weekly grid into structured
// lesson records. All parsing here is tolerant: a cell that cannot be
// understood yields no lesson, never an error.
package timetable

import (
	"regexp"
	"strconv"
	"strings"

	"mocal/internal/locale"
	"mocal/internal/model"
)

var (
	// timeToken matches an hour+minute in the portal's accepted spellings:
	// "08:00", "8h30", "08H00".
	timeToken = regexp.MustCompile(`\b([01]?\d|2[0-3])\s*(?::|[hH])\s*([0-5]\d)\b`)

	spaceRun = regexp.MustCompile(`\s+`)
)

// ParseLabel recovers a lesson from a grid cell's accessibility label, e.g.
//
//	"08h00 - 09h00 ANGLAIS LV1 — Salle 105 — Prof : Dupont"
//
// The first two time tokens become the start and end; the room is the first
// localized room annotation; the subject is whatever remains after stripping
// the time span, the room phrase and any trailing teacher annotation.
//
// Returns ok=false when fewer than two time tokens are present; the caller
// discards such cells. DayIndex is not the label's concern and is returned
// as -1 for the caller to fill in from the grid cell.
func ParseLabel(label string, loc *locale.Table) (model.Lesson, bool) {
	s := strings.TrimSpace(spaceRun.ReplaceAllString(label, " "))

	matches := timeToken.FindAllStringSubmatchIndex(s, 2)
	if len(matches) < 2 {
		return model.Lesson{DayIndex: -1}, false
	}

	lesson := model.Lesson{
		Start:    clockAt(s, matches[0]),
		End:      clockAt(s, matches[1]),
		DayIndex: -1,
	}

	// Everything after the time span carries subject, room and teacher.
	rest := s[matches[1][1]:]

	// Strip a trailing teacher annotation before room extraction so that a
	// dash-separated teacher phrase cannot leak into the room capture.
	if m := loc.Teacher.FindStringIndex(rest); m != nil {
		rest = rest[:m[0]]
	}

	if m := loc.Room.FindStringSubmatchIndex(rest); m != nil {
		lesson.Room = trimFiller(rest[m[2]:m[3]])
		rest = rest[:m[0]] + rest[m[1]:]
	}

	lesson.Subject = trimFiller(rest)
	if lesson.Subject == "" {
		lesson.Subject = loc.Placeholder
	}

	return lesson, true
}

func clockAt(s string, m []int) model.ClockTime {
	// Submatch indices are guaranteed by the regex shape.
	hour, _ := strconv.Atoi(s[m[2]:m[3]])
	minute, _ := strconv.Atoi(s[m[4]:m[5]])
	return model.ClockTime{Hour: hour, Minute: minute}
}

// trimFiller removes surrounding separators left over after stripping
// neighboring phrases: spaces, ASCII and typographic dashes, colons.
func trimFiller(s string) string {
	return strings.Trim(strings.TrimSpace(s), " \t-–—:·")
}
