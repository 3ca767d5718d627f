package timetable

import (
	"regexp"
	"strconv"
	"time"
)

// bannerDate matches the first DD/MM/YYYY date of a period banner such as
// "Semaine 37 - du 08/09/2025 au 14/09/2025".
var bannerDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)

// ParseWeekHeader recovers the Monday anchor of the displayed week from the
// period banner text. The portal always lists the week's first day first, so
// the first date is taken as the Monday, at midnight in the given zone.
//
// Returns nil when the banner carries no recognizable date; the pipeline
// decides whether to fall back or skip the week.
func ParseWeekHeader(text string, zone *time.Location) *time.Time {
	m := bannerDate.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return nil
	}

	monday := time.Date(year, time.Month(month), day, 0, 0, 0, 0, zone)
	return &monday
}
