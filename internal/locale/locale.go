// Package locale holds the portal-specific vocabulary: the regexes that
// recognize room and teacher annotations inside cell labels, and the ordered
// selector probe lists the browser driver walks when locating controls.
//
// Everything here is data, not behavior. Probe lists are ordered fallbacks:
// the first selector that matches any element wins and the rest are never
// evaluated, so the system degrades predictably when the portal renames a
// control. Any list can be overridden per deployment from the config file.
package locale

import (
	"fmt"
	"regexp"
)

// Table bundles the locale-dependent vocabulary and selectors for one portal.
type Table struct {
	Name string

	// Room matches a room annotation inside a cell label; the first capture
	// group is the room token or phrase.
	Room *regexp.Regexp

	// Teacher matches a trailing teacher annotation; everything from the
	// match start onward is stripped from the subject.
	Teacher *regexp.Regexp

	// Placeholder is the generic subject used when a label yields nothing
	// after stripping times, room and teacher.
	Placeholder string

	// DayIndexAttrs are the DOM attributes probed, nearest ancestor first,
	// to recover a cell's day-column index.
	DayIndexAttrs []string

	// Banner are the selectors probed for the week period banner text.
	Banner []string

	// Selector probe lists for the browser driver, tried in order.
	UserField     []string
	PasswordField []string
	SubmitButton  []string
	TimetableLink []string
	SchoolLifeTab []string
	NextWeek      []string
}

// French-portal vocabulary. The label convention is
// "08h00 - 09h00 ANGLAIS LV1 — Salle 105 — Prof : Dupont"; "Room" also
// appears on portals that mix English widget text into French pages.
func french() *Table {
	return &Table{
		Name:        "fr",
		Room:        regexp.MustCompile(`(?i)\b(?:salle|room)\s*:?\s*([^—–(]+)`),
		Teacher:     regexp.MustCompile(`(?i)[—–-]?\s*\b(?:prof(?:\.|esseure?)?\b|enseignante?\b|teacher\b|avec\b|mme\b|m\.)\s*:?.*$`),
		Placeholder: "Cours",
		DayIndexAttrs: []string{
			"data-day", "data-day-index", "data-jour",
		},
		Banner: []string{
			".periode-banner", ".bandeau-periode", "#periode",
			"[class*='periode']", "[class*='semaine']", "h2",
		},
		UserField: []string{
			`input[name='user']`, `input[name='username']`, `input[name='email']`,
			`#username`, `input[type='text']`,
		},
		PasswordField: []string{
			`input[name='password']`, `#password`, `input[type='password']`,
		},
		SubmitButton: []string{
			`button[type='submit']`, `input[type='submit']`, `button#connexion`,
		},
		TimetableLink: []string{
			`a[href*='pronote']`, `a[title*='Pronote']`, `a[title*='emploi du temps' i]`,
			`//a[contains(normalize-space(.),"Emploi du temps")]`,
		},
		SchoolLifeTab: []string{
			`//div[contains(@class,'objetBandeauEntete')]//div[contains(normalize-space(.),'Vie scolaire')]`,
			`//li[contains(normalize-space(.),'Vie scolaire')]`,
			`//a[contains(normalize-space(.),'Vie scolaire')]`,
		},
		NextWeek: []string{
			`[title*='semaine suivante' i]`, `[aria-label*='semaine suivante' i]`,
			`[title*='next week' i]`, `[aria-label*='next week' i]`,
			`//button[contains(normalize-space(.),'›')]`,
		},
	}
}

func english() *Table {
	t := french()
	t.Name = "en"
	t.Room = regexp.MustCompile(`(?i)\broom\s*:?\s*([^—–(]+)`)
	t.Teacher = regexp.MustCompile(`(?i)[—–-]?\s*\bteacher\b\s*:?.*$`)
	t.Placeholder = "Lesson"
	t.SchoolLifeTab = []string{
		`//div[contains(@class,'objetBandeauEntete')]//div[contains(normalize-space(.),'School life')]`,
		`//li[contains(normalize-space(.),'School life')]`,
		`//a[contains(normalize-space(.),'School life')]`,
	}
	return t
}

// Override keys accepted in the config file's selector_overrides map.
const (
	KeyDayIndexAttrs = "day_index_attrs"
	KeyBanner        = "banner"
	KeyUserField     = "user_field"
	KeyPasswordField = "password_field"
	KeySubmitButton  = "submit_button"
	KeyTimetableLink = "timetable_link"
	KeySchoolLifeTab = "school_life_tab"
	KeyNextWeek      = "next_week"
)

// Resolve returns the named builtin table with any per-deployment selector
// overrides applied. An override replaces the whole probe list for its key,
// keeping the ordered-fallback semantics intact.
func Resolve(name string, overrides map[string][]string) (*Table, error) {
	var t *Table
	switch name {
	case "", "fr":
		t = french()
	case "en":
		t = english()
	default:
		return nil, fmt.Errorf("locale: unknown table %q", name)
	}

	for key, list := range overrides {
		if len(list) == 0 {
			continue
		}
		switch key {
		case KeyDayIndexAttrs:
			t.DayIndexAttrs = list
		case KeyBanner:
			t.Banner = list
		case KeyUserField:
			t.UserField = list
		case KeyPasswordField:
			t.PasswordField = list
		case KeySubmitButton:
			t.SubmitButton = list
		case KeyTimetableLink:
			t.TimetableLink = list
		case KeySchoolLifeTab:
			t.SchoolLifeTab = list
		case KeyNextWeek:
			t.NextWeek = list
		default:
			return nil, fmt.Errorf("locale: unknown selector override key %q", key)
		}
	}

	return t, nil
}
