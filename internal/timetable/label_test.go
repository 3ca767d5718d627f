package timetable

import (
	"testing"

	"mocal/internal/locale"
)

func mustTable(t *testing.T, name string) *locale.Table {
	t.Helper()
	loc, err := locale.Resolve(name, nil)
	if err != nil {
		t.Fatalf("Resolve(%q) returned error: %v", name, err)
	}
	return loc
}

func TestParseLabel_RoundTrip(t *testing.T) {
	loc := mustTable(t, "en")

	lesson, ok := ParseLabel("08:00 - 09:00 ENGLISH LV1 — Room 105", loc)
	if !ok {
		t.Fatalf("expected label to parse")
	}
	if lesson.Start.Hour != 8 || lesson.Start.Minute != 0 {
		t.Fatalf("unexpected start: %+v", lesson.Start)
	}
	if lesson.End.Hour != 9 || lesson.End.Minute != 0 {
		t.Fatalf("unexpected end: %+v", lesson.End)
	}
	if lesson.Subject != "ENGLISH LV1" {
		t.Fatalf("unexpected subject: %q", lesson.Subject)
	}
	if lesson.Room != "105" {
		t.Fatalf("unexpected room: %q", lesson.Room)
	}
}

func TestParseLabel_FrenchSpellings(t *testing.T) {
	loc := mustTable(t, "fr")

	lesson, ok := ParseLabel("08h00 - 09h30 ANGLAIS LV1 — Salle 105 — Prof : Dupont", loc)
	if !ok {
		t.Fatalf("expected label to parse")
	}
	if lesson.Start.Hour != 8 || lesson.Start.Minute != 0 {
		t.Fatalf("unexpected start: %+v", lesson.Start)
	}
	if lesson.End.Hour != 9 || lesson.End.Minute != 30 {
		t.Fatalf("unexpected end: %+v", lesson.End)
	}
	if lesson.Subject != "ANGLAIS LV1" {
		t.Fatalf("unexpected subject: %q", lesson.Subject)
	}
	if lesson.Room != "105" {
		t.Fatalf("unexpected room: %q", lesson.Room)
	}
}

func TestParseLabel_UppercaseHourSeparator(t *testing.T) {
	loc := mustTable(t, "fr")

	lesson, ok := ParseLabel("10H15 - 11H15 EPS", loc)
	if !ok {
		t.Fatalf("expected label to parse")
	}
	if lesson.Start.Hour != 10 || lesson.Start.Minute != 15 {
		t.Fatalf("unexpected start: %+v", lesson.Start)
	}
	if lesson.Subject != "EPS" {
		t.Fatalf("unexpected subject: %q", lesson.Subject)
	}
	if lesson.Room != "" {
		t.Fatalf("expected empty room, got %q", lesson.Room)
	}
}

func TestParseLabel_TeacherAnnotationStripped(t *testing.T) {
	loc := mustTable(t, "fr")

	for _, label := range []string{
		"09:00 - 10:00 HISTOIRE — Salle B12 — M. Klein",
		"09:00 - 10:00 HISTOIRE — Salle B12 — Mme Klein",
		"09:00 - 10:00 HISTOIRE — Salle B12 — Professeur Klein",
	} {
		lesson, ok := ParseLabel(label, loc)
		if !ok {
			t.Fatalf("expected %q to parse", label)
		}
		if lesson.Subject != "HISTOIRE" {
			t.Fatalf("label %q: unexpected subject %q", label, lesson.Subject)
		}
		if lesson.Room != "B12" {
			t.Fatalf("label %q: unexpected room %q", label, lesson.Room)
		}
	}
}

func TestParseLabel_MissingTimes(t *testing.T) {
	loc := mustTable(t, "en")

	cases := []string{
		"no times here",
		"",
		"only one time 08:00 MATH",
	}
	for _, label := range cases {
		if _, ok := ParseLabel(label, loc); ok {
			t.Fatalf("expected %q not to parse", label)
		}
	}
}

func TestParseLabel_EmptySubjectUsesPlaceholder(t *testing.T) {
	loc := mustTable(t, "en")

	lesson, ok := ParseLabel("08:00 - 09:00 — Room 7", loc)
	if !ok {
		t.Fatalf("expected label to parse")
	}
	if lesson.Subject != loc.Placeholder {
		t.Fatalf("expected placeholder subject %q, got %q", loc.Placeholder, lesson.Subject)
	}
	if lesson.Room != "7" {
		t.Fatalf("unexpected room: %q", lesson.Room)
	}
}

func TestParseLabel_WhitespaceCollapsed(t *testing.T) {
	loc := mustTable(t, "en")

	lesson, ok := ParseLabel("  08:00   -  09:00\n\tMATH   ADVANCED  ", loc)
	if !ok {
		t.Fatalf("expected label to parse")
	}
	if lesson.Subject != "MATH ADVANCED" {
		t.Fatalf("unexpected subject: %q", lesson.Subject)
	}
}

func TestParseLabel_NeverSetsDayIndex(t *testing.T) {
	loc := mustTable(t, "en")

	lesson, _ := ParseLabel("08:00 - 09:00 MATH", loc)
	if lesson.DayIndex != -1 {
		t.Fatalf("label parser must leave day index unset, got %d", lesson.DayIndex)
	}
}
