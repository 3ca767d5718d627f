package timetable

import (
	"testing"
	"time"
)

func TestParseWeekHeader(t *testing.T) {
	monday := ParseWeekHeader("Semaine 37 - du 08/09/2025 au 14/09/2025", time.UTC)
	if monday == nil {
		t.Fatalf("expected a Monday anchor")
	}
	want := time.Date(2025, time.September, 8, 0, 0, 0, 0, time.UTC)
	if !monday.Equal(want) {
		t.Fatalf("unexpected anchor: got %v, want %v", monday, want)
	}
}

func TestParseWeekHeader_SingleDigitDay(t *testing.T) {
	monday := ParseWeekHeader("Week 2 - 5/1/2026 to 11/1/2026", time.UTC)
	if monday == nil {
		t.Fatalf("expected a Monday anchor")
	}
	want := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	if !monday.Equal(want) {
		t.Fatalf("unexpected anchor: got %v, want %v", monday, want)
	}
}

func TestParseWeekHeader_TakesFirstDate(t *testing.T) {
	monday := ParseWeekHeader("01/12/2025 - 07/12/2025", time.UTC)
	if monday == nil {
		t.Fatalf("expected a Monday anchor")
	}
	if monday.Day() != 1 || monday.Month() != time.December {
		t.Fatalf("expected the first date to win, got %v", monday)
	}
}

func TestParseWeekHeader_Absent(t *testing.T) {
	for _, text := range []string{
		"",
		"Semaine en cours",
		"99/99/2025 nonsense",
	} {
		if monday := ParseWeekHeader(text, time.UTC); monday != nil {
			t.Fatalf("expected no anchor for %q, got %v", text, monday)
		}
	}
}

func TestParseWeekHeader_MidnightLocal(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	monday := ParseWeekHeader("du 08/09/2025 au 14/09/2025", zone)
	if monday == nil {
		t.Fatalf("expected a Monday anchor")
	}
	if h, m, s := monday.Clock(); h != 0 || m != 0 || s != 0 {
		t.Fatalf("anchor must be midnight, got %v", monday)
	}
	if monday.Location() != zone {
		t.Fatalf("anchor must carry the configured zone, got %v", monday.Location())
	}
}
