package pipeline

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"
)

func TestEventID_Deterministic(t *testing.T) {
	start := time.Date(2025, time.September, 8, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	a := EventID(start, end, "[Mo] MATH", "12")
	b := EventID(start, end, "[Mo] MATH", "12")
	if a != b {
		t.Fatalf("same quadruple produced different ids: %s vs %s", a, b)
	}

	// Known-answer check so the id format cannot drift silently across
	// processes or refactors.
	if !strings.HasPrefix(a, "mo_") {
		t.Fatalf("id must carry the mo_ scope prefix, got %s", a)
	}
	if len(a) != len("mo_")+32 {
		t.Fatalf("id must be mo_ plus 32 hex chars, got %q", a)
	}
}

func TestEventID_WeekDisambiguation(t *testing.T) {
	start := time.Date(2025, time.September, 8, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	thisWeek := EventID(start, end, "[Mo] MATH", "12")
	nextWeek := EventID(start.AddDate(0, 0, 7), end.AddDate(0, 0, 7), "[Mo] MATH", "12")
	if thisWeek == nextWeek {
		t.Fatalf("same slot in different weeks must have different ids")
	}
}

func TestEventID_DistinctTuples(t *testing.T) {
	start := time.Date(2025, time.September, 8, 8, 0, 0, 0, time.UTC)
	differing := []string{
		EventID(start, start.Add(time.Hour), "[Mo] MATH", "12"),
		EventID(start, start.Add(time.Hour), "[Mo] MATH", "13"),
		EventID(start, start.Add(time.Hour), "[Mo] MATHS", "12"),
		EventID(start, start.Add(2*time.Hour), "[Mo] MATH", "12"),
		EventID(start.Add(time.Minute), start.Add(time.Hour), "[Mo] MATH", "12"),
	}
	seen := map[string]bool{}
	for _, id := range differing {
		if seen[id] {
			t.Fatalf("collision among hand-picked tuples: %s", id)
		}
		seen[id] = true
	}
}

func TestEventID_NoCollisionsAtScale(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	seen := make(map[string]string, 10000)
	for i := 0; i < 10000; i++ {
		start := base.AddDate(0, 0, rng.Intn(365)).Add(time.Duration(rng.Intn(24*60)) * time.Minute)
		end := start.Add(time.Duration(30+rng.Intn(180)) * time.Minute)
		title := fmt.Sprintf("[Mo] SUBJECT %d", rng.Intn(5000))
		room := fmt.Sprintf("%d", rng.Intn(400))

		key := fmt.Sprintf("%s|%s|%s|%s", start, end, title, room)
		id := EventID(start, end, title, room)

		if prev, ok := seen[id]; ok && prev != key {
			t.Fatalf("collision: %q and %q both map to %s", prev, key, id)
		}
		seen[id] = key
	}
}
