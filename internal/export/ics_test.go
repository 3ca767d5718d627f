package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mocal/internal/model"
)

func sampleEvents() []model.PupilEvent {
	start := time.Date(2025, time.September, 8, 8, 0, 0, 0, time.UTC)
	return []model.PupilEvent{
		{
			ID:       "mo_0123456789abcdef0123456789abcdef",
			Summary:  "[Mo] MATH",
			Location: "12",
			Start:    start,
			End:      start.Add(time.Hour),
			ColorID:  "5",
		},
		{
			ID:      "mo_fedcba9876543210fedcba9876543210",
			Summary: "[Mo] FRENCH",
			Start:   start.Add(2 * time.Hour),
			End:     start.Add(3 * time.Hour),
			ColorID: "5",
		},
	}
}

func TestWriteICS(t *testing.T) {
	var buf bytes.Buffer
	stamp := time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC)

	if err := WriteICS(&buf, sampleEvents(), stamp); err != nil {
		t.Fatalf("WriteICS returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"END:VCALENDAR",
		"UID:mo_0123456789abcdef0123456789abcdef",
		"SUMMARY:[Mo] MATH",
		"LOCATION:12",
		"SUMMARY:[Mo] FRENCH",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("serialized calendar missing %q:\n%s", want, out)
		}
	}

	// The second event has no room; no LOCATION line may be emitted for it.
	if strings.Count(out, "LOCATION:") != 1 {
		t.Fatalf("expected exactly one LOCATION line:\n%s", out)
	}
}

func TestDumpWindow(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC)

	path, err := DumpWindow(dir, sampleEvents(), stamp)
	if err != nil {
		t.Fatalf("DumpWindow returned error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("dump must land in the requested dir, got %s", path)
	}
	if !strings.HasSuffix(path, "mocal-20250910-120000.ics") {
		t.Fatalf("unexpected dump file name: %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading dump: %v", err)
	}
	if !strings.Contains(string(raw), "BEGIN:VEVENT") {
		t.Fatalf("dump holds no events:\n%s", raw)
	}
}
