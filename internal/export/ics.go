// Package export serializes the events of a sync run to an ICS file, so a
// run can be inspected offline without touching the remote calendar.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	ics "github.com/arran4/golang-ical"

	appLog "mocal/internal/log"
	"mocal/internal/model"
)

// BuildCalendar assembles an iCalendar document from the run's events. The
// deterministic event id doubles as the UID, so repeated dumps of the same
// window diff cleanly.
func BuildCalendar(events []model.PupilEvent, stamped time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//mocal//timetable sync//EN")

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamped)
		ve.SetSummary(ev.Summary)
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
	}

	return cal
}

// WriteICS serializes events to w.
func WriteICS(w io.Writer, events []model.PupilEvent, stamped time.Time) error {
	return BuildCalendar(events, stamped).SerializeTo(w)
}

// DumpWindow writes the run's events into dir as a timestamped .ics file
// and returns the file path.
func DumpWindow(dir string, events []model.PupilEvent, startedAt time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("mocal-%s.ics", startedAt.Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteICS(f, events, startedAt); err != nil {
		return "", err
	}

	appLog.Info("export: run dumped", "path", path, "event_count", len(events))
	return path, nil
}
