// Package pipeline composes the portal session, the grid parsers and the
// calendar writer into one idempotent sync of the configured week window.
//
// Error policy: optimistic per cell (one broken label never stops a week,
// it is logged and skipped), pessimistic per write (any non-conflict remote
// failure aborts the run so the calendar is not left silently diverging;
// the deterministic id space makes the next run converge).
package pipeline

import (
	"context"
	"time"

	"mocal/internal/config"
	"mocal/internal/locale"
	appLog "mocal/internal/log"
	"mocal/internal/model"
	"mocal/internal/timetable"
)

const (
	// SummaryPrefix tags every synced event so family members can tell the
	// pupil's lessons from their own at a glance.
	SummaryPrefix = "[Mo] "

	// EventColorID is the fixed provider color tag for pupil events.
	EventColorID = "5"

	// Window bounds relative to "now". Lessons already two weeks gone or
	// more than two months out are not written.
	pastWindow   = 14 * 24 * time.Hour
	futureWindow = 60 * 24 * time.Hour
)

// WeekSource yields the rendered HTML of the currently displayed week and
// advances the portal to the next one. NextWeek returning false without an
// error is the normal end of the window.
type WeekSource interface {
	Snapshot(ctx context.Context) (string, error)
	NextWeek(ctx context.Context) (bool, error)
}

// EventWriter stores one event under its caller-supplied id, reporting
// whether it was created or overwritten.
type EventWriter interface {
	Upsert(ctx context.Context, ev model.PupilEvent) (created bool, err error)
}

// Report accumulates the outcome of one run.
type Report struct {
	Started time.Time
	Weeks   int
	Created int
	Updated int
	Skipped int

	// Events holds the events submitted this run, in submission order.
	// The ICS dump serializes it.
	Events []model.PupilEvent
}

// Pipeline drives one sync run across the configured window of weeks.
type Pipeline struct {
	cfg   *config.Config
	loc   *locale.Table
	zone  *time.Location
	src   WeekSource
	store EventWriter

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func New(cfg *config.Config, loc *locale.Table, zone *time.Location, src WeekSource, store EventWriter) *Pipeline {
	return &Pipeline{cfg: cfg, loc: loc, zone: zone, src: src, store: store}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run syncs up to cfg.WeeksToFetch weeks, starting at the week the portal
// currently displays. It stops early when the portal runs out of next-week
// controls, and aborts on the first remote write failure.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	rep := &Report{Started: p.now()}
	now := p.now().In(p.zone)
	notBefore := now.Add(-pastWindow)
	notAfter := now.Add(futureWindow)

	// Identical (times, subject, room, day) cells within one run collapse
	// onto the same id; only the first is submitted.
	seen := make(map[string]bool)

	for week := 0; week < p.cfg.WeeksToFetch; week++ {
		html, err := p.src.Snapshot(ctx)
		if err != nil {
			return rep, err
		}

		wk := timetable.ParseGrid(html, p.loc, p.zone)

		anchor := wk.Monday
		if anchor == nil {
			if week == 0 {
				// The first week is by definition the one currently shown,
				// so today is a usable approximate anchor for it.
				t := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.zone)
				anchor = &t
				appLog.Warn("pipeline: banner unparseable; anchoring first week on today", "header", wk.Header)
			} else {
				// Advanced weeks must surface a fresh banner; guessing an
				// anchor here would silently mis-date every lesson.
				appLog.Warn("pipeline: banner unparseable; skipping week", "week", week+1, "header", wk.Header)
			}
		}

		if anchor != nil {
			if err := p.syncWeek(ctx, rep, wk, *anchor, notBefore, notAfter, seen); err != nil {
				return rep, err
			}
		}
		rep.Weeks++

		if week+1 < p.cfg.WeeksToFetch {
			ok, err := p.src.NextWeek(ctx)
			if err != nil {
				return rep, err
			}
			if !ok {
				appLog.Warn("pipeline: next-week control not found; stopping early", "weeks_done", rep.Weeks)
				break
			}
		}
	}

	appLog.Info("pipeline: run complete",
		"weeks", rep.Weeks,
		"created", rep.Created,
		"updated", rep.Updated,
		"skipped", rep.Skipped,
	)
	return rep, nil
}

func (p *Pipeline) syncWeek(ctx context.Context, rep *Report, wk model.WeekContext, anchor time.Time, notBefore, notAfter time.Time, seen map[string]bool) error {
	for _, cell := range wk.Cells {
		lesson, ok := timetable.ParseLabel(cell.Label, p.loc)
		if !ok {
			appLog.Warn("pipeline: cell without a time span; skipped", "label", cell.Label)
			rep.Skipped++
			continue
		}
		lesson.DayIndex = cell.DayIndex

		if lesson.DayIndex < 0 || lesson.DayIndex > 6 {
			appLog.Warn("pipeline: cell without a day column; skipped", "label", cell.Label)
			rep.Skipped++
			continue
		}
		if !lesson.End.After(lesson.Start) {
			appLog.Warn("pipeline: lesson ends before it starts; skipped", "label", cell.Label)
			rep.Skipped++
			continue
		}

		day := anchor.AddDate(0, 0, lesson.DayIndex)
		start := time.Date(day.Year(), day.Month(), day.Day(), lesson.Start.Hour, lesson.Start.Minute, 0, 0, p.zone)
		end := time.Date(day.Year(), day.Month(), day.Day(), lesson.End.Hour, lesson.End.Minute, 0, 0, p.zone)

		if end.Before(notBefore) || start.After(notAfter) {
			rep.Skipped++
			continue
		}

		ev := model.PupilEvent{
			Summary:  SummaryPrefix + lesson.Subject,
			Location: lesson.Room,
			Start:    start,
			End:      end,
			ColorID:  EventColorID,
		}
		ev.ID = EventID(start, end, ev.Summary, ev.Location)

		if seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true

		created, err := p.store.Upsert(ctx, ev)
		if err != nil {
			return err
		}
		rep.Events = append(rep.Events, ev)
		if created {
			rep.Created++
		} else {
			rep.Updated++
		}
	}
	return nil
}
