package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	appLog "mocal/internal/log"
	"mocal/internal/model"
)

// ErrRemote wraps any calendar API failure other than the expected
// duplicate-id conflict. The pipeline aborts the run on it.
var ErrRemote = errors.New("gcal: calendar request failed")

// Upserter writes pupil events into a single calendar, keyed by the
// caller-supplied deterministic event id. User notifications are always
// suppressed.
type Upserter struct {
	svc        *calendar.Service
	calendarID string
}

func NewUpserter(svc *calendar.Service, calendarID string) *Upserter {
	return &Upserter{svc: svc, calendarID: calendarID}
}

// Upsert inserts ev under its id, switching to an update of the same id when
// the calendar reports the id as already taken. After a successful call the
// calendar holds exactly one event with that id and these fields; repeating
// the call changes nothing beyond network traffic.
//
// Returns created=true when the insert path won.
func (u *Upserter) Upsert(ctx context.Context, ev model.PupilEvent) (bool, error) {
	body := toAPIEvent(ev)

	_, err := u.svc.Events.Insert(u.calendarID, body).SendUpdates("none").Context(ctx).Do()
	if err == nil {
		appLog.Debug("gcal: event inserted", "id", ev.ID, "summary", ev.Summary)
		return true, nil
	}
	if !isDuplicate(err) {
		return false, fmt.Errorf("%w: insert %s: %v", ErrRemote, ev.ID, err)
	}

	if _, err := u.svc.Events.Update(u.calendarID, ev.ID, body).SendUpdates("none").Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("%w: update %s: %v", ErrRemote, ev.ID, err)
	}
	appLog.Debug("gcal: event updated", "id", ev.ID, "summary", ev.Summary)
	return false, nil
}

func toAPIEvent(ev model.PupilEvent) *calendar.Event {
	return &calendar.Event{
		Id:       ev.ID,
		Summary:  ev.Summary,
		Location: ev.Location,
		ColorId:  ev.ColorID,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.Start.Location().String(),
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.End.Location().String(),
		},
	}
}

// isDuplicate recognizes the API's duplicate-identifier responses: the
// regular 409 conflict, and the 400/duplicate variant returned when an id
// belonged to a since-deleted event.
func isDuplicate(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusConflict {
		return true
	}
	if gerr.Code == http.StatusBadRequest {
		for _, item := range gerr.Errors {
			if item.Reason == "duplicate" {
				return true
			}
		}
	}
	return false
}
