package calendar

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/zulandar/carecal/internal/recurrence"
)

// DefaultEventLength is the duration given to exported events, which carry
// only a start time.
const DefaultEventLength = time.Hour

// ExportICS writes events as an iCalendar feed. Each event gets a UID
// derived from its occurrence slot so re-exports are stable.
func ExportICS(w io.Writer, name string, events []VirtualEvent, stamp time.Time) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//carecal//calendar export//EN")
	if name != "" {
		cal.SetName(name)
		cal.SetXWRCalName(name)
	}

	stamp = recurrence.Normalize(stamp)
	for _, e := range events {
		ev := cal.AddEvent(eventUID(e))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.Date)
		ev.SetEndAt(e.Date.Add(DefaultEventLength))
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		ev.SetProperty(ics.ComponentPropertyCategories, string(e.Kind))
		if e.OriginalDate != nil {
			ev.SetProperty(ics.ComponentPropertyRecurrenceId, e.OriginalDate.UTC().Format("20060102T150405Z"))
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("calendar: export ics: %w", err)
	}
	return nil
}

func eventUID(e VirtualEvent) string {
	orig := e.Date
	if e.OriginalDate != nil {
		orig = *e.OriginalDate
	}
	return fmt.Sprintf("%s-%s@carecal", e.EventMasterID, orig.UTC().Format("20060102"))
}
