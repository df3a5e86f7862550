// Package ics converts between calendar events and iCalendar feeds.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/medical-calendar/backend/internal/schedule"
)

const (
	productID = "-//Medical Calendar//Scheduling//EN"
	uidSuffix = "@medcal"

	// xPrefix prefixes the properties carrying detail fields.
	xPrefix = "X-MEDCAL-"
	xType   = xPrefix + "TYPE"
)

// Export renders events as an iCalendar feed named name. stamp is used as
// the DTSTAMP of every event.
func Export(events []*schedule.Event, name string, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, e := range events {
		ev := cal.AddEvent(fmt.Sprintf("event-%d%s", e.ID, uidSuffix))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.Start)
		ev.SetEndAt(e.End)
		ev.SetSummary(e.Title)

		category := e.Category()
		ev.SetProperty(ical.ComponentPropertyCategories, strings.ToUpper(string(category)))
		ev.SetProperty(ical.ComponentProperty(xType), string(category))

		if loc := schedule.Summarize(e.Detail).Location; loc != "" {
			ev.SetLocation(loc)
		}
		for _, kv := range schedule.DetailFields(e.Detail) {
			if kv[0] == "location" {
				continue
			}
			ev.SetProperty(ical.ComponentProperty(xPrefix+strings.ToUpper(kv[0])), kv[1])
		}
	}

	return cal.Serialize()
}

// EventID extracts the event id from a UID written by Export.
func EventID(uid string) (int64, bool) {
	var id int64
	if !strings.HasSuffix(uid, uidSuffix) {
		return 0, false
	}
	if _, err := fmt.Sscanf(strings.TrimSuffix(uid, uidSuffix), "event-%d", &id); err != nil {
		return 0, false
	}
	return id, true
}
