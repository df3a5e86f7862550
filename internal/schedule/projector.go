package schedule

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ViewMode is the active calendar view.
type ViewMode string

const (
	ViewMonth    ViewMode = "month"
	ViewWeek     ViewMode = "week"
	ViewWorkWeek ViewMode = "work_week"
	ViewDay      ViewMode = "day"
	ViewAgenda   ViewMode = "agenda"
)

// ParseViewMode validates a view name.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ViewMonth, ViewWeek, ViewWorkWeek, ViewDay, ViewAgenda:
		return m, nil
	default:
		return "", fmt.Errorf("unknown view %q", s)
	}
}

// Grouped reports whether the view renders one aggregate per day.
func (m ViewMode) Grouped() bool {
	return m == ViewMonth
}

// GroupOrder decides which event represents a day and how days are ordered.
type GroupOrder int

const (
	// OrderInserted keeps store order: the first inserted event of a day
	// represents it and days appear in order of first appearance.
	OrderInserted GroupOrder = iota
	// OrderStart sorts events by start time (stable) before grouping.
	OrderStart
)

// ParseGroupOrder accepts "inserted" or "start".
func ParseGroupOrder(s string) (GroupOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inserted":
		return OrderInserted, nil
	case "start":
		return OrderStart, nil
	default:
		return OrderInserted, fmt.Errorf("unknown group order %q", s)
	}
}

func (o GroupOrder) String() string {
	if o == OrderStart {
		return "start"
	}
	return "inserted"
}

// DayAggregate stands for every event of one day in the month view.
// Members reference the store's records; they are never copied.
type DayAggregate struct {
	Day            DayKey
	Representative *Event
	Members        []*Event
}

// aggregateIDPrefix marks entry IDs that address a day rather than an event.
const aggregateIDPrefix = "day-"

// ID is derived from the day only, so it survives re-projection.
func (a DayAggregate) ID() string {
	return aggregateIDPrefix + string(a.Day)
}

// Count returns the number of events on the day.
func (a DayAggregate) Count() int {
	return len(a.Members)
}

// Title is the label shown in the month grid.
func (a DayAggregate) Title() string {
	return AggregateTitle(a.Count())
}

// AggregateTitle renders "<n> event(s) this date".
func AggregateTitle(n int) string {
	if n == 1 {
		return "1 event this date"
	}
	return strconv.Itoa(n) + " events this date"
}

// Entry is one render-ready item. Exactly one of Event and Aggregate is set.
type Entry struct {
	ID        string
	Title     string
	Start     time.Time
	End       time.Time
	Event     *Event
	Aggregate *DayAggregate
}

// IsAggregate reports whether the entry groups a whole day.
func (e Entry) IsAggregate() bool {
	return e.Aggregate != nil
}

// EventEntryID is the entry ID of a single event.
func EventEntryID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseEntryID splits an entry ID into an event ID or a day key.
func ParseEntryID(s string) (id int64, day DayKey, err error) {
	if rest, ok := strings.CutPrefix(s, aggregateIDPrefix); ok {
		day, err = ParseDayKey(rest)
		return 0, day, err
	}
	id, err = strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid entry id %q", s)
	}
	return id, "", nil
}

// Projector derives render entries from the event sequence. It keeps no
// state between calls.
type Projector struct {
	Location *time.Location
	Order    GroupOrder
}

// Project returns the entries to render for mode.
func (p Projector) Project(events []*Event, mode ViewMode) []Entry {
	if mode.Grouped() {
		groups := p.Group(events)
		out := make([]Entry, 0, len(groups))
		for i := range groups {
			g := &groups[i]
			out = append(out, Entry{
				ID:        g.ID(),
				Title:     g.Title(),
				Start:     g.Representative.Start,
				End:       g.Representative.End,
				Aggregate: g,
			})
		}
		return out
	}

	out := make([]Entry, 0, len(events))
	for _, e := range events {
		out = append(out, Entry{
			ID:    EventEntryID(e.ID),
			Title: e.Title,
			Start: e.Start,
			End:   e.End,
			Event: e,
		})
	}
	return out
}

// Group partitions events by the day they start on.
func (p Projector) Group(events []*Event) []DayAggregate {
	ordered := events
	if p.Order == OrderStart {
		ordered = slices.Clone(events)
		slices.SortStableFunc(ordered, func(a, b *Event) int {
			return a.Start.Compare(b.Start)
		})
	}

	index := make(map[DayKey]int)
	var groups []DayAggregate
	for _, e := range ordered {
		day := e.Day(p.Location)
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayAggregate{Day: day, Representative: e})
		}
		groups[i].Members = append(groups[i].Members, e)
	}
	return groups
}
