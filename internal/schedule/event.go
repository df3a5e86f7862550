// Package schedule implements the scheduling view model behind the medical
// calendar: an event store, a view projector that groups events per day for
// the month view, and an interaction controller that turns calendar gestures
// into store mutations.
//
// Nothing in this package is safe for concurrent use. Callers that share a
// Store between goroutines must serialize access themselves.
package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is a single scheduled item on the calendar.
//
// Events handed out by a Store are shared snapshots and must be treated as
// read-only; mutations go through the Store, which replaces the record.
type Event struct {
	ID     int64
	Title  string
	Start  time.Time
	End    time.Time
	Detail Detail
}

// Category returns the kind of the event as carried by its detail.
// Events without a detail read as consultations.
func (e Event) Category() Category {
	if e.Detail == nil {
		return CategoryConsultation
	}
	return e.Detail.Category()
}

// Day returns the calendar day the event starts on in loc.
func (e Event) Day(loc *time.Location) DayKey {
	return DayOf(e.Start, loc)
}

// eventJSON is the wire shape of an Event. The detail travels as the
// "resource" bag the dashboard already understands.
type eventJSON struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		ID:    e.ID,
		Title: e.Title,
		Start: e.Start,
		End:   e.End,
	}
	if e.Detail != nil {
		raw, err := MarshalDetail(e.Detail)
		if err != nil {
			return nil, fmt.Errorf("encoding event %d detail: %w", e.ID, err)
		}
		out.Resource = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var detail Detail
	if len(in.Resource) > 0 && string(in.Resource) != "null" {
		d, err := UnmarshalDetail(in.Resource)
		if err != nil {
			return fmt.Errorf("decoding event %d detail: %w", in.ID, err)
		}
		detail = d
	}

	*e = Event{
		ID:     in.ID,
		Title:  in.Title,
		Start:  in.Start,
		End:    in.End,
		Detail: detail,
	}
	return nil
}

// Patch describes a partial update of an Event. Nil fields are left as is.
type Patch struct {
	Title  *string
	Start  *time.Time
	End    *time.Time
	Detail Detail
}

// apply returns a merged copy of e. The ID never changes.
func (p Patch) apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.Detail != nil {
		e.Detail = p.Detail
	}
	return e
}
