package calendar

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/medical-calendar/backend/internal/schedule"
)

// EntryView is one rendered calendar entry.
type EntryView struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Start     time.Time       `json:"start"`
	End       time.Time       `json:"end"`
	Aggregate bool            `json:"aggregate"`
	Count     int             `json:"count,omitempty"`
	Event     *schedule.Event `json:"event,omitempty"`
	Members   []int64         `json:"members,omitempty"`
}

func newEntryView(e schedule.Entry) EntryView {
	v := EntryView{
		ID:    e.ID,
		Title: e.Title,
		Start: e.Start,
		End:   e.End,
		Event: e.Event,
	}
	if e.Aggregate != nil {
		v.Aggregate = true
		v.Count = e.Aggregate.Count()
		v.Members = make([]int64, 0, len(e.Aggregate.Members))
		for _, m := range e.Aggregate.Members {
			v.Members = append(v.Members, m.ID)
		}
	}
	return v
}

func entryViews(entries []schedule.Entry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, newEntryView(e))
	}
	return out
}

// FormView is the content of the create/edit modal.
type FormView struct {
	Title    string          `json:"title"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// FieldError is a form validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ModalView is the modal state of one session.
type ModalView struct {
	State    string            `json:"state"`
	Form     *FormView         `json:"form,omitempty"`
	Error    *FieldError       `json:"error,omitempty"`
	Selected int64             `json:"selected_id,omitempty"`
	Day      schedule.DayKey   `json:"day,omitempty"`
	Roster   []*schedule.Event `json:"roster,omitempty"`
}

func newModalView(c *schedule.Controller) ModalView {
	v := ModalView{State: c.State().String()}

	switch c.State() {
	case schedule.StateCreating, schedule.StateEditingSingle:
		f := c.Form()
		fv := &FormView{Title: f.Title, Start: f.Start, End: f.End}
		if f.Detail != nil {
			if raw, err := schedule.MarshalDetail(f.Detail); err == nil {
				fv.Resource = raw
			}
		}
		v.Form = fv

		var verr *schedule.ValidationError
		if errors.As(c.FormError(), &verr) {
			v.Error = &FieldError{Field: verr.Field, Message: verr.Message}
		}
		if id, ok := c.Selected(); ok {
			v.Selected = id
		}

	case schedule.StateViewingDay:
		v.Day, _ = c.Day()
		v.Roster = c.Roster()
		if v.Roster == nil {
			v.Roster = []*schedule.Event{}
		}
	}
	return v
}

// Snapshot is everything a session needs to render the calendar.
type Snapshot struct {
	View    schedule.ViewMode `json:"view"`
	Order   string            `json:"group_order"`
	Entries []EntryView       `json:"entries"`
	Modal   ModalView         `json:"modal"`
}

// Stats feeds the dashboard cards.
type Stats struct {
	SchoolYear  string                    `json:"school_year"`
	TotalEvents int                       `json:"total_events"`
	Today       int                       `json:"today"`
	ByCategory  map[schedule.Category]int `json:"by_category"`
}
