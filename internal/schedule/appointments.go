package schedule

import (
	"fmt"
	"slices"
	"time"
)

// notAvailable fills empty columns of the appointments table.
const notAvailable = "N/A"

// Appointment is one row of the "today's appointments" table.
type Appointment struct {
	ID       int64     `json:"id"`
	Time     string    `json:"time"`
	Title    string    `json:"title"`
	Type     Category  `json:"type"`
	Patient  string    `json:"patient"`
	Doctor   string    `json:"doctor"`
	Location string    `json:"location"`
	Start    time.Time `json:"start"`
}

// TodaysAppointments lists the events starting on now's day in loc,
// ordered by start time.
func TodaysAppointments(events []*Event, now time.Time, loc *time.Location) []Appointment {
	if loc == nil {
		loc = time.Local
	}
	today := DayOf(now, loc)

	var todays []*Event
	for _, e := range events {
		if e.Day(loc) == today {
			todays = append(todays, e)
		}
	}
	slices.SortStableFunc(todays, func(a, b *Event) int {
		return a.Start.Compare(b.Start)
	})

	out := make([]Appointment, 0, len(todays))
	for _, e := range todays {
		sum := Summarize(e.Detail)
		out = append(out, Appointment{
			ID:       e.ID,
			Time:     e.Start.In(loc).Format("15:04") + " - " + e.End.In(loc).Format("15:04"),
			Title:    e.Title,
			Type:     e.Category(),
			Patient:  orNA(sum.Patient),
			Doctor:   orNA(sum.Doctor),
			Location: orNA(sum.Location),
			Start:    e.Start,
		})
	}
	return out
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// SchoolYear returns the school year containing now, e.g. "2025 - 2026".
// A school year runs from June to May.
func SchoolYear(now time.Time) string {
	year := now.Year()
	if now.Month() >= time.June {
		return fmt.Sprintf("%d - %d", year, year+1)
	}
	return fmt.Sprintf("%d - %d", year-1, year)
}

// CountByCategory tallies events per category. Known categories are
// always present, with zero counts when unused.
func CountByCategory(events []*Event) map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		counts[c] = 0
	}
	for _, e := range events {
		counts[e.Category()]++
	}
	return counts
}

// SampleEvents returns the demo schedule the dashboard starts with,
// placed relative to now.
func SampleEvents(now time.Time, loc *time.Location) []Event {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	y, m, d := n.Date()
	at := func(day, hour, minute int) time.Time {
		return time.Date(y, m, day, hour, minute, 0, 0, loc)
	}

	return []Event{
		{
			ID:     1,
			Title:  "Medical Consultation - Dr. Smith",
			Start:  at(d, 9, 0),
			End:    at(d, 10, 0),
			Detail: Consultation{Patient: "John Doe", Doctor: "Dr. Smith", Location: "Room 101"},
		},
		{
			ID:     2,
			Title:  "Staff Meeting",
			Start:  at(d, 14, 0),
			End:    at(d, 15, 30),
			Detail: Meeting{Attendees: 12, Location: "Conference Room A"},
		},
		{
			ID:     3,
			Title:  "Follow-up Consultation",
			Start:  at(d, 16, 0),
			End:    at(d, 17, 0),
			Detail: Consultation{Patient: "Alice Brown", Doctor: "Dr. Johnson", Location: "Room 102"},
		},
		{
			ID:     4,
			Title:  "Pre-employment Medical Exam",
			Start:  at(d+1, 8, 0),
			End:    at(d+1, 12, 0),
			Detail: PreEmployment{Patient: "Jane Wilson", Examiner: "Dr. Johnson", Location: "Exam Room 3"},
		},
		{
			ID:     5,
			Title:  "Equipment Maintenance",
			Start:  at(15, 10, 0),
			End:    at(15, 12, 0),
			Detail: Maintenance{Equipment: "X-Ray Machine", Technician: "Tech Support Team", Location: "Radiology Dept"},
		},
		{
			ID:     6,
			Title:  "Health Seminar",
			Start:  at(20, 13, 0),
			End:    at(20, 16, 0),
			Detail: Meeting{Attendees: 50, Location: "Main Auditorium"},
		},
	}
}
