package ics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/medical-calendar/backend/internal/schedule"
)

// DefaultHorizon bounds recurrence expansion when ImportOptions.Until is unset.
const DefaultHorizon = 90 * 24 * time.Hour

const defaultMaxOccurrences = 1000

// ImportOptions controls how a feed is mapped to events.
type ImportOptions struct {
	// Location receives floating times and all converted times. Nil means
	// time.Local.
	Location *time.Location
	// From and Until bound the occurrences of recurring events. A zero From
	// means now, a zero Until means From plus DefaultHorizon.
	From  time.Time
	Until time.Time
	// MaxOccurrences caps each recurring event.
	MaxOccurrences int
}

func (o *ImportOptions) normalize() {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.From.IsZero() {
		o.From = time.Now()
	}
	if o.Until.IsZero() {
		o.Until = o.From.Add(DefaultHorizon)
	}
	if o.MaxOccurrences <= 0 {
		o.MaxOccurrences = defaultMaxOccurrences
	}
}

// Import parses an iCalendar feed into events in file order. Returned events
// carry no ids; the store assigns them on insert. Malformed VEVENTs are
// logged and skipped.
func Import(r io.Reader, opts ImportOptions) ([]schedule.Event, error) {
	opts.normalize()
	if opts.Until.Before(opts.From) {
		return nil, errors.New("import range ends before it starts")
	}

	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parsing calendar: %w", err)
	}

	var events []schedule.Event
	for _, ve := range cal.Events() {
		occ, err := importEvent(ve, opts)
		if err != nil {
			slog.Warn("skipping calendar entry", "uid", ve.Id(), "error", err)
			continue
		}
		events = append(events, occ...)
	}
	return events, nil
}

func importEvent(ve *ical.VEvent, opts ImportOptions) ([]schedule.Event, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("reading DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		end = start
		if allDay(ve) {
			end = start.AddDate(0, 0, 1)
		}
	}
	start, end = floating(ve, ical.ComponentPropertyDtStart, start, opts.Location), floating(ve, ical.ComponentPropertyDtEnd, end, opts.Location)

	base := schedule.Event{
		Title:  propValue(ve, ical.ComponentPropertySummary),
		Start:  start.In(opts.Location),
		End:    end.In(opts.Location),
		Detail: detailOf(ve),
	}

	rule := propValue(ve, ical.ComponentPropertyRrule)
	if rule == "" {
		return []schedule.Event{base}, nil
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("parsing RRULE %q: %w", rule, err)
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exDates(ve, start.Location()) {
		set.ExDate(ex)
	}

	times := set.Between(opts.From, opts.Until, true)
	if len(times) > opts.MaxOccurrences {
		slog.Warn("truncating recurring calendar entry", "uid", ve.Id(), "occurrences", len(times), "cap", opts.MaxOccurrences)
		times = times[:opts.MaxOccurrences]
	}

	duration := end.Sub(start)
	out := make([]schedule.Event, 0, len(times))
	for _, t := range times {
		occ := base
		occ.Start = t.In(opts.Location)
		occ.End = t.Add(duration).In(opts.Location)
		out = append(out, occ)
	}
	return out, nil
}

// detailOf rebuilds the detail from CATEGORIES, LOCATION and the X-MEDCAL
// properties written by Export.
func detailOf(ve *ical.VEvent) schedule.Detail {
	bag := map[string]any{}

	kind := propValue(ve, ical.ComponentProperty(xType))
	if kind == "" {
		if cats := propValue(ve, ical.ComponentPropertyCategories); cats != "" {
			kind = strings.ToLower(strings.TrimSpace(strings.Split(cats, ",")[0]))
		}
	}
	if kind != "" {
		bag["type"] = kind
	}
	if loc := propValue(ve, ical.ComponentPropertyLocation); loc != "" {
		bag["location"] = loc
	}

	for _, p := range ve.Properties {
		if !strings.HasPrefix(p.IANAToken, xPrefix) || p.IANAToken == xType {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(p.IANAToken, xPrefix))
		if key == "attendees" {
			if n, err := strconv.Atoi(p.Value); err == nil {
				bag[key] = n
				continue
			}
		}
		bag[key] = p.Value
	}

	raw, err := json.Marshal(bag)
	if err != nil {
		return schedule.Consultation{}
	}
	d, err := schedule.UnmarshalDetail(raw)
	if err != nil {
		slog.Warn("unreadable calendar entry detail", "uid", ve.Id(), "error", err)
		return schedule.Consultation{Location: propValue(ve, ical.ComponentPropertyLocation)}
	}
	return d
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

func allDay(ve *ical.VEvent) bool {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return false
	}
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}

// floating reinterprets a time without zone information in loc.
func floating(ve *ical.VEvent, p ical.ComponentProperty, t time.Time, loc *time.Location) time.Time {
	prop := ve.GetProperty(p)
	if prop == nil || strings.HasSuffix(prop.Value, "Z") {
		return t
	}
	if _, ok := prop.ICalParameters["TZID"]; ok {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

func exDates(ve *ical.VEvent, loc *time.Location) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseTime(strings.TrimSpace(part), loc); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

func parseTime(v string, loc *time.Location) (time.Time, error) {
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Open returns a reader for source, which is either an http(s) URL or a
// file path.
func Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening calendar: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("building calendar request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("calendar returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
