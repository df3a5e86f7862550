package schedule

import (
	"errors"
	"slices"
	"time"
)

// ErrEventNotFound is returned by mutations addressed to an unknown ID.
var ErrEventNotFound = errors.New("event not found")

// DayKey identifies a calendar day as "YYYY-MM-DD".
type DayKey string

// dayKeyLayout keeps day keys sortable as plain strings.
const dayKeyLayout = "2006-01-02"

// DayOf truncates t to its calendar date in loc. A nil loc means time.Local.
func DayOf(t time.Time, loc *time.Location) DayKey {
	if loc == nil {
		loc = time.Local
	}
	return DayKey(t.In(loc).Format(dayKeyLayout))
}

// ParseDayKey validates a "YYYY-MM-DD" string.
func ParseDayKey(s string) (DayKey, error) {
	if _, err := time.Parse(dayKeyLayout, s); err != nil {
		return "", err
	}
	return DayKey(s), nil
}

// Op names a store mutation in change notifications.
type Op string

const (
	OpImport      Op = "import"
	OpAdd         Op = "add"
	OpUpdate      Op = "update"
	OpRemove      Op = "remove"
	OpRemoveByDay Op = "remove_by_day"
	OpMove        Op = "move"
)

// Change is delivered to subscribers after every successful mutation.
type Change struct {
	Op     Op
	Events []*Event
	NextID int64
}

// ChangeFunc receives the full event sequence after a mutation.
type ChangeFunc func(Change)

// Store owns the ordered sequence of events.
//
// Each mutation builds a new slice and publishes it in a single assignment,
// so slices returned by Events are never modified afterwards.
type Store struct {
	events    []*Event
	nextID    int64
	loc       *time.Location
	listeners []ChangeFunc
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLocation sets the timezone used to derive day keys.
func WithLocation(loc *time.Location) StoreOption {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithNextID raises the ID counter to at least next. Used to restore the
// high-water mark so IDs of deleted events are not handed out again.
func WithNextID(next int64) StoreOption {
	return func(s *Store) {
		if next > s.nextID {
			s.nextID = next
		}
	}
}

// NewStore creates a store holding seed in its given order. Seed events
// keep their IDs; events with a zero ID get a fresh one.
func NewStore(seed []Event, opts ...StoreOption) *Store {
	s := &Store{
		nextID: 1,
		loc:    time.Local,
	}
	for _, e := range seed {
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
	}
	for _, opt := range opts {
		opt(s)
	}

	events := make([]*Event, 0, len(seed))
	for _, e := range seed {
		if e.ID == 0 {
			e.ID = s.allocID()
		}
		rec := e
		events = append(events, &rec)
	}
	s.events = events
	return s
}

// OnChange registers fn to run after every mutation.
func (s *Store) OnChange(fn ChangeFunc) {
	s.listeners = append(s.listeners, fn)
}

// Location returns the timezone used for day keys.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Events returns the current sequence. The slice must not be modified.
func (s *Store) Events() []*Event {
	return slices.Clip(s.events)
}

// Len returns the number of events.
func (s *Store) Len() int {
	return len(s.events)
}

// NextID returns the ID the next Add will assign.
func (s *Store) NextID() int64 {
	return s.nextID
}

// Get returns the event with the given ID.
func (s *Store) Get(id int64) (*Event, bool) {
	i := s.index(id)
	if i < 0 {
		return nil, false
	}
	return s.events[i], true
}

// Add appends e with a freshly assigned ID and returns the stored copy.
// Any ID already set on e is ignored.
func (s *Store) Add(e Event) Event {
	e.ID = s.allocID()
	rec := e

	next := make([]*Event, len(s.events), len(s.events)+1)
	copy(next, s.events)
	next = append(next, &rec)

	s.publish(OpAdd, next)
	return rec
}

// AddAll appends events in order with fresh IDs as one mutation and
// returns the stored copies. Nothing is published for an empty batch.
func (s *Store) AddAll(events []Event) []Event {
	if len(events) == 0 {
		return nil
	}

	next := make([]*Event, len(s.events), len(s.events)+len(events))
	copy(next, s.events)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		e.ID = s.allocID()
		rec := e
		next = append(next, &rec)
		out = append(out, rec)
	}

	s.publish(OpImport, next)
	return out
}

// Update replaces the event with the given ID by a merged copy.
func (s *Store) Update(id int64, p Patch) (Event, error) {
	i := s.index(id)
	if i < 0 {
		return Event{}, ErrEventNotFound
	}

	rec := p.apply(*s.events[i])
	rec.ID = id
	s.publish(OpUpdate, s.replaceAt(i, &rec))
	return rec, nil
}

// Move changes only the start and end of an event.
func (s *Store) Move(id int64, start, end time.Time) error {
	i := s.index(id)
	if i < 0 {
		return ErrEventNotFound
	}

	rec := *s.events[i]
	rec.Start = start
	rec.End = end
	s.publish(OpMove, s.replaceAt(i, &rec))
	return nil
}

// Remove deletes the event with the given ID.
func (s *Store) Remove(id int64) error {
	i := s.index(id)
	if i < 0 {
		return ErrEventNotFound
	}

	next := make([]*Event, 0, len(s.events)-1)
	next = append(next, s.events[:i]...)
	next = append(next, s.events[i+1:]...)
	s.publish(OpRemove, next)
	return nil
}

// RemoveByDay deletes every event starting on day and reports how many
// were removed. Nothing is published when no event matches.
func (s *Store) RemoveByDay(day DayKey) int {
	next := make([]*Event, 0, len(s.events))
	for _, e := range s.events {
		if e.Day(s.loc) != day {
			next = append(next, e)
		}
	}

	removed := len(s.events) - len(next)
	if removed > 0 {
		s.publish(OpRemoveByDay, next)
	}
	return removed
}

// DayMembers returns the events starting on day in store order.
func (s *Store) DayMembers(day DayKey) []*Event {
	var out []*Event
	for _, e := range s.events {
		if e.Day(s.loc) == day {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) index(id int64) int {
	for i, e := range s.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) replaceAt(i int, rec *Event) []*Event {
	next := make([]*Event, len(s.events))
	copy(next, s.events)
	next[i] = rec
	return next
}

func (s *Store) publish(op Op, next []*Event) {
	s.events = next
	change := Change{Op: op, Events: s.Events(), NextID: s.nextID}
	for _, fn := range s.listeners {
		fn(change)
	}
}
