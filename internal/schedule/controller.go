package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// State is the modal state of the interaction controller.
type State int

const (
	StateIdle State = iota
	StateCreating
	StateEditingSingle
	StateViewingDay
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreating:
		return "creating"
	case StateEditingSingle:
		return "editing"
	case StateViewingDay:
		return "viewing_day"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned for gestures the current state does not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// ValidationError reports a rejected form submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Form is the create/edit form content.
type Form struct {
	Title  string
	Start  time.Time
	End    time.Time
	Detail Detail
}

func formFor(e *Event) Form {
	return Form{
		Title:  e.Title,
		Start:  e.Start,
		End:    e.End,
		Detail: e.Detail,
	}
}

// Controller turns calendar gestures into store mutations and tracks which
// modal is open. It holds no copy of the events; every read goes through
// the store and the projector.
type Controller struct {
	store     *Store
	projector Projector
	view      ViewMode
	logger    *slog.Logger

	state    State
	form     Form
	selected int64
	day      DayKey
	formErr  error
}

// NewController creates an idle controller over store.
func NewController(store *Store, projector Projector, view ViewMode) *Controller {
	if view == "" {
		view = ViewMonth
	}
	return &Controller{
		store:     store,
		projector: projector,
		view:      view,
		logger:    slog.Default(),
	}
}

// SetLogger replaces the logger used for recoverable anomalies.
func (c *Controller) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// SetProjector replaces the projection settings.
func (c *Controller) SetProjector(p Projector) {
	c.projector = p
}

// View returns the active view.
func (c *Controller) View() ViewMode {
	return c.view
}

// SetView switches the active view. Modal state is left alone.
func (c *Controller) SetView(mode ViewMode) {
	c.view = mode
}

// Entries projects the store for the active view.
func (c *Controller) Entries() []Entry {
	return c.projector.Project(c.store.Events(), c.view)
}

// Entry looks up an entry of the current projection by ID.
func (c *Controller) Entry(id string) (Entry, bool) {
	for _, e := range c.Entries() {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// State returns the modal state.
func (c *Controller) State() State { return c.state }

// Form returns the form content of the create/edit modal.
func (c *Controller) Form() Form { return c.form }

// FormError returns the last validation error, if the form is still open.
func (c *Controller) FormError() error { return c.formErr }

// Selected returns the event being edited.
func (c *Controller) Selected() (int64, bool) {
	return c.selected, c.state == StateEditingSingle
}

// Day returns the day whose roster is open.
func (c *Controller) Day() (DayKey, bool) {
	return c.day, c.state == StateViewingDay
}

// Roster returns the current members of the open day.
func (c *Controller) Roster() []*Event {
	if c.state != StateViewingDay {
		return nil
	}
	return c.store.DayMembers(c.day)
}

// NewEvent opens a blank form starting and ending at now.
func (c *Controller) NewEvent(now time.Time) error {
	return c.SelectSlot(now, now)
}

// SelectSlot opens a blank form for the selected time range.
func (c *Controller) SelectSlot(start, end time.Time) error {
	if err := c.requireIdle("select slot"); err != nil {
		return err
	}
	c.reset()
	c.state = StateCreating
	c.form = Form{Start: start, End: end, Detail: Consultation{}}
	return nil
}

// SelectEntry opens the roster of an aggregate or the edit form of a
// single event.
func (c *Controller) SelectEntry(e Entry) error {
	if err := c.requireIdle("select entry"); err != nil {
		return err
	}

	if e.IsAggregate() {
		if len(c.store.DayMembers(e.Aggregate.Day)) == 0 {
			return ErrEventNotFound
		}
		c.reset()
		c.state = StateViewingDay
		c.day = e.Aggregate.Day
		return nil
	}

	if e.Event == nil {
		return ErrEventNotFound
	}
	return c.openEditor(e.Event.ID)
}

// EditMember swaps the day roster for the edit form of one member.
func (c *Controller) EditMember(id int64) error {
	if c.state != StateViewingDay {
		return c.invalid("edit member")
	}
	if !c.isMember(id) {
		return ErrEventNotFound
	}
	return c.openEditor(id)
}

// DeleteMember removes one member of the open day. The roster stays open
// while other members remain.
func (c *Controller) DeleteMember(id int64) error {
	if c.state != StateViewingDay {
		return c.invalid("delete member")
	}
	if !c.isMember(id) {
		return ErrEventNotFound
	}
	if err := c.store.Remove(id); err != nil {
		return err
	}
	if len(c.store.DayMembers(c.day)) == 0 {
		c.reset()
	}
	return nil
}

// Save validates f and creates or updates the event. On a validation
// error the form stays open with f as its content and nothing is stored.
func (c *Controller) Save(f Form) error {
	if c.state != StateCreating && c.state != StateEditingSingle {
		return c.invalid("save")
	}

	c.form = f
	if strings.TrimSpace(f.Title) == "" {
		c.formErr = &ValidationError{Field: "title", Message: "Please enter an event title"}
		return c.formErr
	}

	if c.state == StateCreating {
		c.store.Add(Event{
			Title:  f.Title,
			Start:  f.Start,
			End:    f.End,
			Detail: f.Detail,
		})
		c.reset()
		return nil
	}

	title, start, end := f.Title, f.Start, f.End
	_, err := c.store.Update(c.selected, Patch{
		Title:  &title,
		Start:  &start,
		End:    &end,
		Detail: f.Detail,
	})
	if errors.Is(err, ErrEventNotFound) {
		c.logger.Warn("edited event no longer exists", "event_id", c.selected)
	}
	c.reset()
	return nil
}

// Delete removes the event being edited.
func (c *Controller) Delete() error {
	if c.state != StateEditingSingle {
		return c.invalid("delete")
	}
	if err := c.store.Remove(c.selected); errors.Is(err, ErrEventNotFound) {
		c.logger.Warn("deleted event no longer exists", "event_id", c.selected)
	}
	c.reset()
	return nil
}

// ClearDay removes every event of the open day and reports how many
// were removed.
func (c *Controller) ClearDay() (int, error) {
	if c.state != StateViewingDay {
		return 0, c.invalid("clear day")
	}
	n := c.store.RemoveByDay(c.day)
	c.reset()
	return n, nil
}

// Close dismisses any open modal.
func (c *Controller) Close() {
	c.reset()
}

// Drop moves an event after a drag gesture. The modal state is untouched.
func (c *Controller) Drop(id int64, start, end time.Time) error {
	return c.store.Move(id, start, end)
}

// Resize changes an event's range after a resize gesture.
func (c *Controller) Resize(id int64, start, end time.Time) error {
	return c.store.Move(id, start, end)
}

func (c *Controller) openEditor(id int64) error {
	ev, ok := c.store.Get(id)
	if !ok {
		return ErrEventNotFound
	}
	c.reset()
	c.state = StateEditingSingle
	c.selected = id
	c.form = formFor(ev)
	return nil
}

func (c *Controller) isMember(id int64) bool {
	for _, e := range c.store.DayMembers(c.day) {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (c *Controller) requireIdle(gesture string) error {
	if c.state != StateIdle {
		return c.invalid(gesture)
	}
	return nil
}

func (c *Controller) invalid(gesture string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, gesture, c.state)
}

func (c *Controller) reset() {
	c.state = StateIdle
	c.form = Form{}
	c.selected = 0
	c.day = ""
	c.formErr = nil
}
