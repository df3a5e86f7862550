package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(seed ...Event) (*Controller, *Store) {
	s := NewStore(seed, WithLocation(testLoc))
	return NewController(s, Projector{Location: testLoc}, ViewMonth), s
}

func twoOnFifteenth() []Event {
	return []Event{
		{ID: 1, Title: "Morning", Start: at(15, 9, 0), End: at(15, 10, 0), Detail: Consultation{Patient: "John Doe"}},
		{ID: 2, Title: "Afternoon", Start: at(15, 14, 0), End: at(15, 15, 0)},
		{ID: 3, Title: "Other day", Start: at(16, 9, 0), End: at(16, 10, 0)},
	}
}

func TestSelectSlotOpensBlankForm(t *testing.T) {
	c, s := newTestController()
	c.SetView(ViewWeek)

	require.NoError(t, c.SelectSlot(at(15, 9, 0), at(15, 9, 30)))

	assert.Equal(t, StateCreating, c.State())
	assert.Equal(t, at(15, 9, 0), c.Form().Start)
	assert.Equal(t, at(15, 9, 30), c.Form().End)
	assert.Equal(t, Consultation{}, c.Form().Detail)

	require.NoError(t, c.Save(Form{Title: "Walk-in", Start: at(15, 9, 0), End: at(15, 9, 30)}))
	assert.Equal(t, StateIdle, c.State())
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "Walk-in", s.Events()[0].Title)
}

func TestSaveRejectsBlankTitle(t *testing.T) {
	c, s := newTestController()
	var changes int
	s.OnChange(func(Change) { changes++ })

	require.NoError(t, c.NewEvent(at(15, 9, 0)))
	err := c.Save(Form{Title: "   ", Start: at(15, 9, 0), End: at(15, 10, 0)})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
	assert.Equal(t, StateCreating, c.State())
	assert.Equal(t, "   ", c.Form().Title)
	assert.Equal(t, err, c.FormError())
	assert.Zero(t, changes)
	assert.Zero(t, s.Len())

	require.NoError(t, c.Save(Form{Title: "Fixed", Start: at(15, 9, 0), End: at(15, 10, 0)}))
	assert.Nil(t, c.FormError())
	assert.Equal(t, 1, s.Len())
}

func TestSelectAggregateOpensRoster(t *testing.T) {
	c, _ := newTestController(twoOnFifteenth()...)

	entry, ok := c.Entry("day-2025-03-15")
	require.True(t, ok)
	require.NoError(t, c.SelectEntry(entry))

	assert.Equal(t, StateViewingDay, c.State())
	day, open := c.Day()
	assert.True(t, open)
	assert.Equal(t, DayKey("2025-03-15"), day)
	assert.Equal(t, []string{"Morning", "Afternoon"}, titles(c.Roster()))
}

func TestSelectSingleEventOpensEditor(t *testing.T) {
	c, s := newTestController(twoOnFifteenth()...)
	c.SetView(ViewDay)

	entry, ok := c.Entry("1")
	require.True(t, ok)
	require.NoError(t, c.SelectEntry(entry))

	assert.Equal(t, StateEditingSingle, c.State())
	id, editing := c.Selected()
	assert.True(t, editing)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "Morning", c.Form().Title)
	assert.Equal(t, Consultation{Patient: "John Doe"}, c.Form().Detail)

	f := c.Form()
	f.Title = "Morning check-up"
	require.NoError(t, c.Save(f))

	got, _ := s.Get(1)
	assert.Equal(t, "Morning check-up", got.Title)
	assert.Equal(t, at(15, 9, 0), got.Start)
	assert.Equal(t, StateIdle, c.State())
}

func TestSelectionRequiresIdle(t *testing.T) {
	c, _ := newTestController(twoOnFifteenth()...)
	require.NoError(t, c.NewEvent(at(15, 9, 0)))

	entry, _ := c.Entry("day-2025-03-15")
	assert.ErrorIs(t, c.SelectEntry(entry), ErrInvalidTransition)
	assert.ErrorIs(t, c.SelectSlot(at(1, 0, 0), at(1, 1, 0)), ErrInvalidTransition)
	assert.Equal(t, StateCreating, c.State())

	c.Close()
	assert.Equal(t, StateIdle, c.State())
	assert.NoError(t, c.SelectEntry(entry))
}

func TestEditMemberSwapsRosterForForm(t *testing.T) {
	c, _ := newTestController(twoOnFifteenth()...)
	entry, _ := c.Entry("day-2025-03-15")
	require.NoError(t, c.SelectEntry(entry))

	assert.ErrorIs(t, c.EditMember(3), ErrEventNotFound, "member of another day")
	require.NoError(t, c.EditMember(2))

	assert.Equal(t, StateEditingSingle, c.State())
	assert.Equal(t, "Afternoon", c.Form().Title)
	assert.Nil(t, c.Roster())

	c.Close()
	assert.Equal(t, StateIdle, c.State())
}

func TestDeleteMemberKeepsRosterUntilEmpty(t *testing.T) {
	c, s := newTestController(twoOnFifteenth()...)
	entry, _ := c.Entry("day-2025-03-15")
	require.NoError(t, c.SelectEntry(entry))

	require.NoError(t, c.DeleteMember(1))
	assert.Equal(t, StateViewingDay, c.State())
	assert.Equal(t, []string{"Afternoon"}, titles(c.Roster()))

	require.NoError(t, c.DeleteMember(2))
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, []string{"Other day"}, titles(s.Events()))
}

func TestDeleteSingle(t *testing.T) {
	c, s := newTestController(twoOnFifteenth()...)
	c.SetView(ViewAgenda)

	assert.ErrorIs(t, c.Delete(), ErrInvalidTransition)

	entry, _ := c.Entry("2")
	require.NoError(t, c.SelectEntry(entry))
	require.NoError(t, c.Delete())

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, []string{"Morning", "Other day"}, titles(s.Events()))
}

func TestClearDay(t *testing.T) {
	c, s := newTestController(twoOnFifteenth()...)
	entry, _ := c.Entry("day-2025-03-15")
	require.NoError(t, c.SelectEntry(entry))

	n, err := c.ClearDay()
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, []string{"Other day"}, titles(s.Events()))

	_, err = c.ClearDay()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDragBypassesModal(t *testing.T) {
	c, s := newTestController(twoOnFifteenth()...)
	entry, _ := c.Entry("day-2025-03-15")
	require.NoError(t, c.SelectEntry(entry))

	require.NoError(t, c.Drop(1, at(16, 11, 0), at(16, 12, 0)))

	assert.Equal(t, StateViewingDay, c.State())
	assert.Equal(t, []string{"Afternoon"}, titles(c.Roster()))

	require.NoError(t, c.Resize(2, at(15, 14, 0), at(15, 18, 0)))
	got, _ := s.Get(2)
	assert.Equal(t, at(15, 18, 0), got.End)

	assert.ErrorIs(t, c.Drop(99, at(1, 0, 0), at(1, 1, 0)), ErrEventNotFound)
}

func TestSaveAfterEventVanishedClosesModal(t *testing.T) {
	c, s := newTestController(twoOnFifteenth()...)
	c.SetView(ViewWeek)
	entry, _ := c.Entry("3")
	require.NoError(t, c.SelectEntry(entry))

	require.NoError(t, s.Remove(3))
	require.NoError(t, c.Save(Form{Title: "ghost"}))

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 2, s.Len())
}

func TestInvertedRangeIsAccepted(t *testing.T) {
	c, s := newTestController()
	require.NoError(t, c.NewEvent(at(15, 9, 0)))

	require.NoError(t, c.Save(Form{Title: "Backwards", Start: at(15, 10, 0), End: at(15, 9, 0)}))
	assert.Equal(t, 1, s.Len())
}
