package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("PHT", 8*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, testLoc)
}

func TestStoreAddAssignsFreshIDs(t *testing.T) {
	s := NewStore([]Event{{ID: 7, Title: "seeded", Start: at(15, 9, 0), End: at(15, 10, 0)}}, WithLocation(testLoc))

	a := s.Add(Event{ID: 7, Title: "a"})
	b := s.Add(Event{Title: "b"})

	assert.Equal(t, int64(8), a.ID)
	assert.Equal(t, int64(9), b.ID)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"seeded", "a", "b"}, titles(s.Events()))
}

func TestStoreIDsAreNotReusedAfterDelete(t *testing.T) {
	s := NewStore(nil)
	a := s.Add(Event{Title: "a"})
	require.NoError(t, s.Remove(a.ID))

	b := s.Add(Event{Title: "b"})
	assert.NotEqual(t, a.ID, b.ID)

	restored := NewStore([]Event{{ID: 1, Title: "x"}}, WithNextID(s.NextID()))
	c := restored.Add(Event{Title: "c"})
	assert.Greater(t, c.ID, b.ID)
}

func TestStoreSeedWithoutIDs(t *testing.T) {
	s := NewStore([]Event{{Title: "a"}, {ID: 4, Title: "b"}, {Title: "c"}})

	ids := make([]int64, 0, 3)
	for _, e := range s.Events() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{5, 4, 6}, ids)
}

func TestStoreAddAllPublishesOnce(t *testing.T) {
	s := NewStore([]Event{{ID: 3, Title: "seeded"}})
	var ops []Op
	s.OnChange(func(c Change) { ops = append(ops, c.Op) })

	assert.Nil(t, s.AddAll(nil))
	added := s.AddAll([]Event{{ID: 3, Title: "a"}, {Title: "b"}})

	require.Len(t, added, 2)
	assert.Equal(t, int64(4), added[0].ID)
	assert.Equal(t, int64(5), added[1].ID)
	assert.Equal(t, []string{"seeded", "a", "b"}, titles(s.Events()))
	assert.Equal(t, []Op{OpImport}, ops)
}

func TestStoreUpdateMergesAndKeepsID(t *testing.T) {
	s := NewStore(nil, WithLocation(testLoc))
	orig := s.Add(Event{
		Title:  "Consult",
		Start:  at(15, 9, 0),
		End:    at(15, 10, 0),
		Detail: Consultation{Patient: "John Doe", Doctor: "Dr. Smith", Location: "Room 101"},
	})

	title := "X"
	updated, err := s.Update(orig.ID, Patch{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, orig.ID, updated.ID)
	assert.Equal(t, "X", updated.Title)
	assert.Equal(t, orig.Start, updated.Start)
	assert.Equal(t, orig.End, updated.End)
	assert.Equal(t, orig.Detail, updated.Detail)

	got, ok := s.Get(orig.ID)
	require.True(t, ok)
	assert.Equal(t, updated, *got)
}

func TestStoreMissingIDIsNoOp(t *testing.T) {
	s := NewStore([]Event{{ID: 1, Title: "a"}})
	var changes int
	s.OnChange(func(Change) { changes++ })

	title := "nope"
	_, err := s.Update(42, Patch{Title: &title})
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.ErrorIs(t, s.Remove(42), ErrEventNotFound)
	assert.ErrorIs(t, s.Move(42, at(1, 0, 0), at(1, 1, 0)), ErrEventNotFound)
	assert.Equal(t, 0, s.RemoveByDay("1999-01-01"))

	assert.Zero(t, changes)
	assert.Equal(t, 1, s.Len())
}

func TestStoreRemoveByDay(t *testing.T) {
	s := NewStore([]Event{
		{ID: 1, Title: "d1 a", Start: at(15, 8, 0), End: at(15, 9, 0)},
		{ID: 2, Title: "d2", Start: at(16, 8, 0), End: at(16, 9, 0)},
		{ID: 3, Title: "d1 b", Start: at(15, 12, 0), End: at(15, 13, 0)},
		{ID: 4, Title: "d1 c", Start: at(15, 23, 59), End: at(16, 0, 30)},
	}, WithLocation(testLoc))

	removed := s.RemoveByDay("2025-03-15")

	assert.Equal(t, 3, removed)
	assert.Equal(t, []string{"d2"}, titles(s.Events()))
}

func TestStoreDayUsesConfiguredLocation(t *testing.T) {
	// 2025-03-15 23:30 in UTC is already the 16th in UTC+8.
	utcLate := time.Date(2025, time.March, 15, 23, 30, 0, 0, time.UTC)
	s := NewStore([]Event{{ID: 1, Start: utcLate, End: utcLate.Add(time.Hour)}}, WithLocation(testLoc))

	assert.Equal(t, 0, s.RemoveByDay("2025-03-15"))
	assert.Equal(t, 1, s.RemoveByDay("2025-03-16"))
}

func TestStoreMoveChangesOnlyRange(t *testing.T) {
	s := NewStore([]Event{{
		ID:     1,
		Title:  "Staff Meeting",
		Start:  at(15, 14, 0),
		End:    at(15, 15, 30),
		Detail: Meeting{Attendees: 12, Location: "Conference Room A"},
	}}, WithLocation(testLoc))

	require.NoError(t, s.Move(1, at(17, 9, 0), at(17, 10, 0)))

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Staff Meeting", got.Title)
	assert.Equal(t, Meeting{Attendees: 12, Location: "Conference Room A"}, got.Detail)
	assert.Equal(t, at(17, 9, 0), got.Start)
	assert.Equal(t, at(17, 10, 0), got.End)
}

func TestStoreMutationsDoNotTouchPublishedSnapshots(t *testing.T) {
	s := NewStore([]Event{
		{ID: 1, Title: "a", Start: at(15, 8, 0)},
		{ID: 2, Title: "b", Start: at(15, 9, 0)},
	}, WithLocation(testLoc))

	before := s.Events()
	title := "changed"
	_, err := s.Update(1, Patch{Title: &title})
	require.NoError(t, err)
	require.NoError(t, s.Remove(2))

	assert.Equal(t, []string{"a", "b"}, titles(before))
	assert.Equal(t, []string{"changed"}, titles(s.Events()))
}

func TestStoreNotifiesWithFullSequence(t *testing.T) {
	s := NewStore([]Event{{ID: 1, Title: "a", Start: at(15, 8, 0)}}, WithLocation(testLoc))

	var got []Change
	s.OnChange(func(c Change) { got = append(got, c) })

	added := s.Add(Event{Title: "b", Start: at(16, 8, 0)})
	require.NoError(t, s.Move(added.ID, at(15, 10, 0), at(15, 11, 0)))
	s.RemoveByDay("2025-03-15")

	require.Len(t, got, 3)
	assert.Equal(t, OpAdd, got[0].Op)
	assert.Equal(t, []string{"a", "b"}, titles(got[0].Events))
	assert.Equal(t, OpMove, got[1].Op)
	assert.Equal(t, OpRemoveByDay, got[2].Op)
	assert.Empty(t, got[2].Events)
	assert.Equal(t, s.NextID(), got[2].NextID)
}

func titles(events []*Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Title)
	}
	return out
}
