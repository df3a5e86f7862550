package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStore() *Store {
	return NewStore([]Event{
		{ID: 1, Title: "Consult", Start: at(20, 9, 0), End: at(20, 10, 0)},
		{ID: 2, Title: "Meeting", Start: at(15, 14, 0), End: at(15, 15, 0)},
		{ID: 3, Title: "Exam", Start: at(20, 8, 0), End: at(20, 12, 0)},
		{ID: 4, Title: "Maintenance", Start: at(15, 10, 0), End: at(15, 12, 0)},
		{ID: 5, Title: "Seminar", Start: at(28, 13, 0), End: at(28, 16, 0)},
	}, WithLocation(testLoc))
}

func TestProjectMonthGroupsInFirstSeenOrder(t *testing.T) {
	s := sampleStore()
	p := Projector{Location: testLoc}

	entries := p.Project(s.Events(), ViewMonth)

	require.Len(t, entries, 3)
	assert.Equal(t, []string{"day-2025-03-20", "day-2025-03-15", "day-2025-03-28"}, entryIDs(entries))

	first := entries[0]
	require.True(t, first.IsAggregate())
	assert.Equal(t, "2 events this date", first.Title)
	assert.Equal(t, at(20, 9, 0), first.Start, "first inserted event represents the day")
	assert.Equal(t, []string{"Consult", "Exam"}, titles(first.Aggregate.Members))
	assert.Equal(t, "1 event this date", entries[2].Title)
}

func TestProjectMonthOrderStart(t *testing.T) {
	s := sampleStore()
	p := Projector{Location: testLoc, Order: OrderStart}

	entries := p.Project(s.Events(), ViewMonth)

	assert.Equal(t, []string{"day-2025-03-15", "day-2025-03-20", "day-2025-03-28"}, entryIDs(entries))
	assert.Equal(t, []string{"Exam", "Consult"}, titles(entries[1].Aggregate.Members))
	assert.Equal(t, at(20, 8, 0), entries[1].Start)
	// The store order is untouched by sorting.
	assert.Equal(t, []string{"Consult", "Meeting", "Exam", "Maintenance", "Seminar"}, titles(s.Events()))
}

func TestProjectOtherViewsAreIdentity(t *testing.T) {
	s := sampleStore()
	p := Projector{Location: testLoc}

	for _, mode := range []ViewMode{ViewWeek, ViewWorkWeek, ViewDay, ViewAgenda} {
		t.Run(string(mode), func(t *testing.T) {
			entries := p.Project(s.Events(), mode)
			require.Len(t, entries, s.Len())
			for i, e := range s.Events() {
				assert.False(t, entries[i].IsAggregate())
				assert.Same(t, e, entries[i].Event)
				assert.Equal(t, EventEntryID(e.ID), entries[i].ID)
				assert.Equal(t, e.Title, entries[i].Title)
			}
		})
	}
}

func TestProjectIsPure(t *testing.T) {
	s := sampleStore()
	p := Projector{Location: testLoc}

	first := p.Group(s.Events())
	second := p.Group(s.Events())

	assert.Equal(t, first, second)
}

func TestProjectPartitionsEvents(t *testing.T) {
	s := sampleStore()
	groups := Projector{Location: testLoc}.Group(s.Events())

	seen := make(map[int64]DayKey)
	total := 0
	for _, g := range groups {
		for _, m := range g.Members {
			prev, dup := seen[m.ID]
			require.False(t, dup, "event %d in %s and %s", m.ID, prev, g.Day)
			seen[m.ID] = g.Day
			assert.Equal(t, g.Day, m.Day(testLoc))
		}
		total += g.Count()
	}
	assert.Equal(t, s.Len(), total)
}

func TestAggregateMembersReferenceStoreRecords(t *testing.T) {
	s := sampleStore()
	groups := Projector{Location: testLoc}.Group(s.Events())

	rec, ok := s.Get(1)
	require.True(t, ok)
	assert.Same(t, rec, groups[0].Members[0])
}

func TestAggregateTitle(t *testing.T) {
	assert.Equal(t, "1 event this date", AggregateTitle(1))
	assert.Equal(t, "2 events this date", AggregateTitle(2))
	assert.Equal(t, "12 events this date", AggregateTitle(12))
}

func TestMoveRelocatesEventBetweenAggregates(t *testing.T) {
	s := sampleStore()
	p := Projector{Location: testLoc}

	// Seminar is alone on the 28th; dropping it on the 15th removes that day.
	require.NoError(t, s.Move(5, at(15, 16, 0), at(15, 17, 0)))

	entries := p.Project(s.Events(), ViewMonth)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"day-2025-03-20", "day-2025-03-15"}, entryIDs(entries))
	assert.Equal(t, []string{"Meeting", "Maintenance", "Seminar"}, titles(entries[1].Aggregate.Members))

	// Moving one of two events leaves the other behind.
	require.NoError(t, s.Move(3, at(28, 8, 0), at(28, 12, 0)))
	entries = p.Project(s.Events(), ViewMonth)
	require.Len(t, entries, 3)
	assert.Equal(t, "1 event this date", entries[0].Title)
	assert.Equal(t, []string{"Consult"}, titles(entries[0].Aggregate.Members))
	assert.Equal(t, "day-2025-03-28", entries[2].ID)
}

func TestAggregateIDStableAcrossProjections(t *testing.T) {
	s := sampleStore()
	p := Projector{Location: testLoc}

	before := p.Project(s.Events(), ViewMonth)
	s.Add(Event{Title: "Other day", Start: at(2, 9, 0), End: at(2, 10, 0)})
	after := p.Project(s.Events(), ViewMonth)

	assert.Equal(t, entryIDs(before), entryIDs(after)[:len(before)])
}

func TestScenarioSameDayAggregateGrows(t *testing.T) {
	s := NewStore([]Event{
		{ID: 1, Title: "Morning", Start: at(15, 9, 0), End: at(15, 10, 0)},
	}, WithLocation(testLoc))
	p := Projector{Location: testLoc}

	entries := p.Project(s.Events(), ViewMonth)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Aggregate.Count())
	assert.Equal(t, "1 event this date", entries[0].Title)
	id := entries[0].ID

	s.Add(Event{Title: "Afternoon", Start: at(15, 14, 0), End: at(15, 15, 0)})

	entries = p.Project(s.Events(), ViewMonth)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, 2, entries[0].Aggregate.Count())
	assert.Equal(t, "2 events this date", entries[0].Title)
	assert.Equal(t, []string{"Morning", "Afternoon"}, titles(entries[0].Aggregate.Members))
}

func TestParseEntryID(t *testing.T) {
	id, day, err := ParseEntryID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Empty(t, day)

	id, day, err = ParseEntryID("day-2025-03-15")
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.Equal(t, DayKey("2025-03-15"), day)

	_, _, err = ParseEntryID("day-tomorrow")
	assert.Error(t, err)
	_, _, err = ParseEntryID("grouped")
	assert.Error(t, err)
}

func TestParseViewMode(t *testing.T) {
	m, err := ParseViewMode(" Month ")
	require.NoError(t, err)
	assert.Equal(t, ViewMonth, m)
	assert.True(t, m.Grouped())

	m, err = ParseViewMode("agenda")
	require.NoError(t, err)
	assert.False(t, m.Grouped())

	_, err = ParseViewMode("year")
	assert.Error(t, err)
}

func entryIDs(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
