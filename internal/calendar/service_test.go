package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medical-calendar/backend/internal/schedule"
)

var testLoc = time.FixedZone("PHT", 8*3600)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, testLoc)
}

type fakeObserver struct {
	projections map[schedule.ViewMode]int
	failures    int
}

func (o *fakeObserver) ObserveProjection(v schedule.ViewMode) {
	if o.projections == nil {
		o.projections = map[schedule.ViewMode]int{}
	}
	o.projections[v]++
}

func (o *fakeObserver) ObserveValidationFailure() { o.failures++ }

type fakeSettings map[string]string

func (f fakeSettings) Set(_ context.Context, key, value string) error {
	if key == "fail" {
		return errors.New("boom")
	}
	f[key] = value
	return nil
}

func newTestService() *Service {
	store := schedule.NewStore([]schedule.Event{
		{ID: 1, Title: "Morning", Start: at(15, 9, 0), End: at(15, 10, 0), Detail: schedule.Consultation{Patient: "John Doe"}},
		{ID: 2, Title: "Afternoon", Start: at(15, 14, 0), End: at(15, 15, 0)},
		{ID: 3, Title: "Other day", Start: at(16, 9, 0), End: at(16, 10, 0), Detail: schedule.Meeting{Attendees: 4}},
	}, schedule.WithLocation(testLoc))
	return NewService(store, schedule.OrderInserted, schedule.ViewMonth)
}

func TestSnapshotGroupsMonthView(t *testing.T) {
	svc := newTestService()
	obs := &fakeObserver{}
	svc.SetObserver(obs)

	snap := svc.Snapshot("s1")

	assert.Equal(t, schedule.ViewMonth, snap.View)
	assert.Equal(t, "inserted", snap.Order)
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "day-2025-03-15", snap.Entries[0].ID)
	assert.Equal(t, "2 events this date", snap.Entries[0].Title)
	assert.True(t, snap.Entries[0].Aggregate)
	assert.Equal(t, []int64{1, 2}, snap.Entries[0].Members)
	assert.Equal(t, "idle", snap.Modal.State)
	assert.Equal(t, 1, obs.projections[schedule.ViewMonth])
}

func TestSessionsHaveIndependentModals(t *testing.T) {
	svc := newTestService()

	modal, err := svc.SelectEntry("s1", "day-2025-03-15")
	require.NoError(t, err)
	assert.Equal(t, "viewing_day", modal.State)
	assert.Len(t, modal.Roster, 2)

	assert.Equal(t, "idle", svc.Modal("s2").State)

	week := svc.SetView("s2", schedule.ViewWeek)
	assert.Len(t, week.Entries, 3)
	assert.Equal(t, schedule.ViewMonth, svc.Snapshot("s1").View)
	assert.Equal(t, 2, svc.Sessions())

	svc.Release("s1")
	assert.Equal(t, "idle", svc.Modal("s1").State)
}

func TestSelectUnknownEntry(t *testing.T) {
	svc := newTestService()

	_, err := svc.SelectEntry("s1", "day-2025-04-01")
	assert.ErrorIs(t, err, schedule.ErrEventNotFound)
}

func TestDoCountsValidationFailures(t *testing.T) {
	svc := newTestService()
	obs := &fakeObserver{}
	svc.SetObserver(obs)

	_, err := svc.Do("s1", func(c *schedule.Controller) error { return c.SelectSlot(at(17, 9, 0), at(17, 10, 0)) })
	require.NoError(t, err)

	modal, err := svc.Do("s1", func(c *schedule.Controller) error {
		return c.Save(schedule.Form{Title: "  ", Start: at(17, 9, 0), End: at(17, 10, 0)})
	})
	var verr *schedule.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "creating", modal.State)
	require.NotNil(t, modal.Error)
	assert.Equal(t, "title", modal.Error.Field)
	assert.Equal(t, 1, obs.failures)

	modal, err = svc.Do("s1", func(c *schedule.Controller) error {
		return c.Save(schedule.Form{Title: "Walk-in", Start: at(17, 9, 0), End: at(17, 10, 0)})
	})
	require.NoError(t, err)
	assert.Equal(t, "idle", modal.State)
	assert.Len(t, svc.Events(), 4)
}

func TestClearDay(t *testing.T) {
	svc := newTestService()
	_, err := svc.ClearDay("s1")
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)

	_, err = svc.SelectEntry("s1", "day-2025-03-15")
	require.NoError(t, err)
	n, err := svc.ClearDay("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, svc.Events(), 1)
}

func TestSetGroupOrderAppliesToOpenSessions(t *testing.T) {
	svc := newTestService()
	settings := fakeSettings{}
	svc.SetSettings(settings)

	_, err := svc.Do("s1", func(c *schedule.Controller) error {
		return c.Drop(2, at(15, 7, 0), at(15, 8, 0))
	})
	require.NoError(t, err)

	first := svc.Snapshot("s1").Entries[0]
	assert.True(t, first.Start.Equal(at(15, 9, 0)))

	require.NoError(t, svc.SetGroupOrder(context.Background(), schedule.OrderStart))
	first = svc.Snapshot("s1").Entries[0]
	assert.True(t, first.Start.Equal(at(15, 7, 0)))
	assert.Equal(t, "start", settings["group_order"])
	assert.Equal(t, schedule.OrderStart, svc.GroupOrder())

	require.NoError(t, svc.SetDefaultView(context.Background(), schedule.ViewAgenda))
	assert.Equal(t, schedule.ViewAgenda, svc.Snapshot("s3").View)
	assert.Equal(t, "agenda", settings["default_view"])
}

func TestImportAndStats(t *testing.T) {
	svc := newTestService()
	var ops []schedule.Op
	svc.OnChange(func(c schedule.Change) { ops = append(ops, c.Op) })

	added := svc.Import([]schedule.Event{
		{Title: "Imported", Start: at(15, 16, 0), End: at(15, 17, 0), Detail: schedule.Maintenance{Equipment: "ECG"}},
	})
	require.Len(t, added, 1)
	assert.Equal(t, int64(4), added[0].ID)
	assert.Equal(t, []schedule.Op{schedule.OpImport}, ops)

	stats := svc.Stats(at(15, 8, 0))
	assert.Equal(t, "2024 - 2025", stats.SchoolYear)
	assert.Equal(t, 4, stats.TotalEvents)
	assert.Equal(t, 3, stats.Today)
	assert.Equal(t, 2, stats.ByCategory[schedule.CategoryConsultation])
	assert.Equal(t, 1, stats.ByCategory[schedule.CategoryMaintenance])
	assert.Equal(t, 0, stats.ByCategory[schedule.CategoryPreEmployment])

	appts := svc.Appointments(at(15, 8, 0))
	require.Len(t, appts, 3)
	assert.Equal(t, "09:00 - 10:00", appts[0].Time)
	assert.Equal(t, "N/A", appts[1].Patient)
}
