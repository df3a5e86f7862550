package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medical-calendar/backend/internal/config"
	"github.com/medical-calendar/backend/internal/schedule"
	"github.com/medical-calendar/backend/internal/storage"
)

func newTestRepo(t *testing.T) *storage.EventRepository {
	t.Helper()
	db, err := storage.NewDB(filepath.Join(t.TempDir(), "medcal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db))
	return storage.NewEventRepository(db, testLoc)
}

func TestSeedSampleThenReload(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	opts := SeedOptions{Source: config.SeedSample, Location: testLoc, Now: at(10, 8, 0)}

	store, err := Seed(ctx, repo, opts)
	require.NoError(t, err)
	assert.Equal(t, 6, store.Len())

	store.OnChange(NewPersister(repo).Persist)
	require.NoError(t, store.Remove(6))
	added := store.Add(schedule.Event{Title: "Walk-in", Start: at(12, 9, 0), End: at(12, 10, 0)})
	assert.Equal(t, int64(7), added.ID)

	reloaded, err := Seed(ctx, repo, opts)
	require.NoError(t, err)
	assert.Equal(t, 6, reloaded.Len())
	assert.Equal(t, int64(8), reloaded.NextID())
	last := reloaded.Events()[5]
	assert.Equal(t, "Walk-in", last.Title)
}

func TestSeedDoesNotRefillClearedDatabase(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	opts := SeedOptions{Source: config.SeedSample, Location: testLoc, Now: at(10, 8, 0)}

	store, err := Seed(ctx, repo, opts)
	require.NoError(t, err)
	store.OnChange(NewPersister(repo).Persist)
	for _, e := range store.Events() {
		require.NoError(t, store.Remove(e.ID))
	}

	reloaded, err := Seed(ctx, repo, opts)
	require.NoError(t, err)
	assert.Zero(t, reloaded.Len())
	assert.Equal(t, int64(7), reloaded.NextID())
}

func TestSeedFromICS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.ics")
	require.NoError(t, os.WriteFile(path, []byte(`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:a@test
DTSTAMP:20250301T000000Z
DTSTART:20250312T010000Z
DTEND:20250312T020000Z
SUMMARY:Imported consult
END:VEVENT
END:VCALENDAR
`), 0o600))

	store, err := Seed(context.Background(), newTestRepo(t), SeedOptions{
		Source:   config.SeedICS,
		ICS:      path,
		Horizon:  30 * 24 * time.Hour,
		Location: testLoc,
		Now:      at(10, 8, 0),
	})
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())
	assert.Equal(t, int64(1), store.Events()[0].ID)
	assert.Equal(t, "Imported consult", store.Events()[0].Title)
}

func TestSeedNoneAndUnknown(t *testing.T) {
	store, err := Seed(context.Background(), newTestRepo(t), SeedOptions{Source: config.SeedNone})
	require.NoError(t, err)
	assert.Zero(t, store.Len())

	_, err = Seed(context.Background(), newTestRepo(t), SeedOptions{Source: "carrier-pigeon"})
	assert.Error(t, err)
}
