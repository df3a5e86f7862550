package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medical-calendar/backend/internal/config"
	"github.com/medical-calendar/backend/internal/ics"
	"github.com/medical-calendar/backend/internal/schedule"
	"github.com/medical-calendar/backend/internal/storage"
)

// SeedOptions selects the initial content of an empty database.
type SeedOptions struct {
	// Source is config.SeedSample, config.SeedICS or config.SeedNone.
	Source string
	// ICS is a file path or URL read when Source is config.SeedICS.
	ICS      string
	Horizon  time.Duration
	Location *time.Location
	Now      time.Time
}

// Seed builds the event store. Persisted events win; a database that has
// never held events is filled from opts.Source and written back so the
// seeded ids are stable.
func Seed(ctx context.Context, repo *storage.EventRepository, opts SeedOptions) (*schedule.Store, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	stored, next, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	if len(stored) > 0 || next > 0 {
		slog.Info("events loaded", "count", len(stored), "next_id", next)
		return schedule.NewStore(stored, schedule.WithLocation(opts.Location), schedule.WithNextID(next)), nil
	}

	var seed []schedule.Event
	switch opts.Source {
	case config.SeedSample:
		seed = schedule.SampleEvents(opts.Now, opts.Location)
	case config.SeedICS:
		seed, err = importFile(ctx, opts)
		if err != nil {
			return nil, err
		}
	case config.SeedNone, "":
	default:
		return nil, fmt.Errorf("unknown seed source %q", opts.Source)
	}

	store := schedule.NewStore(seed, schedule.WithLocation(opts.Location))
	if err := repo.ReplaceAll(ctx, store.Events(), store.NextID()); err != nil {
		return nil, fmt.Errorf("writing seed events: %w", err)
	}
	slog.Info("events seeded", "source", opts.Source, "count", store.Len())
	return store, nil
}

func importFile(ctx context.Context, opts SeedOptions) ([]schedule.Event, error) {
	rc, err := ics.Open(ctx, opts.ICS)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	events, err := ics.Import(rc, ics.ImportOptions{
		Location: opts.Location,
		From:     opts.Now,
		Until:    opts.Now.Add(opts.Horizon),
	})
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", opts.ICS, err)
	}
	return events, nil
}
