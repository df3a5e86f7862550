package calendar

import (
	"context"
	"log/slog"
	"time"

	"github.com/medical-calendar/backend/internal/schedule"
	"github.com/medical-calendar/backend/internal/storage"
)

const persistTimeout = 5 * time.Second

// Persister writes the event sequence to the database after every change.
type Persister struct {
	repo *storage.EventRepository
}

// NewPersister creates a persister over repo.
func NewPersister(repo *storage.EventRepository) *Persister {
	return &Persister{repo: repo}
}

// Persist is a schedule.ChangeFunc. Failures are logged; the in-memory
// store stays authoritative until the next successful write.
func (p *Persister) Persist(c schedule.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := p.repo.ReplaceAll(ctx, c.Events, c.NextID); err != nil {
		slog.Error("persisting events failed", "op", c.Op, "events", len(c.Events), "error", err)
		return
	}
	slog.Debug("events persisted", "op", c.Op, "events", len(c.Events))
}
