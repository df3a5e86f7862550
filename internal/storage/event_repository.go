package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/medical-calendar/backend/internal/schedule"
	"github.com/medical-calendar/backend/internal/storage/models"
)

// EventRepository persists the event sequence. The whole sequence is
// written at once so the stored order always matches the store's.
type EventRepository struct {
	BaseRepository
	loc *time.Location
}

// NewEventRepository creates an event repository. Loaded times are
// converted to loc.
func NewEventRepository(db *DB, loc *time.Location) *EventRepository {
	if loc == nil {
		loc = time.Local
	}
	return &EventRepository{
		BaseRepository: NewBaseRepository(db),
		loc:            loc,
	}
}

// Load returns the persisted events in order with the next id to allocate.
// An empty database returns no events and a next id of zero.
func (r *EventRepository) Load(ctx context.Context) ([]schedule.Event, int64, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, position, title, start_at, end_at, category, detail
		FROM events
		ORDER BY position
	`)
	if err != nil {
		return nil, 0, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []schedule.Event
	for rows.Next() {
		var row models.EventRow
		if err := rows.Scan(
			&row.ID, &row.Position, &row.Title, &row.StartAt,
			&row.EndAt, &row.Category, &row.Detail,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning event: %w", err)
		}

		e, err := r.toEvent(row)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating events: %w", err)
	}

	next, err := r.nextID(ctx, r.DB())
	if err != nil {
		return nil, 0, err
	}
	return events, next, nil
}

// ReplaceAll overwrites the stored sequence with events and records next.
func (r *EventRepository) ReplaceAll(ctx context.Context, events []*schedule.Event, next int64) error {
	return r.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM events"); err != nil {
			return fmt.Errorf("clearing events: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO events (id, position, title, start_at, end_at, category, detail, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		now := r.Now()
		for i, e := range events {
			row, err := toRow(i, e)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx,
				row.ID, row.Position, row.Title, row.StartAt, row.EndAt,
				row.Category, row.Detail, now,
			); err != nil {
				return fmt.Errorf("inserting event %d: %w", row.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, models.MetaNextEventID, strconv.FormatInt(next, 10)); err != nil {
			return fmt.Errorf("recording next event id: %w", err)
		}
		return nil
	})
}

// Count returns the number of stored events.
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

func (r *EventRepository) nextID(ctx context.Context, q Queryable) (int64, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", models.MetaNextEventID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying next event id: %w", err)
	}

	next, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing next event id %q: %w", value, err)
	}
	return next, nil
}

func (r *EventRepository) toEvent(row models.EventRow) (schedule.Event, error) {
	detail, err := schedule.UnmarshalDetail([]byte(row.Detail))
	if err != nil {
		return schedule.Event{}, fmt.Errorf("decoding detail of event %d: %w", row.ID, err)
	}
	return schedule.Event{
		ID:     row.ID,
		Title:  row.Title,
		Start:  row.StartAt.In(r.loc),
		End:    row.EndAt.In(r.loc),
		Detail: detail,
	}, nil
}

func toRow(position int, e *schedule.Event) (models.EventRow, error) {
	detail, err := schedule.MarshalDetail(e.Detail)
	if err != nil {
		return models.EventRow{}, fmt.Errorf("encoding detail of event %d: %w", e.ID, err)
	}
	return models.EventRow{
		ID:       e.ID,
		Position: position,
		Title:    e.Title,
		StartAt:  e.Start.UTC(),
		EndAt:    e.End.UTC(),
		Category: string(e.Category()),
		Detail:   string(detail),
	}, nil
}
