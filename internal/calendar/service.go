// Package calendar hosts the scheduling view model for the HTTP server.
// It serializes every gesture onto one shared event store, keeps a modal
// controller per login session and runs the periodic jobs.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/medical-calendar/backend/internal/schedule"
	"github.com/medical-calendar/backend/internal/storage/models"
)

// Observer receives projection and validation counts.
type Observer interface {
	ObserveProjection(view schedule.ViewMode)
	ObserveValidationFailure()
}

// SettingsStore persists user-adjustable settings.
type SettingsStore interface {
	Set(ctx context.Context, key, value string) error
}

// Service owns the event store and the per-session controllers.
type Service struct {
	mu          sync.Mutex
	store       *schedule.Store
	projector   schedule.Projector
	view        schedule.ViewMode
	controllers map[string]*schedule.Controller

	settings SettingsStore
	observer Observer
	logger   *slog.Logger
}

// NewService creates a service over store. New sessions open view.
func NewService(store *schedule.Store, order schedule.GroupOrder, view schedule.ViewMode) *Service {
	if view == "" {
		view = schedule.ViewMonth
	}
	return &Service{
		store:       store,
		projector:   schedule.Projector{Location: store.Location(), Order: order},
		view:        view,
		controllers: make(map[string]*schedule.Controller),
		logger:      slog.Default().With("component", "calendar"),
	}
}

// SetObserver installs o for metrics.
func (s *Service) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// SetSettings installs the store used to persist view and order changes.
func (s *Service) SetSettings(st SettingsStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = st
}

// OnChange registers fn on the underlying store. fn runs with the service
// lock held and must not call back into the service.
func (s *Service) OnChange(fn schedule.ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.OnChange(fn)
}

// Location returns the timezone events are grouped in.
func (s *Service) Location() *time.Location {
	return s.store.Location()
}

func (s *Service) controller(sessionID string) *schedule.Controller {
	c, ok := s.controllers[sessionID]
	if !ok {
		c = schedule.NewController(s.store, s.projector, s.view)
		c.SetLogger(s.logger.With("session_id", sessionID))
		s.controllers[sessionID] = c
	}
	return c
}

// Snapshot returns the session's projection and modal.
func (s *Service) Snapshot(sessionID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.controller(sessionID)
	if s.observer != nil {
		s.observer.ObserveProjection(c.View())
	}
	return Snapshot{
		View:    c.View(),
		Order:   s.projector.Order.String(),
		Entries: entryViews(c.Entries()),
		Modal:   newModalView(c),
	}
}

// Modal returns the session's modal state.
func (s *Service) Modal(sessionID string) ModalView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newModalView(s.controller(sessionID))
}

// SetView switches the session's view and returns the new projection.
func (s *Service) SetView(sessionID string, mode schedule.ViewMode) Snapshot {
	s.mu.Lock()
	s.controller(sessionID).SetView(mode)
	s.mu.Unlock()
	return s.Snapshot(sessionID)
}

// Do runs one gesture on the session's controller and returns the modal
// state that follows.
func (s *Service) Do(sessionID string, gesture func(c *schedule.Controller) error) (ModalView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.controller(sessionID)
	err := gesture(c)

	var verr *schedule.ValidationError
	if errors.As(err, &verr) && s.observer != nil {
		s.observer.ObserveValidationFailure()
	}
	return newModalView(c), err
}

// SelectEntry selects an entry of the session's current projection.
func (s *Service) SelectEntry(sessionID, entryID string) (ModalView, error) {
	return s.Do(sessionID, func(c *schedule.Controller) error {
		e, ok := c.Entry(entryID)
		if !ok {
			return fmt.Errorf("entry %s: %w", entryID, schedule.ErrEventNotFound)
		}
		return c.SelectEntry(e)
	})
}

// ClearDay removes every event of the session's open day.
func (s *Service) ClearDay(sessionID string) (int, error) {
	var n int
	_, err := s.Do(sessionID, func(c *schedule.Controller) error {
		var err error
		n, err = c.ClearDay()
		return err
	})
	return n, err
}

// Release drops the controller of an ended session.
func (s *Service) Release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.controllers, sessionID)
}

// Sessions returns the number of sessions holding a controller.
func (s *Service) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers)
}

// DefaultView returns the view new sessions open with.
func (s *Service) DefaultView() schedule.ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// GroupOrder returns the aggregate representative order.
func (s *Service) GroupOrder() schedule.GroupOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projector.Order
}

// SetDefaultView changes the view new sessions open with and persists it.
func (s *Service) SetDefaultView(ctx context.Context, mode schedule.ViewMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings != nil {
		if err := s.settings.Set(ctx, models.SettingDefaultView, string(mode)); err != nil {
			return err
		}
	}
	s.view = mode
	return nil
}

// SetGroupOrder changes the representative order for every session and
// persists it.
func (s *Service) SetGroupOrder(ctx context.Context, order schedule.GroupOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settings != nil {
		if err := s.settings.Set(ctx, models.SettingGroupOrder, order.String()); err != nil {
			return err
		}
	}
	s.projector.Order = order
	for _, c := range s.controllers {
		c.SetProjector(s.projector)
	}
	return nil
}

// Events returns a copy of the event sequence.
func (s *Service) Events() []schedule.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyEvents(s.store.Events())
}

// Import appends events in order and returns the stored copies.
func (s *Service) Import(events []schedule.Event) []schedule.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := s.store.AddAll(events)
	if len(added) > 0 {
		s.logger.Info("events imported", "count", len(added))
	}
	return added
}

// Appointments returns the appointments of the day containing now.
func (s *Service) Appointments(now time.Time) []schedule.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schedule.TodaysAppointments(s.store.Events(), now, s.store.Location())
}

// Stats returns the dashboard counts at now.
func (s *Service) Stats(now time.Time) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.store.Events()
	return Stats{
		SchoolYear:  schedule.SchoolYear(now.In(s.store.Location())),
		TotalEvents: len(events),
		Today:       len(schedule.TodaysAppointments(events, now, s.store.Location())),
		ByCategory:  schedule.CountByCategory(events),
	}
}

func copyEvents(events []*schedule.Event) []schedule.Event {
	out := make([]schedule.Event, 0, len(events))
	for _, e := range events {
		out = append(out, *e)
	}
	return out
}
