package calendar

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/medical-calendar/backend/internal/schedule"
	"github.com/medical-calendar/backend/internal/session"
	"github.com/medical-calendar/backend/internal/websocket"
)

// Job names reported by NextRuns.
const (
	JobSessionSweep = "session_sweep"
	JobAppointments = "appointments_today"
)

// Cron specs. The parser accepts a leading seconds field.
const (
	sessionSweepSpec = "@every 1m"
	midnightSpec     = "0 0 0 * * *"
)

// SessionGauge records the number of open sessions.
type SessionGauge interface {
	SetSessions(n int)
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron        *cron.Cron
	service     *Service
	sessions    *session.Manager
	broadcaster *websocket.EventBroadcaster
	gauge       SessionGauge
	now         func() time.Time

	jobs   map[string]cron.EntryID
	jobsMu sync.RWMutex
}

// NewScheduler creates a scheduler running in the service's timezone.
// hub and gauge may be nil.
func NewScheduler(service *Service, sessions *session.Manager, hub *websocket.Hub, gauge SessionGauge) *Scheduler {
	var broadcaster *websocket.EventBroadcaster
	if hub != nil {
		broadcaster = websocket.NewEventBroadcaster(hub)
	}

	return &Scheduler{
		cron:        cron.New(cron.WithSeconds(), cron.WithLocation(service.Location())),
		service:     service,
		sessions:    sessions,
		broadcaster: broadcaster,
		gauge:       gauge,
		now:         time.Now,
		jobs:        make(map[string]cron.EntryID),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if err := s.add(JobSessionSweep, sessionSweepSpec, s.sweepSessions); err != nil {
		return err
	}
	if err := s.add(JobAppointments, midnightSpec, s.broadcastAppointments); err != nil {
		return err
	}

	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) add(name, spec string, fn func()) error {
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return err
	}

	s.jobsMu.Lock()
	s.jobs[name] = id
	s.jobsMu.Unlock()
	return nil
}

// sweepSessions ends expired sessions and refreshes the session gauge.
func (s *Scheduler) sweepSessions() {
	if n := s.sessions.Sweep(s.now()); n > 0 {
		slog.Info("expired sessions closed", "count", n)
	}
	if s.gauge != nil {
		s.gauge.SetSessions(s.sessions.Count())
	}
}

// broadcastAppointments pushes the new day's appointment list.
func (s *Scheduler) broadcastAppointments() {
	if s.broadcaster == nil {
		return
	}
	now := s.now()
	appts := s.service.Appointments(now)
	s.broadcaster.BroadcastAppointments(schedule.DayOf(now, s.service.Location()), appts)
	slog.Debug("appointments broadcast", "count", len(appts))
}

// NextRuns returns the next run time of every job.
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	out := make(map[string]time.Time, len(s.jobs))
	for name, id := range s.jobs {
		if entry := s.cron.Entry(id); !entry.Next.IsZero() {
			out[name] = entry.Next
		}
	}
	return out
}
