package websocket

import (
	"log/slog"

	"github.com/medical-calendar/backend/internal/schedule"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastEventsChanged announces a store mutation. It has the
// schedule.ChangeFunc signature.
func (b *EventBroadcaster) BroadcastEventsChanged(c schedule.Change) {
	b.broadcast(NewMessage(TypeEventsChanged, EventsChangedPayload{
		Op:    c.Op,
		Count: len(c.Events),
	}))
}

// BroadcastAppointments sends the appointment list for date.
func (b *EventBroadcaster) BroadcastAppointments(date schedule.DayKey, appts []schedule.Appointment) {
	if appts == nil {
		appts = []schedule.Appointment{}
	}
	b.broadcast(NewMessage(TypeAppointmentsToday, AppointmentsPayload{
		Date:         string(date),
		Appointments: appts,
	}))
}

// NotifySessionEnded tells the clients of one session that it has ended.
func (b *EventBroadcaster) NotifySessionEnded(sessionID, reason string) {
	data, err := NewMessage(TypeSessionEnded, SessionEndedPayload{
		SessionID: sessionID,
		Reason:    reason,
	}).JSON()
	if err != nil {
		slog.Error("encoding websocket message", "error", err)
		return
	}
	b.hub.SendTo(sessionID, data)
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		slog.Error("encoding websocket message", "type", msg.Type, "error", err)
		return
	}

	b.hub.Broadcast(data)
}
