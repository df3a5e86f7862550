package websocket

import (
	"encoding/json"
	"time"

	"github.com/medical-calendar/backend/internal/schedule"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeEventsChanged     MessageType = "events.changed"
	TypeAppointmentsToday MessageType = "appointments.today"
	TypeSessionEnded      MessageType = "session.ended"
	TypeNotification      MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventsChangedPayload is the payload for events.changed messages. Clients
// refetch their projection on receipt.
type EventsChangedPayload struct {
	Op    schedule.Op `json:"op"`
	Count int         `json:"count"`
}

// AppointmentsPayload is the payload for appointments.today messages.
type AppointmentsPayload struct {
	Date         string                 `json:"date"`
	Appointments []schedule.Appointment `json:"appointments"`
}

// SessionEndedPayload is the payload for session.ended messages.
type SessionEndedPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}

// clientCommand is the shape of messages sent by clients.
type clientCommand struct {
	Type MessageType `json:"type"`
}

// HandleCommand answers one client message, returning the reply to send.
func HandleCommand(data []byte) Message {
	var cmd clientCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return NewMessage(TypeError, ErrorPayload{Code: "bad_request", Message: "message is not valid JSON"})
	}

	switch cmd.Type {
	case TypePing:
		return NewMessage(TypePong, nil)
	default:
		return NewMessage(TypeError, ErrorPayload{
			Code:         "unknown_command",
			Message:      "unsupported command",
			OriginalType: string(cmd.Type),
		})
	}
}
