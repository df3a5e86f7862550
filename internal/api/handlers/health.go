// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"net/http"
	"time"

	"github.com/medical-calendar/backend/internal/api/middleware"
	"github.com/medical-calendar/backend/internal/calendar"
	"github.com/medical-calendar/backend/internal/session"
	"github.com/medical-calendar/backend/internal/storage"
	"github.com/medical-calendar/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		middleware.WriteJSON(w, code, HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	Events           int                  `json:"events"`
	ActiveSessions   int                  `json:"active_sessions"`
	OpenCalendars    int                  `json:"open_calendars"`
	WebSocketClients int                  `json:"websocket_clients"`
	Timezone         string               `json:"timezone"`
	DefaultView      string               `json:"default_view"`
	GroupOrder       string               `json:"group_order"`
	NextRuns         map[string]time.Time `json:"next_runs,omitempty"`
}

// Status returns a handler that provides system status information.
// scheduler may be nil.
func Status(svc *calendar.Service, sessions *session.Manager, hub *websocket.Hub, scheduler *calendar.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := StatusResponse{
			Events:           len(svc.Events()),
			ActiveSessions:   sessions.Count(),
			OpenCalendars:    svc.Sessions(),
			WebSocketClients: hub.ClientCount(),
			Timezone:         svc.Location().String(),
			DefaultView:      string(svc.DefaultView()),
			GroupOrder:       svc.GroupOrder().String(),
		}
		if scheduler != nil {
			response.NextRuns = scheduler.NextRuns()
		}

		middleware.WriteJSON(w, http.StatusOK, response)
	}
}
