// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medical-calendar/backend/internal/api/handlers"
	"github.com/medical-calendar/backend/internal/api/middleware"
	"github.com/medical-calendar/backend/internal/calendar"
	"github.com/medical-calendar/backend/internal/metrics"
	"github.com/medical-calendar/backend/internal/session"
	"github.com/medical-calendar/backend/internal/storage"
	"github.com/medical-calendar/backend/internal/websocket"
)

// Deps are the services the router wires into handlers. Scheduler and
// Metrics may be nil.
type Deps struct {
	DB        *storage.DB
	Hub       *websocket.Hub
	Calendar  *calendar.Service
	Sessions  *session.Manager
	Scheduler *calendar.Scheduler
	Metrics   *metrics.Metrics
	StaticDir string
	// ICSHorizon bounds recurrence expansion of uploaded feeds.
	ICSHorizon time.Duration
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	var obs middleware.RequestObserver
	if d.Metrics != nil {
		obs = d.Metrics
		r.Handle("/metrics", d.Metrics.Handler()).Methods("GET")
	}

	// Apply global middleware
	r.Use(middleware.Logging(obs))
	r.Use(middleware.ErrorRecovery)

	broadcaster := websocket.NewEventBroadcaster(d.Hub)

	api := r.PathPrefix("/api").Subrouter()

	// Public endpoints
	api.HandleFunc("/health", handlers.HealthCheck(d.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(d.Calendar, d.Sessions, d.Hub, d.Scheduler)).Methods("GET")
	api.HandleFunc("/session/login", handlers.Login(d.Sessions)).Methods("POST")

	// Session endpoints
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.RequireSession(d.Sessions))

	authed.HandleFunc("/session", handlers.CurrentSession()).Methods("GET")
	authed.HandleFunc("/session/logout", handlers.Logout(d.Sessions)).Methods("POST")

	// Live updates
	authed.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub)).Methods("GET")

	// Calendar view and gestures
	authed.HandleFunc("/calendar", handlers.GetCalendar(d.Calendar)).Methods("GET")
	authed.HandleFunc("/calendar/view", handlers.SetView(d.Calendar)).Methods("PUT")
	authed.HandleFunc("/calendar/new", handlers.NewEvent(d.Calendar)).Methods("POST")
	authed.HandleFunc("/calendar/slots", handlers.SelectSlot(d.Calendar)).Methods("POST")
	authed.HandleFunc("/calendar/entries/{id}/select", handlers.SelectEntry(d.Calendar)).Methods("POST")
	authed.HandleFunc("/calendar/events/{id}/drop", handlers.DropEvent(d.Calendar)).Methods("POST")
	authed.HandleFunc("/calendar/events/{id}/resize", handlers.ResizeEvent(d.Calendar)).Methods("POST")

	// Modal
	authed.HandleFunc("/calendar/modal", handlers.GetModal(d.Calendar)).Methods("GET")
	authed.HandleFunc("/calendar/modal/save", handlers.SaveModal(d.Calendar)).Methods("POST")
	authed.HandleFunc("/calendar/modal/delete", handlers.DeleteModal(d.Calendar)).Methods("POST")
	authed.HandleFunc("/calendar/modal/clear-day", handlers.ClearDay(d.Calendar)).Methods("POST")
	authed.HandleFunc("/calendar/modal/close", handlers.CloseModal(d.Calendar)).Methods("POST")
	authed.HandleFunc("/calendar/modal/members/{id}/edit", handlers.EditMember(d.Calendar)).Methods("POST")
	authed.HandleFunc("/calendar/modal/members/{id}/delete", handlers.DeleteMember(d.Calendar)).Methods("POST")

	// Events
	authed.HandleFunc("/events", handlers.ListEvents(d.Calendar)).Methods("GET")
	authed.HandleFunc("/events/export.ics", handlers.ExportEvents(d.Calendar)).Methods("GET")
	authed.HandleFunc("/events/import", handlers.ImportEvents(d.Calendar, broadcaster, d.ICSHorizon)).Methods("POST")

	// Dashboard
	authed.HandleFunc("/appointments/today", handlers.TodaysAppointments(d.Calendar)).Methods("GET")
	authed.HandleFunc("/dashboard/stats", handlers.DashboardStats(d.Calendar)).Methods("GET")

	// Settings endpoints
	authed.HandleFunc("/settings", handlers.GetSettings(d.Calendar)).Methods("GET")
	authed.HandleFunc("/settings", handlers.UpdateSettings(d.Calendar)).Methods("PUT")

	// Serve static frontend files
	if d.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.StaticDir)))
	}

	return r
}
