package handlers

import (
	"net/http"
	"time"

	"github.com/medical-calendar/backend/internal/api/middleware"
	"github.com/medical-calendar/backend/internal/calendar"
	"github.com/medical-calendar/backend/internal/schedule"
)

// AppointmentsResponse is today's appointment table.
type AppointmentsResponse struct {
	Date         schedule.DayKey        `json:"date"`
	Appointments []schedule.Appointment `json:"appointments"`
}

// TodaysAppointments returns the appointments starting today.
func TodaysAppointments(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		middleware.WriteJSON(w, http.StatusOK, AppointmentsResponse{
			Date:         schedule.DayOf(now, svc.Location()),
			Appointments: svc.Appointments(now),
		})
	}
}

// DashboardStats returns the dashboard card counts.
func DashboardStats(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, svc.Stats(time.Now()))
	}
}
