package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/medical-calendar/backend/internal/api/middleware"
	"github.com/medical-calendar/backend/internal/calendar"
	"github.com/medical-calendar/backend/internal/schedule"
	"github.com/medical-calendar/backend/internal/session"
)

// ViewRequest switches the calendar view.
type ViewRequest struct {
	View string `json:"view"`
}

// RangeRequest carries a time range from a slot selection, drag or resize.
type RangeRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func sessionID(r *http.Request) string {
	if s, ok := session.FromContext(r.Context()); ok {
		return s.ID
	}
	return ""
}

func eventID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func decodeRange(w http.ResponseWriter, r *http.Request) (RangeRequest, bool) {
	var req RangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return req, false
	}
	if req.Start.IsZero() || req.End.IsZero() {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "start and end are required")
		return req, false
	}
	return req, true
}

// GetCalendar returns the session's projection and modal.
func GetCalendar(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, svc.Snapshot(sessionID(r)))
	}
}

// SetView switches the session's view.
func SetView(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ViewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		mode, err := schedule.ParseViewMode(req.View)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}
		middleware.WriteJSON(w, http.StatusOK, svc.SetView(sessionID(r), mode))
	}
}

// NewEvent opens a blank form at the current time.
func NewEvent(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().In(svc.Location())
		modal, err := svc.Do(sessionID(r), func(c *schedule.Controller) error {
			return c.NewEvent(now)
		})
		writeModal(w, modal, err)
	}
}

// SelectSlot opens a blank form for the selected range.
func SelectSlot(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRange(w, r)
		if !ok {
			return
		}
		modal, err := svc.Do(sessionID(r), func(c *schedule.Controller) error {
			return c.SelectSlot(req.Start, req.End)
		})
		writeModal(w, modal, err)
	}
}

// SelectEntry opens the roster or edit form for an entry of the projection.
func SelectEntry(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modal, err := svc.SelectEntry(sessionID(r), mux.Vars(r)["id"])
		writeModal(w, modal, err)
	}
}

// DropEvent moves an event after a drag gesture.
func DropEvent(svc *calendar.Service) http.HandlerFunc {
	return moveHandler(svc, (*schedule.Controller).Drop)
}

// ResizeEvent changes an event's range after a resize gesture.
func ResizeEvent(svc *calendar.Service) http.HandlerFunc {
	return moveHandler(svc, (*schedule.Controller).Resize)
}

func moveHandler(svc *calendar.Service, move func(*schedule.Controller, int64, time.Time, time.Time) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := eventID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid event id")
			return
		}
		req, ok := decodeRange(w, r)
		if !ok {
			return
		}

		if _, err := svc.Do(sessionID(r), func(c *schedule.Controller) error {
			return move(c, id, req.Start, req.End)
		}); err != nil {
			middleware.WriteServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeModal(w http.ResponseWriter, modal calendar.ModalView, err error) {
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, modal)
}
