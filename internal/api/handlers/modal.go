package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/medical-calendar/backend/internal/api/middleware"
	"github.com/medical-calendar/backend/internal/calendar"
	"github.com/medical-calendar/backend/internal/schedule"
)

// SaveRequest is the submitted create/edit form.
type SaveRequest struct {
	Title    string          `json:"title"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// ClearDayResponse reports a bulk delete.
type ClearDayResponse struct {
	Removed int                `json:"removed"`
	Modal   calendar.ModalView `json:"modal"`
}

// GetModal returns the session's modal state.
func GetModal(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, svc.Modal(sessionID(r)))
	}
}

// SaveModal submits the create/edit form.
func SaveModal(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		form := schedule.Form{Title: req.Title, Start: req.Start, End: req.End}
		if len(req.Resource) > 0 && string(req.Resource) != "null" {
			detail, err := schedule.UnmarshalDetail(req.Resource)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid resource")
				return
			}
			form.Detail = detail
		}

		modal, err := svc.Do(sessionID(r), func(c *schedule.Controller) error {
			return c.Save(form)
		})
		writeModal(w, modal, err)
	}
}

// DeleteModal removes the event being edited.
func DeleteModal(svc *calendar.Service) http.HandlerFunc {
	return modalGesture(svc, (*schedule.Controller).Delete)
}

// CloseModal dismisses the open modal.
func CloseModal(svc *calendar.Service) http.HandlerFunc {
	return modalGesture(svc, func(c *schedule.Controller) error {
		c.Close()
		return nil
	})
}

// ClearDay removes every event of the open day.
func ClearDay(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		n, err := svc.ClearDay(id)
		if err != nil {
			middleware.WriteServiceError(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, ClearDayResponse{Removed: n, Modal: svc.Modal(id)})
	}
}

// EditMember opens the edit form for one member of the open day.
func EditMember(svc *calendar.Service) http.HandlerFunc {
	return memberGesture(svc, (*schedule.Controller).EditMember)
}

// DeleteMember removes one member of the open day.
func DeleteMember(svc *calendar.Service) http.HandlerFunc {
	return memberGesture(svc, (*schedule.Controller).DeleteMember)
}

func modalGesture(svc *calendar.Service, gesture func(*schedule.Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modal, err := svc.Do(sessionID(r), gesture)
		writeModal(w, modal, err)
	}
}

func memberGesture(svc *calendar.Service, gesture func(*schedule.Controller, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := eventID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid event id")
			return
		}
		modal, err := svc.Do(sessionID(r), func(c *schedule.Controller) error {
			return gesture(c, id)
		})
		writeModal(w, modal, err)
	}
}
