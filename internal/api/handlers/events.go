package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medical-calendar/backend/internal/api/middleware"
	"github.com/medical-calendar/backend/internal/calendar"
	"github.com/medical-calendar/backend/internal/ics"
	"github.com/medical-calendar/backend/internal/schedule"
	ws "github.com/medical-calendar/backend/internal/websocket"
)

const maxImportBytes = 5 << 20

// ImportResponse reports an iCalendar import.
type ImportResponse struct {
	Imported int              `json:"imported"`
	Events   []schedule.Event `json:"events"`
}

// ListEvents returns the raw event sequence.
func ListEvents(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, svc.Events())
	}
}

// ExportEvents serves the event sequence as an iCalendar feed.
func ExportEvents(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events := svc.Events()
		ptrs := make([]*schedule.Event, 0, len(events))
		for i := range events {
			ptrs = append(ptrs, &events[i])
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="medical-calendar.ics"`)
		io.WriteString(w, ics.Export(ptrs, "Medical Calendar", time.Now()))
	}
}

// ImportEvents appends the events of an uploaded iCalendar feed. Recurring
// entries are expanded over horizon from now. Connected dashboards get a
// notification naming how many events arrived.
func ImportEvents(svc *calendar.Service, broadcaster *ws.EventBroadcaster, horizon time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				middleware.WriteError(w, http.StatusRequestEntityTooLarge, middleware.ErrTooLarge,
					fmt.Sprintf("Calendar file exceeds %d bytes", tooLarge.Limit))
				return
			}
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Failed to read request body")
			return
		}

		now := time.Now()
		events, err := ics.Import(bytes.NewReader(body), ics.ImportOptions{
			Location: svc.Location(),
			From:     now,
			Until:    now.Add(horizon),
		})
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}

		added := svc.Import(events)
		if added == nil {
			added = []schedule.Event{}
		}
		if len(added) > 0 && broadcaster != nil {
			broadcaster.BroadcastNotification("success", "Calendar imported", importedMessage(len(added)))
		}
		middleware.WriteJSON(w, http.StatusCreated, ImportResponse{Imported: len(added), Events: added})
	}
}

func importedMessage(n int) string {
	if n == 1 {
		return "1 event imported"
	}
	return fmt.Sprintf("%d events imported", n)
}
