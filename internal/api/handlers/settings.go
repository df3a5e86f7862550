package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/medical-calendar/backend/internal/api/middleware"
	"github.com/medical-calendar/backend/internal/calendar"
	"github.com/medical-calendar/backend/internal/schedule"
)

// SettingsResponse represents settings in API responses.
type SettingsResponse struct {
	DefaultView string `json:"default_view"`
	GroupOrder  string `json:"group_order"`
}

// GetSettings returns all settings.
func GetSettings(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, SettingsResponse{
			DefaultView: string(svc.DefaultView()),
			GroupOrder:  svc.GroupOrder().String(),
		})
	}
}

// UpdateSettings updates settings. Empty fields are left unchanged.
func UpdateSettings(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req SettingsResponse
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		var (
			view  schedule.ViewMode
			order schedule.GroupOrder
			err   error
		)
		if req.DefaultView != "" {
			if view, err = schedule.ParseViewMode(req.DefaultView); err != nil {
				middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, err.Error(), map[string]string{"field": "default_view"})
				return
			}
		}
		if req.GroupOrder != "" {
			if order, err = schedule.ParseGroupOrder(req.GroupOrder); err != nil {
				middleware.WriteErrorWithDetails(w, http.StatusBadRequest, middleware.ErrValidation, err.Error(), map[string]string{"field": "group_order"})
				return
			}
		}

		if view != "" {
			if err := svc.SetDefaultView(ctx, view); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update settings")
				return
			}
		}
		if req.GroupOrder != "" {
			if err := svc.SetGroupOrder(ctx, order); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update settings")
				return
			}
		}

		middleware.WriteJSON(w, http.StatusOK, SettingsResponse{
			DefaultView: string(svc.DefaultView()),
			GroupOrder:  svc.GroupOrder().String(),
		})
	}
}
