package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aemetdash/aemetdash/internal/api/models"
	"github.com/aemetdash/aemetdash/internal/api/response"
	"github.com/aemetdash/aemetdash/internal/dashboard"
	"github.com/aemetdash/aemetdash/internal/opendata"
	"github.com/aemetdash/aemetdash/internal/warning"
)

// WarningHandler handles active weather warning endpoints.
type WarningHandler struct {
	service *dashboard.Service
}

// NewWarningHandler creates a new WarningHandler.
func NewWarningHandler(service *dashboard.Service) *WarningHandler {
	return &WarningHandler{service: service}
}

// ListWarnings handles GET /v1/warnings/{area} - active warnings for an
// area code ("esp" for the whole country). An optional date query parameter
// (2006-01-02) narrows the set to warnings active on that day.
func (h *WarningHandler) ListWarnings(w http.ResponseWriter, r *http.Request) {
	area := chi.URLParam(r, "area")

	var (
		warnings []warning.Warning
		err      error
		dateStr  = r.URL.Query().Get("date")
	)

	if dateStr != "" {
		date, parseErr := time.Parse(dateParamLayout, dateStr)
		if parseErr != nil {
			response.BadRequest(w, r, "invalid date", []models.FieldError{{
				Field:   "date",
				Message: "format 2006-01-02",
			}})
			return
		}
		warnings, err = h.service.WarningsForDate(r.Context(), area, date, opendata.NopNotifier)
	} else {
		warnings, err = h.service.Warnings(r.Context(), area, opendata.NopNotifier)
	}

	if err != nil {
		response.InternalError(w, r, "failed to fetch warnings")
		return
	}

	response.JSON(w, r, http.StatusOK, models.WarningList{
		Area:     area,
		Date:     dateStr,
		Warnings: warnings,
		Count:    len(warnings),
		ByArea:   warning.GroupByArea(warnings),
	})
}
