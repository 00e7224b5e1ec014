package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aemetdash/aemetdash/internal/api/models"
	"github.com/aemetdash/aemetdash/internal/api/response"
	"github.com/aemetdash/aemetdash/internal/dashboard"
	"github.com/aemetdash/aemetdash/internal/opendata"
)

// extremeParameters are the variable families the extreme values endpoint
// accepts: temperature, precipitation and wind.
var extremeParameters = map[string]bool{"T": true, "P": true, "V": true}

// ClimatologyHandler handles climatological normals and extreme values.
type ClimatologyHandler struct {
	service *dashboard.Service
}

// NewClimatologyHandler creates a new ClimatologyHandler.
func NewClimatologyHandler(service *dashboard.Service) *ClimatologyHandler {
	return &ClimatologyHandler{service: service}
}

// Normals handles GET /v1/stations/{stationId}/normals.
func (h *ClimatologyHandler) Normals(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")

	table, err := h.service.Normals(r.Context(), stationID, opendata.NopNotifier)
	if err != nil {
		response.InternalError(w, r, "failed to fetch climatological normals")
		return
	}

	response.JSON(w, r, http.StatusOK, models.ValueTable{
		StationID: stationID,
		Table:     table,
	})
}

// Extremes handles GET /v1/stations/{stationId}/extremes?parameter=T.
func (h *ClimatologyHandler) Extremes(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")

	parameter := r.URL.Query().Get("parameter")
	if !extremeParameters[parameter] {
		response.BadRequest(w, r, "invalid parameter", []models.FieldError{{
			Field:   "parameter",
			Message: "must be one of T, P, V",
		}})
		return
	}

	table, err := h.service.Extremes(r.Context(), stationID, parameter, opendata.NopNotifier)
	if err != nil {
		response.InternalError(w, r, "failed to fetch extreme values")
		return
	}

	response.JSON(w, r, http.StatusOK, models.ValueTable{
		StationID: stationID,
		Parameter: parameter,
		Table:     table,
	})
}
