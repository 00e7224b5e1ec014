package handler

import (
	"net/http"

	"github.com/aemetdash/aemetdash/internal/api/models"
	"github.com/aemetdash/aemetdash/internal/api/response"
	"github.com/aemetdash/aemetdash/internal/dashboard"
	"github.com/aemetdash/aemetdash/internal/opendata"
)

// StationHandler handles station inventory endpoints.
type StationHandler struct {
	service *dashboard.Service
}

// NewStationHandler creates a new StationHandler.
func NewStationHandler(service *dashboard.Service) *StationHandler {
	return &StationHandler{service: service}
}

// ListStations handles GET /v1/stations - the full station inventory.
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.service.Stations(r.Context(), opendata.NopNotifier)
	if err != nil {
		response.InternalError(w, r, "failed to fetch station inventory")
		return
	}

	response.JSON(w, r, http.StatusOK, models.StationList{
		Stations: stations,
		Count:    len(stations),
	})
}
