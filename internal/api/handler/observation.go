package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aemetdash/aemetdash/internal/api/models"
	"github.com/aemetdash/aemetdash/internal/api/response"
	"github.com/aemetdash/aemetdash/internal/dashboard"
	"github.com/aemetdash/aemetdash/internal/observation"
	"github.com/aemetdash/aemetdash/internal/opendata"
)

const dateParamLayout = "2006-01-02"

// ObservationHandler handles current and historical observation endpoints.
type ObservationHandler struct {
	service *dashboard.Service
}

// NewObservationHandler creates a new ObservationHandler.
func NewObservationHandler(service *dashboard.Service) *ObservationHandler {
	return &ObservationHandler{service: service}
}

// ListCurrent handles GET /v1/observations/current - the latest snapshot for
// every station.
func (h *ObservationHandler) ListCurrent(w http.ResponseWriter, r *http.Request) {
	observations, err := h.service.CurrentObservations(r.Context(), opendata.NopNotifier)
	if err != nil {
		response.InternalError(w, r, "failed to fetch current observations")
		return
	}

	response.JSON(w, r, http.StatusOK, models.ObservationList{
		Observations: observations,
		Count:        len(observations),
		Labels:       observation.FieldLabels,
	})
}

// History handles GET /v1/stations/{stationId}/observations - daily
// climatology over a date range. With stream=1 the response is a
// server-sent-event stream carrying fetch progress before the result, so
// long multi-window downloads can report live status.
func (h *ObservationHandler) History(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")

	start, end, fieldErrs := parseDateRange(r)
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid date range", fieldErrs)
		return
	}

	if r.URL.Query().Get("stream") == "1" {
		h.streamHistory(w, r, stationID, start, end)
		return
	}

	records, err := h.service.HistoricalObservations(r.Context(), stationID, start, end, opendata.NopNotifier)
	if err != nil {
		response.InternalError(w, r, "failed to fetch historical observations")
		return
	}

	response.JSON(w, r, http.StatusOK, historyResponse(stationID, start, end, records))
}

// streamHistory writes an SSE stream: one progress event per fetch message,
// then a single result event with the full payload.
func (h *ObservationHandler) streamHistory(w http.ResponseWriter, r *http.Request, stationID string, start, end time.Time) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, r, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	notify := func(message string) {
		fmt.Fprintf(w, "event: progress\ndata: %s\n\n", message)
		flusher.Flush()
	}

	records, err := h.service.HistoricalObservations(r.Context(), stationID, start, end, notify)
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: failed to fetch historical observations\n\n")
		flusher.Flush()
		return
	}

	payload, err := json.Marshal(historyResponse(stationID, start, end, records))
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: failed to encode result\n\n")
		flusher.Flush()
		return
	}

	fmt.Fprintf(w, "event: result\ndata: %s\n\n", payload)
	flusher.Flush()
}

func historyResponse(stationID string, start, end time.Time, records []observation.Record) models.HistoryResponse {
	return models.HistoryResponse{
		StationID: stationID,
		Start:     start.Format(dateParamLayout),
		End:       end.Format(dateParamLayout),
		Records:   records,
		Count:     len(records),
	}
}

// parseDateRange reads the required start and end query parameters.
func parseDateRange(r *http.Request) (start, end time.Time, errs []models.FieldError) {
	q := r.URL.Query()

	start, err := time.Parse(dateParamLayout, q.Get("start"))
	if err != nil {
		errs = append(errs, models.FieldError{
			Field:   "start",
			Message: "required, format 2006-01-02",
		})
	}

	end, err = time.Parse(dateParamLayout, q.Get("end"))
	if err != nil {
		errs = append(errs, models.FieldError{
			Field:   "end",
			Message: "required, format 2006-01-02",
		})
	}

	if len(errs) == 0 && end.Before(start) {
		errs = append(errs, models.FieldError{
			Field:   "end",
			Message: "must not be before start",
		})
	}

	return start, end, errs
}
