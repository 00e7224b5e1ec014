// Package handler provides HTTP handlers for the dashboard API.
package handler

import (
	"net/http"
	"time"

	"github.com/aemetdash/aemetdash/internal/api/models"
	"github.com/aemetdash/aemetdash/internal/api/response"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now().UTC(),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now().UTC(),
	}
	response.JSON(w, r, http.StatusOK, health)
}
