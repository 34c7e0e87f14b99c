// Package api exposes the SLA engine over a JSON HTTP surface.
package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/iamrudi/AgentDash-sub003/internal/repository"
	"github.com/iamrudi/AgentDash-sub003/internal/services/sla"
)

// SlaHandlers binds HTTP routes to the SLA engine.
type SlaHandlers struct {
	service *sla.Service
	logger  *log.Logger
}

// NewSlaHandlers builds the handler set. A nil logger falls back to the
// default logger.
func NewSlaHandlers(service *sla.Service, logger *log.Logger) *SlaHandlers {
	if logger == nil {
		logger = log.Default()
	}
	return &SlaHandlers{service: service, logger: logger}
}

// HandleRunScan handles POST /api/v1/sla/scan/:agencyID
func (h *SlaHandlers) HandleRunScan(c *gin.Context) {
	agencyID := c.Param("agencyID")
	if agencyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agency id is required"})
		return
	}

	result, err := h.service.RunManualScan(c.Request.Context(), agencyID)
	if err != nil {
		h.logger.Printf("api: manual scan failed for agency %s: %v", agencyID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleListBreaches handles GET /api/v1/sla/breaches
func (h *SlaHandlers) HandleListBreaches(c *gin.Context) {
	agencyID := c.Query("agency_id")
	if agencyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agency_id is required"})
		return
	}

	filter := repository.BreachFilter{
		AgencyID:   agencyID,
		SlaID:      c.Query("sla_id"),
		ClientID:   c.Query("client_id"),
		ResourceID: c.Query("resource_id"),
		Status:     c.Query("status"),
		BreachType: c.Query("breach_type"),
	}
	if raw := c.Query("detected_from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "detected_from must be RFC3339"})
			return
		}
		filter.DetectedFrom = from
	}
	if raw := c.Query("detected_to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "detected_to must be RFC3339"})
			return
		}
		filter.DetectedTo = to
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	breaches, err := h.service.GetBreachHistory(c.Request.Context(), filter)
	if err != nil {
		h.logger.Printf("api: breach list failed for agency %s: %v", agencyID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list breaches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"breaches": breaches, "total": len(breaches)})
}

// HandleBreachEvents handles GET /api/v1/sla/breaches/:id/events
func (h *SlaHandlers) HandleBreachEvents(c *gin.Context) {
	breachID := c.Param("id")

	events, err := h.service.GetBreachEvents(c.Request.Context(), breachID)
	if err != nil {
		h.logger.Printf("api: event list failed for breach %s: %v", breachID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}

type acknowledgeRequest struct {
	UserID   string  `json:"user_id" binding:"required"`
	AgencyID string  `json:"agency_id" binding:"required"`
	Notes    *string `json:"notes"`
}

// HandleAcknowledgeBreach handles POST /api/v1/sla/breaches/:id/acknowledge
func (h *SlaHandlers) HandleAcknowledgeBreach(c *gin.Context) {
	breachID := c.Param("id")

	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and agency_id are required"})
		return
	}

	ok, err := h.service.AcknowledgeBreach(c.Request.Context(), breachID, req.UserID, req.AgencyID, req.Notes)
	if err != nil {
		if errors.Is(err, repository.ErrTenantMismatch) {
			c.JSON(http.StatusForbidden, gin.H{"error": "breach belongs to another agency"})
			return
		}
		if errors.Is(err, sla.ErrBreachClosed) {
			c.JSON(http.StatusConflict, gin.H{"error": "breach is already closed"})
			return
		}
		h.logger.Printf("api: acknowledge failed for breach %s: %v", breachID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to acknowledge breach"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "breach not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}

type resolveRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	AgencyID string `json:"agency_id" binding:"required"`
}

// HandleResolveBreach handles POST /api/v1/sla/breaches/:id/resolve
func (h *SlaHandlers) HandleResolveBreach(c *gin.Context) {
	breachID := c.Param("id")

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and agency_id are required"})
		return
	}

	ok, err := h.service.ResolveBreach(c.Request.Context(), breachID, req.UserID, req.AgencyID, false)
	if err != nil {
		if errors.Is(err, repository.ErrTenantMismatch) {
			c.JSON(http.StatusForbidden, gin.H{"error": "breach belongs to another agency"})
			return
		}
		if errors.Is(err, sla.ErrBreachClosed) {
			c.JSON(http.StatusConflict, gin.H{"error": "breach is already closed"})
			return
		}
		h.logger.Printf("api: resolve failed for breach %s: %v", breachID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve breach"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "breach not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolved": true})
}

// HandleGetMetrics handles GET /api/v1/sla/metrics
func (h *SlaHandlers) HandleGetMetrics(c *gin.Context) {
	agencyID := c.Query("agency_id")
	if agencyID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agency_id is required"})
		return
	}
	period := c.DefaultQuery("period", "weekly")

	var slaID, clientID *string
	if v := c.Query("sla_id"); v != "" {
		slaID = &v
	}
	if v := c.Query("client_id"); v != "" {
		clientID = &v
	}

	metrics, err := h.service.GetSlaMetrics(c.Request.Context(), agencyID, period, slaID, clientID)
	if err != nil {
		h.logger.Printf("api: metrics failed for agency %s: %v", agencyID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, metrics)
}

// HandleTaskStatus handles GET /api/v1/sla/tasks/:id/status
func (h *SlaHandlers) HandleTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	status, err := h.service.CheckSlaForTask(c.Request.Context(), taskID)
	if err != nil {
		h.logger.Printf("api: task status failed for task %s: %v", taskID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check task"})
		return
	}
	if status == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no applicable policy or unknown task"})
		return
	}

	c.JSON(http.StatusOK, status)
}
