package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	service "invoice-reconciliation-backend/internal/services/reconciliation"
)

type ReconciliationHandler struct {
	service *service.Service
}

func NewReconciliationHandler(s *service.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

// StartRun kicks off a reconciliation run for one tenant. Returns 409 if
// a run is already active for that tenant.
func (h *ReconciliationHandler) StartRun(c *gin.Context) {
	var payload struct {
		TenantID string `json:"tenant_id"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant ID"})
		return
	}

	jobID, err := h.service.StartRun(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, service.ErrRunActive) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// GetJobStatus returns the job's lifecycle status and counters.
func (h *ReconciliationHandler) GetJobStatus(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job ID"})
		return
	}

	job, err := h.service.GetJobStatus(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": job.Status,
		"counters": gin.H{
			"scanned": job.ScannedCount,
			"matched": job.MatchedCount,
			"flagged": job.FlaggedCount,
			"errored": job.ErroredCount,
		},
		"failure_reason": job.FailureReason,
		"started_at":     job.StartedAt,
		"completed_at":   job.CompletedAt,
	})
}

// GetRunReport returns the derived summary of a finished run.
func (h *ReconciliationHandler) GetRunReport(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job ID"})
		return
	}

	report, err := h.service.GetRunReport(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// UnmatchMovement manually releases a match so the movement re-enters the
// backlog and the invoice becomes a candidate again.
func (h *ReconciliationHandler) UnmatchMovement(c *gin.Context) {
	movementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movement ID"})
		return
	}

	if err := h.service.ManualUnmatch(movementID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "movement not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "movement unmatched"})
}
