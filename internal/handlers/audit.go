package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jj-link/Pulsr/internal/middleware"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/services"
	"github.com/jj-link/Pulsr/internal/store"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(as *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: as}
}

// List handles GET /api/v1/audit
// Returns the caller's own audit trail, filterable by event type, resource
// and time range. Entries logged for other owners are never visible.
func (h *AuditHandler) List(c *gin.Context) {
	filters := store.AuditLogFilters{
		ActorOwnerID: middleware.OwnerID(c),
		EventType:    models.EventType(c.Query("event_type")),
		ResourceType: models.ResourceType(c.Query("resource_type")),
		ResourceID:   c.Query("resource_id"),
		Severity:     models.EventSeverity(c.Query("severity")),
	}
	if v := c.Query("success"); v != "" {
		success := v == "true" || v == "1"
		filters.Success = &success
	}
	if v := c.Query("start_time"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(c, "start_time must be RFC3339")
			return
		}
		filters.StartTime = ts
	}
	if v := c.Query("end_time"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(c, "end_time must be RFC3339")
			return
		}
		filters.EndTime = ts
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	logs, pagination, err := h.auditService.Query(filters, store.NewPaginationParams(page, pageSize))
	if err != nil {
		serverError(c, "Failed to query audit logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": pagination,
	})
}
