package handlers

import (
	"errors"
	"net/http"

	"github.com/jj-link/Pulsr/internal/middleware"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/services"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	queueService *services.QueueService
}

func NewQueueHandler(qs *services.QueueService) *QueueHandler {
	return &QueueHandler{queueService: qs}
}

type enqueueRequest struct {
	CommandID string `json:"command_id"`
}

// Enqueue handles POST /api/v1/devices/:id/queue
func (h *QueueHandler) Enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CommandID == "" {
		badRequest(c, "command_id is required")
		return
	}

	item, err := h.queueService.Enqueue(
		c.Request.Context(),
		middleware.OwnerID(c),
		c.Param("id"),
		req.CommandID,
	)
	if err != nil {
		queueError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// ListByDevice handles GET /api/v1/devices/:id/queue
func (h *QueueHandler) ListByDevice(c *gin.Context) {
	items, err := h.queueService.ListForDevice(
		c.Request.Context(),
		middleware.OwnerID(c),
		c.Param("id"),
	)
	if err != nil {
		queueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": items})
}

// PullNext handles GET /api/v1/hw/devices/:id/queue/next
// Hardware polling endpoint; hands out the oldest pending item with the
// command payload to transmit. 204 when the queue is empty.
func (h *QueueHandler) PullNext(c *gin.Context) {
	item, cmd, err := h.queueService.Pull(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrQueueEmpty) {
			c.Status(http.StatusNoContent)
			return
		}
		queueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"item_id": item.ID,
		"command": gin.H{
			"id":       cmd.ID,
			"name":     cmd.Name,
			"protocol": cmd.Protocol,
			"address":  cmd.Address,
			"command":  cmd.Command,
		},
	})
}

type reportRequest struct {
	Status models.QueueStatus `json:"status"`
	Error  string             `json:"error"`
}

// Report handles POST /api/v1/hw/queue/:id/report
// Hardware reports the transmit outcome (completed or failed).
func (h *QueueHandler) Report(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON")
		return
	}

	err := h.queueService.Report(c.Request.Context(), c.Param("id"), req.Status, req.Error)
	if err != nil {
		if errors.Is(err, services.ErrInvalidQueueOutcome) {
			badRequest(c, "status must be completed or failed")
			return
		}
		queueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func queueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrDeviceNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "Device not found",
		})
	case errors.Is(err, services.ErrCommandNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "Command not found",
		})
	case errors.Is(err, services.ErrQueueItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "Queue item not found",
		})
	default:
		serverError(c, "Queue operation failed")
	}
}
