package handlers

import (
	"errors"
	"net/http"

	"github.com/jj-link/Pulsr/internal/middleware"
	"github.com/jj-link/Pulsr/internal/services"

	"github.com/gin-gonic/gin"
)

type CommandHandler struct {
	commandService *services.CommandService
}

func NewCommandHandler(cs *services.CommandService) *CommandHandler {
	return &CommandHandler{commandService: cs}
}

// ListByDevice handles GET /api/v1/devices/:id/commands
func (h *CommandHandler) ListByDevice(c *gin.Context) {
	cmds, err := h.commandService.ListForDevice(
		c.Request.Context(),
		middleware.OwnerID(c),
		c.Param("id"),
	)
	if err != nil {
		commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": cmds})
}

type captureRequest struct {
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	Address  string `json:"address"`
	Command  string `json:"command"`
}

// Capture handles POST /api/v1/devices/:id/commands
// Saves a signal the hardware decoded while in learning mode.
func (h *CommandHandler) Capture(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON")
		return
	}

	cmd, err := h.commandService.Capture(
		c.Request.Context(),
		middleware.OwnerID(c),
		c.Param("id"),
		services.CaptureInput{
			Name:     req.Name,
			Protocol: req.Protocol,
			Address:  req.Address,
			Command:  req.Command,
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCommandNameMissing):
			badRequest(c, "name is required")
		case errors.Is(err, services.ErrProtocolMissing):
			badRequest(c, "protocol is required")
		default:
			commandError(c, err)
		}
		return
	}
	c.JSON(http.StatusCreated, cmd)
}

type renameCommandRequest struct {
	Name string `json:"name"`
}

// Rename handles PATCH /api/v1/commands/:id
func (h *CommandHandler) Rename(c *gin.Context) {
	var req renameCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON")
		return
	}

	cmd, err := h.commandService.Rename(
		c.Request.Context(),
		middleware.OwnerID(c),
		c.Param("id"),
		req.Name,
	)
	if err != nil {
		if errors.Is(err, services.ErrCommandNameMissing) {
			badRequest(c, "name is required")
			return
		}
		commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmd)
}

// Delete handles DELETE /api/v1/commands/:id
func (h *CommandHandler) Delete(c *gin.Context) {
	err := h.commandService.Delete(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		commandError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func commandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCommandNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "Command not found",
		})
	case errors.Is(err, services.ErrDeviceNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "Device not found",
		})
	default:
		serverError(c, "Command operation failed")
	}
}
