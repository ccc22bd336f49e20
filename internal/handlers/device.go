package handlers

import (
	"errors"
	"net/http"

	"github.com/jj-link/Pulsr/internal/middleware"
	"github.com/jj-link/Pulsr/internal/services"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	deviceService *services.DeviceService
}

func NewDeviceHandler(ds *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: ds}
}

// List handles GET /api/v1/devices
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.deviceService.ListForOwner(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		serverError(c, "Failed to list devices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// Get handles GET /api/v1/devices/:id
func (h *DeviceHandler) Get(c *gin.Context) {
	device, err := h.deviceService.GetForOwner(
		c.Request.Context(),
		middleware.OwnerID(c),
		c.Param("id"),
	)
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

type updateDeviceRequest struct {
	Name string `json:"name"`
}

// Update handles PATCH /api/v1/devices/:id
func (h *DeviceHandler) Update(c *gin.Context) {
	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be JSON")
		return
	}

	device, err := h.deviceService.Rename(
		c.Request.Context(),
		middleware.OwnerID(c),
		c.Param("id"),
		req.Name,
	)
	if err != nil {
		if errors.Is(err, services.ErrDeviceNameRequired) {
			badRequest(c, "name is required")
			return
		}
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// Delete handles DELETE /api/v1/devices/:id
func (h *DeviceHandler) Delete(c *gin.Context) {
	err := h.deviceService.Delete(c.Request.Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		deviceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type learningRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetLearning handles POST /api/v1/devices/:id/learning
func (h *DeviceHandler) SetLearning(c *gin.Context) {
	var req learningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "enabled is required")
		return
	}

	err := h.deviceService.SetLearningMode(
		c.Request.Context(),
		middleware.OwnerID(c),
		c.Param("id"),
		*req.Enabled,
	)
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_learning": *req.Enabled})
}

// Heartbeat handles POST /api/v1/hw/devices/:id/heartbeat
// Called by the hardware itself; no identity required.
func (h *DeviceHandler) Heartbeat(c *gin.Context) {
	device, err := h.deviceService.Heartbeat(c.Request.Context(), c.Param("id"))
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"is_learning":  device.IsLearning,
		"last_seen_at": device.LastSeenAt,
	})
}

func deviceError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrDeviceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "Device not found",
		})
		return
	}
	serverError(c, "Device operation failed")
}
