package handlers

import (
	"errors"
	"net/http"

	"github.com/jj-link/Pulsr/internal/middleware"
	"github.com/jj-link/Pulsr/internal/models"
	"github.com/jj-link/Pulsr/internal/services"

	"github.com/gin-gonic/gin"
)

type LayoutHandler struct {
	layoutService *services.LayoutService
}

func NewLayoutHandler(ls *services.LayoutService) *LayoutHandler {
	return &LayoutHandler{layoutService: ls}
}

// Get handles GET /api/v1/devices/:id/layout
func (h *LayoutHandler) Get(c *gin.Context) {
	grid, err := h.layoutService.GetForDevice(
		c.Request.Context(),
		middleware.OwnerID(c),
		c.Param("id"),
	)
	if err != nil {
		deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}

// Save handles PUT /api/v1/devices/:id/layout
func (h *LayoutHandler) Save(c *gin.Context) {
	var grid models.LayoutGrid
	if err := c.ShouldBindJSON(&grid); err != nil {
		badRequest(c, "Request body must be a layout grid")
		return
	}

	err := h.layoutService.Save(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), grid)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrButtonOverlap),
			errors.Is(err, services.ErrButtonOutOfBounds),
			errors.Is(err, services.ErrGridTooSmall):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":             "invalid_layout",
				"error_description": err.Error(),
			})
		default:
			deviceError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, grid)
}
