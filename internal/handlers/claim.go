package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/jj-link/Pulsr/internal/middleware"
	"github.com/jj-link/Pulsr/internal/services"

	"github.com/gin-gonic/gin"
)

type ClaimHandler struct {
	claimService *services.ClaimService
}

func NewClaimHandler(cs *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: cs}
}

// Create handles POST /api/v1/claims
// Mints a claim code for the authenticated caller; the code is then typed
// into the device during WiFi provisioning.
func (h *ClaimHandler) Create(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "unauthenticated",
			"error_description": "A resolved identity is required to issue claims",
		})
		return
	}

	claim, err := h.claimService.Create(ownerID)
	if err != nil {
		if errors.Is(err, services.ErrOwnerRequired) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthenticated",
				"error_description": "A resolved identity is required to issue claims",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "Failed to issue claim code",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"claim_id":   claim.ID,
		"claim_code": claim.Code,
		"expires_at": claim.ExpiresAt.Format(time.RFC3339),
	})
}

// List handles GET /api/v1/claims
// Returns the caller's issued claims, newest first.
func (h *ClaimHandler) List(c *gin.Context) {
	claims, err := h.claimService.GetByOwner(middleware.OwnerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "Failed to list claims",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

type redeemRequest struct {
	ClaimCode  string `json:"claim_code"`
	HardwareID string `json:"hardware_id"`
	DeviceName string `json:"device_name"`
}

// Redeem handles POST /api/v1/claims/redeem
// Called by the hardware after WiFi provisioning; no identity required.
func (h *ClaimHandler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "Request body must be JSON",
		})
		return
	}

	if req.ClaimCode == "" || req.HardwareID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "claim_code and hardware_id are required",
		})
		return
	}

	result, err := h.claimService.Redeem(req.ClaimCode, req.HardwareID, req.DeviceName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrClaimCodeRequired),
			errors.Is(err, services.ErrHardwareIDRequired):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "invalid_request",
				"error_description": "claim_code and hardware_id are required",
			})
		case errors.Is(err, services.ErrClaimNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":             "invalid_claim",
				"error_description": "Invalid or already-used claim code",
			})
		case errors.Is(err, services.ErrClaimExpired):
			c.JSON(http.StatusGone, gin.H{
				"error":             "claim_expired",
				"error_description": "Claim code has expired",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":             "server_error",
				"error_description": "Failed to redeem claim code",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id": result.DeviceID,
		"owner_id":  result.OwnerID,
		"status":    result.Status,
	})
}
