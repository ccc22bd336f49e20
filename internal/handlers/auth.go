package handlers

import (
	"net/http"
	"time"

	"github.com/jj-link/Pulsr/internal/token"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	tokens *token.Provider
}

func NewAuthHandler(tp *token.Provider) *AuthHandler {
	return &AuthHandler{tokens: tp}
}

type tokenRequest struct {
	OwnerID string `json:"owner_id"`
}

// DevToken handles POST /api/v1/auth/token
// Issues a bearer token for a raw owner id. Development convenience only;
// production deployments front this API with a real identity provider that
// mints the same HS256 claims and leave this route disabled.
func (h *AuthHandler) DevToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OwnerID == "" {
		badRequest(c, "owner_id is required")
		return
	}

	tokenString, expiresAt, err := h.tokens.Generate(req.OwnerID)
	if err != nil {
		serverError(c, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": tokenString,
		"token_type":   "Bearer",
		"expires_at":   expiresAt.Format(time.RFC3339),
	})
}
