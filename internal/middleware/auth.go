package middleware

import (
	"net/http"
	"strings"

	"github.com/jj-link/Pulsr/internal/token"

	"github.com/gin-gonic/gin"
)

const (
	// ContextOwnerID is the gin context key holding the resolved caller identity
	ContextOwnerID = "owner_id"
)

// RequireAuth resolves the caller identity from the Authorization header.
// Requests without a valid bearer token are rejected with 401; claims can
// only be issued for a resolved identity.
func RequireAuth(provider *token.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "Authorization header must be a Bearer token")
			return
		}

		identity, err := provider.Validate(parts[1])
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ContextOwnerID, identity.OwnerID)
		c.Next()
	}
}

// OwnerID returns the identity resolved by RequireAuth, or "" if absent
func OwnerID(c *gin.Context) string {
	if v, exists := c.Get(ContextOwnerID); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func unauthorized(c *gin.Context, description string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":             "unauthenticated",
		"error_description": description,
	})
}
