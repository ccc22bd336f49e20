package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jj-link/Pulsr/internal/config"
	"github.com/jj-link/Pulsr/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *token.Provider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := token.NewProvider(&config.Config{
		JWTSecret:     "test-secret",
		JWTExpiration: time.Hour,
	})

	r := gin.New()
	r.GET("/protected", RequireAuth(provider), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"owner_id": OwnerID(c)})
	})
	return r, provider
}

func TestRequireAuth_ValidToken(t *testing.T) {
	r, provider := setupAuthRouter(t)

	tokenString, _, err := provider.Generate("owner-1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "owner-1")
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	r, _ := setupAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthenticated")
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	r, provider := setupAuthRouter(t)

	tokenString, _, err := provider.Generate("owner-1")
	require.NoError(t, err)

	for _, header := range []string{
		tokenString,
		"Basic " + tokenString,
		"Bearer",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header: %q", header)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	r, _ := setupAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOwnerID_AbsentContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, OwnerID(c))
}
