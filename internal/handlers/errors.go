package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func badRequest(c *gin.Context, description string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":             "invalid_request",
		"error_description": description,
	})
}

func serverError(c *gin.Context, description string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":             "server_error",
		"error_description": description,
	})
}
