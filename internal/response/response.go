// Package response writes the JSON envelope shared by every endpoint:
// {success, message?, data?} on success and {success:false, error:{message}}
// on failure.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func body(message string, data any) gin.H {
	h := gin.H{"success": true}
	if message != "" {
		h["message"] = message
	}
	if data != nil {
		h["data"] = data
	}
	return h
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, body("", data))
}

func OKMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, body(message, data))
}

func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, body(message, data))
}

func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   gin.H{"message": message},
	})
}
