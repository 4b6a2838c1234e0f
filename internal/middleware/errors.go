package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/saxenaaman628/election-observer/internal/apperr"
	"github.com/saxenaaman628/election-observer/internal/response"
)

const internalMessage = "Internal Server Error"

// ErrorHandler renders the last error pushed with c.Error as the failure
// envelope. In production the message of a 500 is replaced.
func ErrorHandler(log *zap.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := apperr.StatusOf(err)

		message := err.Error()
		var ae *apperr.Error
		if errors.As(err, &ae) {
			message = ae.Message
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err))
			if production {
				message = internalMessage
			}
		}
		response.Fail(c, status, message)
	}
}

// Recovery turns panics into a 500 envelope.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered))
		response.Fail(c, http.StatusInternalServerError, internalMessage)
	})
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	response.Fail(c, http.StatusNotFound, "Route "+c.Request.URL.Path+" not found")
}
