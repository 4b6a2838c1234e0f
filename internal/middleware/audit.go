package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/election-observer/internal/services"
)

const (
	auditEntityKey = "audit.entityID"
	auditOldKey    = "audit.old"
	auditNewKey    = "audit.new"
)

type Recorder interface {
	Record(ctx context.Context, e services.Entry)
}

// SetAuditValues attaches the entity id and before/after snapshots that the
// surrounding Audit middleware will record. Any of them may be empty.
func SetAuditValues(c *gin.Context, entityID string, oldValues, newValues any) {
	if entityID != "" {
		c.Set(auditEntityKey, entityID)
	}
	if oldValues != nil {
		c.Set(auditOldKey, oldValues)
	}
	if newValues != nil {
		c.Set(auditNewKey, newValues)
	}
}

// Audit records action on entityType after the handler succeeds. Failed
// requests leave no audit row.
func Audit(r Recorder, action, entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		userID := UserID(c)
		if userID == "" {
			return
		}
		entityID := c.GetString(auditEntityKey)
		if entityID == "" {
			entityID = c.Param("id")
		}
		oldValues, _ := c.Get(auditOldKey)
		newValues, _ := c.Get(auditNewKey)
		r.Record(context.WithoutCancel(c.Request.Context()), services.Entry{
			UserID:     userID,
			Action:     action,
			EntityType: entityType,
			EntityID:   entityID,
			OldValues:  oldValues,
			NewValues:  newValues,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		})
	}
}
