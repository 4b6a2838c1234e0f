package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saxenaaman628/election-observer/internal/database"
)

type HealthHandler struct {
	db          *sql.DB
	environment string
	started     time.Time
}

func NewHealthHandler(db *sql.DB, environment string) *HealthHandler {
	return &HealthHandler{db: db, environment: environment, started: time.Now()}
}

// Health always answers 200; a failing database shows up as "down".
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "up"
	if h.db == nil || database.Check(ctx, h.db) != nil {
		dbStatus = "down"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.started).Seconds(),
		"environment": h.environment,
		"database":    dbStatus,
	})
}
