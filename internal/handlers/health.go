package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/issuepulse/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the service's dependencies.
type HealthHandler struct {
	db      *gorm.DB
	queue   services.TaskQueue
	scanner *services.PatternScanService
	store   string
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue, scanner *services.PatternScanService, patternStore string) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, scanner: scanner, store: patternStore}
}

// CheckHealth GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	components := gin.H{
		"database":      dbStatus,
		"queue_mode":    queueMode,
		"pattern_store": h.store,
	}
	if h.scanner != nil {
		if lastRun, scanned := h.scanner.LastRun(); !lastRun.IsZero() {
			components["last_pattern_scan"] = lastRun.UTC().Format(time.RFC3339)
			components["last_pattern_scan_analyses"] = scanned
		}
	}

	c.JSON(status, gin.H{
		"status":     overall,
		"service":    "issuepulse",
		"components": components,
	})
}
