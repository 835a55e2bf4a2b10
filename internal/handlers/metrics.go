package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/issuepulse/internal/analytics"
	"github.com/huangang/issuepulse/internal/models"
	"github.com/huangang/issuepulse/internal/services"
	"gorm.io/gorm"
)

var startTime = time.Now()

// MetricsHandler renders Prometheus text-format gauges.
type MetricsHandler struct {
	db       *gorm.DB
	queue    services.TaskQueue
	patterns analytics.PatternStore
}

func NewMetricsHandler(db *gorm.DB, queue services.TaskQueue, patterns analytics.PatternStore) *MetricsHandler {
	return &MetricsHandler{db: db, queue: queue, patterns: patterns}
}

// Metrics GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "issuepulse_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "issuepulse_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "issuepulse_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "issuepulse_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	queueAsync := 0.0
	if h.queue != nil && h.queue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "issuepulse_queue_async_enabled", "Whether the redis task queue is enabled (1=yes, 0=no)", queueAsync)

	if h.db != nil {
		if sqlDB, err := h.db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "issuepulse_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
			writeGauge(&b, "issuepulse_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
		}

		ctx := c.Request.Context()
		var total int64
		h.db.WithContext(ctx).Model(&models.Analysis{}).Count(&total)
		writeGauge(&b, "issuepulse_analyses_total", "Stored analyses", float64(total))

		fmt.Fprintf(&b, "# HELP issuepulse_analyses Stored analyses by status\n# TYPE issuepulse_analyses gauge\n")
		for _, s := range analytics.Statuses {
			var n int64
			h.db.WithContext(ctx).Model(&models.Analysis{}).Where("status = ?", string(s)).Count(&n)
			writeLabeledGauge(&b, "issuepulse_analyses", "status", string(s), float64(n))
		}
		b.WriteString("\n")
	}

	if h.patterns != nil {
		if patterns, err := h.patterns.List(c.Request.Context()); err == nil {
			var hits int64
			for _, p := range patterns {
				hits += p.Frequency
			}
			writeGauge(&b, "issuepulse_error_patterns_tracked", "Distinct error patterns seen", float64(len(patterns)))
			writeGauge(&b, "issuepulse_error_pattern_hits_total", "Sum of all error pattern frequencies", float64(hits))
		}
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}

func writeLabeledGauge(b *strings.Builder, name, label, value string, v float64) {
	fmt.Fprintf(b, "%s{%s=%q} %g\n", name, label, value, v)
}
