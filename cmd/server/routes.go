package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/issuepulse/internal/handlers"
	"github.com/huangang/issuepulse/internal/middleware"
	"github.com/huangang/issuepulse/internal/models"
	"github.com/huangang/issuepulse/pkg/logger"
)

// registerRoutes sets up all HTTP routes and returns the export limiter so
// the caller can stop it.
func registerRoutes(r *gin.Engine, svc *appServices) *middleware.RateLimiter {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(svc.cfg.Server.CORSOrigins))

	db := models.GetDB()
	healthHandler := handlers.NewHealthHandler(db, svc.taskQueue, svc.scanner, svc.cfg.Analytics.PatternStore)
	metricsHandler := handlers.NewMetricsHandler(db, svc.taskQueue, svc.patternStore)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", metricsHandler.Metrics)

	loc, _ := svc.cfg.Analytics.Location()
	analyticsHandler := handlers.NewAnalyticsHandler(svc.analytics, svc.taskQueue, loc)
	exportLimiter := middleware.PerMinute(svc.cfg.Analytics.ExportRatePerMinute)

	// EventSource cannot send headers, so the stream authenticates itself.
	r.GET("/api/analytics/patterns/stream", handlers.NewSSEHandler(svc.events).StreamPatternEvents)

	api := r.Group("/api/analytics")
	api.Use(middleware.AuthRequired(), middleware.AuditLog())
	{
		api.GET("/snapshot", analyticsHandler.GetSnapshot)
		api.GET("/projection", analyticsHandler.GetProjection)
		api.GET("/export", exportLimiter.Middleware(), analyticsHandler.Export)
		api.GET("/patterns", analyticsHandler.GetPatterns)
		api.POST("/classify", analyticsHandler.Classify)
		api.POST("/patterns/detect", middleware.AdminRequired(), analyticsHandler.DetectPatterns)
	}

	return exportLimiter
}
