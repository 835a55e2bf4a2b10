package main

import (
	"context"

	"github.com/huangang/issuepulse/internal/analytics"
	"github.com/huangang/issuepulse/internal/analytics/export"
	"github.com/huangang/issuepulse/internal/config"
	"github.com/huangang/issuepulse/internal/models"
	"github.com/huangang/issuepulse/internal/services"
	"github.com/huangang/issuepulse/internal/utils"
	"github.com/huangang/issuepulse/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// appServices holds the initialized services and handlers.
type appServices struct {
	cfg          *config.Config
	analytics    *services.AnalyticsService
	patternStore analytics.PatternStore
	taskQueue    services.TaskQueue
	worker       *services.Worker
	scanner      *services.PatternScanService
	events       *services.PatternEventHub
	redis        *redis.Client
}

// bootstrap initializes the database, pattern store, engine, queue and schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database, cfg.Server.Mode == "debug"); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	var rdb *redis.Client
	if cfg.Analytics.PatternStore == config.PatternStoreRedis {
		var err error
		rdb, err = services.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
	}

	var client redis.UniversalClient
	if rdb != nil {
		client = rdb
	}
	store, err := services.NewPatternStore(&cfg.Analytics, db, client)
	if err != nil {
		logger.Fatalf("Failed to create pattern store: %v", err)
	}

	loc, err := cfg.Analytics.Location()
	if err != nil {
		logger.Fatalf("Invalid analytics timezone: %v", err)
	}
	engine := analytics.NewEngine(store,
		analytics.WithLocation(loc),
		analytics.WithTopPatterns(cfg.Analytics.TopPatterns),
	)
	analyticsService := services.NewAnalyticsService(
		engine,
		services.NewGormRecordSource(db),
		analytics.NewDetector(store),
		export.New(cfg.Analytics.ExportFormats...),
		cfg.Analytics.DefaultProjectionDays,
	)
	events := services.NewPatternEventHub()
	analyticsService.SetEventHub(events)

	taskQueue := services.NewTaskQueue(&cfg.Redis)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(analyticsService.ProcessPatternTask)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis, 10)
		if worker != nil {
			worker.SetProcessor(analyticsService.ProcessPatternTask)
			if err := worker.Start(); err != nil {
				logger.Fatalf("Failed to start worker: %v", err)
			}
		}
	}

	scanner := services.NewPatternScanService(db, taskQueue, cfg.Analytics.ScanBatchSize)
	if err := scanner.StartScheduler(cfg.Analytics.ScanSchedule); err != nil {
		logger.Fatalf("Failed to start pattern scanner: %v", err)
	}

	return &appServices{
		cfg:          cfg,
		analytics:    analyticsService,
		patternStore: store,
		taskQueue:    taskQueue,
		worker:       worker,
		scanner:      scanner,
		events:       events,
		redis:        rdb,
	}
}

// shutdown stops schedulers first so no new work reaches the queue.
func (s *appServices) shutdown() {
	s.scanner.StopScheduler()
	logger.Info().Msg("Pattern scanner stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if sqlDB, err := models.GetDB().DB(); err == nil {
		sqlDB.Close()
	}
}
