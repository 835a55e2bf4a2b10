// rebuild_patterns clears the configured pattern store and replays every
// stored analysis through the detector, then moves the scan watermark past
// them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/huangang/issuepulse/internal/config"
	"github.com/huangang/issuepulse/internal/models"
	"github.com/huangang/issuepulse/internal/services"
	"github.com/huangang/issuepulse/pkg/logger"
	"github.com/redis/go-redis/v9"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	batchSize := flag.Int("batch", 500, "analyses per page")
	dryRun := flag.Bool("dry-run", false, "count matches without writing")
	flag.Parse()

	if *batchSize <= 0 {
		logger.Fatalf("-batch must be positive, got %d", *batchSize)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level, "console")

	// The memory store lives inside the server process.
	if cfg.Analytics.PatternStore == config.PatternStoreMemory && !*dryRun {
		logger.Fatalf("pattern_store is %q; nothing persistent to rebuild", cfg.Analytics.PatternStore)
	}

	db, err := models.Open(&cfg.Database, gormlogger.Warn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	ctx := context.Background()
	var client redis.UniversalClient
	if cfg.Analytics.PatternStore == config.PatternStoreRedis {
		rdb, err := services.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		client = rdb
	}

	store, err := services.NewPatternStore(&cfg.Analytics, db, client)
	if err != nil {
		logger.Fatalf("Failed to create pattern store: %v", err)
	}

	result, err := services.RebuildPatterns(ctx, db, store, *batchSize, *dryRun)
	if err != nil {
		logger.Fatalf("Rebuild failed: %v", err)
	}

	fmt.Printf("Replayed %d analyses into the %s store, %d pattern matches", result.Analyses, cfg.Analytics.PatternStore, result.Matches)
	if *dryRun {
		fmt.Print(" (dry run)")
	}
	fmt.Println()
}
