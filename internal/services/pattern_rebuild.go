package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/huangang/issuepulse/internal/analytics"
	"github.com/huangang/issuepulse/internal/models"
	"gorm.io/gorm"
)

// ResettablePatternStore is a store that can be wiped before a rebuild.
type ResettablePatternStore interface {
	analytics.PatternStore
	Reset(ctx context.Context) error
}

// RebuildResult summarizes a replay of stored analyses.
type RebuildResult struct {
	Analyses  int
	Matches   int
	Watermark uint
}

// RebuildPatterns replays every stored analysis through the detector in id
// order. Unless dryRun is set it resets store first and moves the scan
// watermark past the last replayed analysis.
func RebuildPatterns(ctx context.Context, db *gorm.DB, store analytics.PatternStore, batchSize int, dryRun bool) (RebuildResult, error) {
	var result RebuildResult
	if batchSize <= 0 {
		return result, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	resettable, ok := store.(ResettablePatternStore)
	if !ok && !dryRun {
		return result, errors.New("pattern store cannot be reset; rebuild needs the database or redis store")
	}
	if !dryRun {
		if err := resettable.Reset(ctx); err != nil {
			return result, fmt.Errorf("reset patterns: %w", err)
		}
	}

	detector := analytics.NewDetector(store)
	source := NewGormRecordSource(db)
	for {
		rows, err := source.FetchSince(ctx, result.Watermark, batchSize)
		if err != nil {
			return result, fmt.Errorf("fetch analyses after %d: %w", result.Watermark, err)
		}
		for i := range rows {
			var found []analytics.PatternMatch
			if dryRun {
				found = detector.Match(rows[i].TechnicalAnalysis)
			} else {
				found, err = detector.Detect(ctx, rows[i].TechnicalAnalysis, rows[i].CreatedAt)
				if err != nil {
					return result, fmt.Errorf("detect patterns for analysis %d: %w", rows[i].ID, err)
				}
			}
			result.Matches += len(found)
			result.Watermark = rows[i].ID
		}
		result.Analyses += len(rows)
		if len(rows) < batchSize {
			break
		}
	}

	if !dryRun && result.Watermark > 0 {
		configs := NewSystemConfigService(db)
		if err := configs.Set(ctx, models.ConfigKeyPatternScanWatermark, strconv.FormatUint(uint64(result.Watermark), 10)); err != nil {
			return result, fmt.Errorf("store scan watermark: %w", err)
		}
	}
	return result, nil
}
