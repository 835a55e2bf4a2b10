package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/issuepulse/internal/analytics"
	"github.com/huangang/issuepulse/internal/config"
	"github.com/huangang/issuepulse/internal/models"
	"github.com/huangang/issuepulse/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewPatternStore builds the store selected by analytics.pattern_store.
// rdb is only required for the redis backend.
func NewPatternStore(cfg *config.AnalyticsConfig, db *gorm.DB, rdb redis.UniversalClient) (analytics.PatternStore, error) {
	switch cfg.PatternStore {
	case config.PatternStoreMemory:
		logger.Infof("[PatternStore] Using in-memory store (window=%s)", cfg.TrendWindow)
		return analytics.NewMemoryPatternStore(cfg.TrendWindow), nil
	case config.PatternStoreDatabase:
		logger.Infof("[PatternStore] Using database store (window=%s)", cfg.TrendWindow)
		return NewGormPatternStore(db, cfg.TrendWindow), nil
	case config.PatternStoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis pattern store requires a redis client")
		}
		logger.Infof("[PatternStore] Using redis store (window=%s)", cfg.TrendWindow)
		return NewRedisPatternStore(rdb, cfg.TrendWindow), nil
	default:
		return nil, fmt.Errorf("unknown pattern store %q", cfg.PatternStore)
	}
}

// GormPatternStore persists patterns in error_patterns and their recent hits
// in error_pattern_hits.
type GormPatternStore struct {
	db     *gorm.DB
	window time.Duration
}

func NewGormPatternStore(db *gorm.DB, window time.Duration) *GormPatternStore {
	if window <= 0 {
		window = analytics.DefaultTrendWindow
	}
	return &GormPatternStore{db: db, window: window}
}

// Upsert runs in one transaction with the pattern row locked, so concurrent
// writers to the same name serialize.
func (s *GormPatternStore) Upsert(ctx context.Context, name string, at time.Time) (analytics.ErrorPattern, error) {
	at = at.UTC()
	var result models.ErrorPattern

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.ErrorPattern{Name: name, LastOccurred: at, Trend: string(analytics.TrendNew)}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		var p models.ErrorPattern
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(&models.ErrorPattern{Name: name}).
			First(&p).Error; err != nil {
			return err
		}

		p.Frequency++
		first := p.Frequency == 1
		if first || at.After(p.LastOccurred) {
			p.LastOccurred = at
		}

		if err := tx.Create(&models.ErrorPatternHit{PatternID: p.ID, OccurredAt: at}).Error; err != nil {
			return err
		}
		cutoff := p.LastOccurred.Add(-2 * s.window)
		if err := tx.Where("pattern_id = ? AND occurred_at <= ?", p.ID, cutoff).
			Delete(&models.ErrorPatternHit{}).Error; err != nil {
			return err
		}

		if first {
			p.Trend = string(analytics.TrendNew)
		} else {
			var hits []time.Time
			if err := tx.Model(&models.ErrorPatternHit{}).
				Where("pattern_id = ? AND occurred_at > ? AND occurred_at <= ?", p.ID, cutoff, p.LastOccurred).
				Pluck("occurred_at", &hits).Error; err != nil {
				return err
			}
			p.Trend = string(analytics.ComputeTrend(hits, p.LastOccurred, s.window))
		}

		if err := tx.Model(&p).Updates(map[string]interface{}{
			"frequency":     gorm.Expr("frequency + ?", 1),
			"last_occurred": p.LastOccurred,
			"trend":         p.Trend,
		}).Error; err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return analytics.ErrorPattern{}, fmt.Errorf("upsert error pattern %q: %w", name, err)
	}
	return result.ToPattern(), nil
}

func (s *GormPatternStore) List(ctx context.Context) ([]analytics.ErrorPattern, error) {
	var rows []models.ErrorPattern
	if err := s.db.WithContext(ctx).Where("frequency > 0").Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list error patterns: %w", err)
	}
	patterns := make([]analytics.ErrorPattern, len(rows))
	for i := range rows {
		patterns[i] = rows[i].ToPattern()
	}
	return patterns, nil
}

// Reset clears all pattern state. The rebuild script calls it before replaying history.
func (s *GormPatternStore) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ErrorPatternHit{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ErrorPattern{}).Error
	})
}
