package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/issuepulse/internal/models"
	"github.com/huangang/issuepulse/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	scanLockName = "pattern_scan"
	scanLockKey  = "global"
	scanLockTTL  = 10 * time.Minute
)

// ErrScanLocked is returned when another instance holds the scan lock.
var ErrScanLocked = errors.New("pattern scan already running")

// PatternScanService periodically feeds analyses created since the last scan
// to pattern detection. Progress is kept as the highest scanned analysis id.
type PatternScanService struct {
	db         *gorm.DB
	source     *GormRecordSource
	queue      TaskQueue
	configs    *SystemConfigService
	batchSize  int
	instanceID string
	log        zerolog.Logger

	mu            sync.Mutex
	cronScheduler *cron.Cron
	lastRun       time.Time
	lastScanned   int
}

func NewPatternScanService(db *gorm.DB, queue TaskQueue, batchSize int) *PatternScanService {
	if batchSize <= 0 {
		batchSize = 500
	}
	host, _ := os.Hostname()
	return &PatternScanService{
		db:         db,
		source:     NewGormRecordSource(db),
		queue:      queue,
		configs:    NewSystemConfigService(db),
		batchSize:  batchSize,
		instanceID: host + "-" + uuid.NewString()[:8],
		log:        logger.Component("pattern_scan"),
	}
}

// StartScheduler registers the scan on schedule. An empty schedule leaves
// the scanner disabled.
func (s *PatternScanService) StartScheduler(schedule string) error {
	if schedule == "" {
		s.log.Info().Msg("scheduler disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Scan(context.Background()); err != nil && !errors.Is(err, ErrScanLocked) {
			s.log.Error().Err(err).Msg("scheduled scan failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid scan schedule %q: %w", schedule, err)
	}

	s.mu.Lock()
	s.cronScheduler = c
	s.mu.Unlock()

	c.Start()
	s.log.Info().Str("schedule", schedule).Msg("scheduler started")
	return nil
}

// StopScheduler waits for a running scan to finish.
func (s *PatternScanService) StopScheduler() {
	s.mu.Lock()
	c := s.cronScheduler
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Scan processes every analysis newer than the watermark and returns how
// many were handed to detection.
func (s *PatternScanService) Scan(ctx context.Context) (int, error) {
	if !s.configs.GetBool(ctx, models.ConfigKeyPatternScanEnabled, true) {
		return 0, nil
	}

	ok, err := s.acquireLock(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire scan lock: %w", err)
	}
	if !ok {
		return 0, ErrScanLocked
	}
	defer s.releaseLock()

	watermark := s.configs.GetUint(ctx, models.ConfigKeyPatternScanWatermark)
	total := 0
	for {
		rows, err := s.source.FetchSince(ctx, watermark, s.batchSize)
		if err != nil {
			return total, err
		}
		if len(rows) == 0 {
			break
		}

		for i := range rows {
			task := &PatternTask{
				AnalysisID: rows[i].ID,
				Text:       rows[i].TechnicalAnalysis,
				OccurredAt: rows[i].CreatedAt,
			}
			if err := s.dispatch(ctx, task); err != nil {
				return total, fmt.Errorf("dispatch analysis %d: %w", task.AnalysisID, err)
			}
			watermark = rows[i].ID
			total++
		}

		if err := s.configs.Set(ctx, models.ConfigKeyPatternScanWatermark, strconv.FormatUint(uint64(watermark), 10)); err != nil {
			return total, fmt.Errorf("store watermark: %w", err)
		}
		if len(rows) < s.batchSize {
			break
		}
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastScanned = total
	s.mu.Unlock()

	if total > 0 {
		s.log.Info().Int("analyses", total).Uint("watermark", watermark).Msg("scan complete")
	}
	return total, nil
}

// dispatch runs the task inline for a sync queue so the watermark only
// moves past analyses that were actually processed.
func (s *PatternScanService) dispatch(ctx context.Context, task *PatternTask) error {
	if sq, ok := s.queue.(*SyncQueue); ok {
		return sq.Run(ctx, task)
	}
	_, err := s.queue.Enqueue(ctx, task)
	return err
}

// LastRun reports when the last scan finished and how many analyses it saw.
func (s *PatternScanService) LastRun() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastScanned
}

func (s *PatternScanService) acquireLock(ctx context.Context) (bool, error) {
	now := time.Now()
	db := s.db.WithContext(ctx)

	if err := db.Where("lock_name = ? AND lock_key = ? AND expires_at < ?", scanLockName, scanLockKey, now).
		Delete(&models.SchedulerLock{}).Error; err != nil {
		return false, err
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.SchedulerLock{
		LockName:  scanLockName,
		LockKey:   scanLockKey,
		LockedBy:  s.instanceID,
		LockedAt:  now,
		ExpiresAt: now.Add(scanLockTTL),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *PatternScanService) releaseLock() {
	err := s.db.Where("lock_name = ? AND lock_key = ? AND locked_by = ?", scanLockName, scanLockKey, s.instanceID).
		Delete(&models.SchedulerLock{}).Error
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to release scan lock")
	}
}
