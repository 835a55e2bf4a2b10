package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/issuepulse/internal/analytics"
	"github.com/huangang/issuepulse/internal/models"
	"gorm.io/gorm"
)

// RecordQuery narrows the rows a RecordSource loads. Filters the store
// cannot evaluate (severity, issue type) are applied by the engine.
type RecordQuery struct {
	UserID *uint
	Status analytics.Status
}

// RecordSource loads analysis records whose timestamp falls in [start, end].
type RecordSource interface {
	FetchRecords(ctx context.Context, start, end time.Time, q RecordQuery) ([]analytics.AnalysisRecord, error)
}

// GormRecordSource reads records from the analyses table.
type GormRecordSource struct {
	db *gorm.DB
}

func NewGormRecordSource(db *gorm.DB) *GormRecordSource {
	return &GormRecordSource{db: db}
}

func (s *GormRecordSource) FetchRecords(ctx context.Context, start, end time.Time, q RecordQuery) ([]analytics.AnalysisRecord, error) {
	query := s.db.WithContext(ctx).Model(&models.Analysis{}).
		Where("created_at >= ? AND created_at <= ?", start.UTC(), end.UTC())
	if q.UserID != nil {
		query = query.Where("user_id = ?", *q.UserID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", string(q.Status))
	}

	var rows []models.Analysis
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}

	records := make([]analytics.AnalysisRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToRecord()
	}
	return records, nil
}

// FetchSince returns up to limit analyses with an id greater than afterID,
// oldest first. The pattern scanner pages through new rows with it.
func (s *GormRecordSource) FetchSince(ctx context.Context, afterID uint, limit int) ([]models.Analysis, error) {
	var rows []models.Analysis
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query analyses after %d: %w", afterID, err)
	}
	return rows, nil
}
