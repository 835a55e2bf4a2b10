package models

import (
	"time"

	"github.com/huangang/issuepulse/internal/analytics"
)

// ErrorPattern is the persisted frequency entry for one named signature.
type ErrorPattern struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"uniqueIndex;size:200;not null" json:"name"`
	Frequency    int64     `gorm:"not null;default:0" json:"frequency"`
	LastOccurred time.Time `gorm:"index" json:"last_occurred"`
	Trend        string    `gorm:"size:20" json:"trend"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (ErrorPattern) TableName() string { return "error_patterns" }

func (p *ErrorPattern) ToPattern() analytics.ErrorPattern {
	return analytics.ErrorPattern{
		Name:         p.Name,
		Frequency:    p.Frequency,
		LastOccurred: p.LastOccurred,
		Trend:        analytics.PatternTrend(p.Trend),
	}
}

// ErrorPatternHit records a single occurrence; hits older than two trend
// windows are pruned on write.
type ErrorPatternHit struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PatternID  uint      `gorm:"index:idx_pattern_hit;not null" json:"pattern_id"`
	OccurredAt time.Time `gorm:"index:idx_pattern_hit" json:"occurred_at"`
}

func (ErrorPatternHit) TableName() string { return "error_pattern_hits" }
