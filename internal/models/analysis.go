package models

import (
	"time"

	"github.com/huangang/issuepulse/internal/analytics"
	"gorm.io/gorm"
)

// Analysis is one stored technical analysis produced for a user.
type Analysis struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            *uint          `gorm:"index" json:"user_id"`
	TechnicalAnalysis string         `gorm:"type:text" json:"technical_analysis"`
	Status            string         `gorm:"size:20;default:open;index" json:"status"` // open, in-progress, resolved
	ResolvedAt        *time.Time     `json:"resolved_at"`
	ModelID           string         `gorm:"size:100" json:"model_id"`
	ProcessingTime    float64        `json:"processing_time"` // seconds
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Analysis) TableName() string { return "analyses" }

// ToRecord converts the row to the engine's input type.
func (a *Analysis) ToRecord() analytics.AnalysisRecord {
	status := analytics.Status(a.Status)
	if status == "" {
		status = analytics.StatusOpen
	}
	return analytics.AnalysisRecord{
		ID:                a.ID,
		Timestamp:         a.CreatedAt,
		UserID:            a.UserID,
		TechnicalAnalysis: a.TechnicalAnalysis,
		Status:            status,
		ResolvedAt:        a.ResolvedAt,
		ModelID:           a.ModelID,
		ProcessingTime:    a.ProcessingTime,
	}
}
