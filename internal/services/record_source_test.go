package services

import (
	"context"
	"testing"
	"time"

	"github.com/huangang/issuepulse/internal/analytics"
	"github.com/huangang/issuepulse/internal/models"
	"gorm.io/gorm"
)

var sourceNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func seedAnalyses(t *testing.T, db *gorm.DB) []models.Analysis {
	t.Helper()
	resolvedAt := sourceNow.Add(-time.Hour)
	rows := []models.Analysis{
		{UserID: uintPtr(1), TechnicalAnalysis: "Critical: memory allocation error, out of memory", Status: "open", ModelID: "gpt-4", ProcessingTime: 1.5, CreatedAt: sourceNow.Add(-2 * time.Hour)},
		{UserID: uintPtr(2), TechnicalAnalysis: "connection timeout to upstream", Status: "resolved", ResolvedAt: &resolvedAt, CreatedAt: sourceNow.Add(-3 * time.Hour)},
		{UserID: uintPtr(1), TechnicalAnalysis: "syntax error near token", Status: "in-progress", CreatedAt: sourceNow.AddDate(0, 0, -3)},
		{UserID: uintPtr(1), TechnicalAnalysis: "slow query", Status: "open", CreatedAt: sourceNow.AddDate(0, 0, -40)},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed analyses: %v", err)
	}
	return rows
}

func TestGormRecordSource_FetchRecords(t *testing.T) {
	db := newTestDB(t)
	seedAnalyses(t, db)
	src := NewGormRecordSource(db)
	ctx := context.Background()

	start, end, err := analytics.ResolveRange("7d", sourceNow)
	if err != nil {
		t.Fatal(err)
	}
	records, err := src.FetchRecords(ctx, start, end, RecordQuery{})
	if err != nil {
		t.Fatalf("FetchRecords() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("FetchRecords() returned %d records, expected 3", len(records))
	}
	if !records[0].Timestamp.Before(records[1].Timestamp) {
		t.Error("records should be ordered by timestamp")
	}

	var memory analytics.AnalysisRecord
	for _, r := range records {
		if r.ModelID == "gpt-4" {
			memory = r
		}
	}
	if memory.ProcessingTime != 1.5 || memory.Status != analytics.StatusOpen {
		t.Errorf("converted record = %+v", memory)
	}
}

func TestGormRecordSource_Filters(t *testing.T) {
	db := newTestDB(t)
	seedAnalyses(t, db)
	src := NewGormRecordSource(db)
	ctx := context.Background()
	start := time.Unix(0, 0).UTC()

	byUser, err := src.FetchRecords(ctx, start, sourceNow, RecordQuery{UserID: uintPtr(1)})
	if err != nil {
		t.Fatal(err)
	}
	if len(byUser) != 3 {
		t.Errorf("user 1 has %d records, expected 3", len(byUser))
	}

	resolved, err := src.FetchRecords(ctx, start, sourceNow, RecordQuery{Status: analytics.StatusResolved})
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 1 || resolved[0].ResolvedAt == nil {
		t.Errorf("resolved = %+v", resolved)
	}
}

func TestGormRecordSource_FetchSince(t *testing.T) {
	db := newTestDB(t)
	rows := seedAnalyses(t, db)
	src := NewGormRecordSource(db)

	page, err := src.FetchSince(context.Background(), rows[0].ID, 2)
	if err != nil {
		t.Fatalf("FetchSince() error = %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("FetchSince() returned %d rows, expected 2", len(page))
	}
	if page[0].ID != rows[1].ID || page[1].ID != rows[2].ID {
		t.Errorf("page ids = %d, %d", page[0].ID, page[1].ID)
	}
}

func TestGormRecordSource_CanceledContext(t *testing.T) {
	src := NewGormRecordSource(newTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.FetchRecords(ctx, time.Unix(0, 0), sourceNow, RecordQuery{}); err == nil {
		t.Error("FetchRecords() with canceled context should fail")
	}
}
