package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/issuepulse/internal/analytics"
	"github.com/huangang/issuepulse/internal/analytics/export"
	"github.com/huangang/issuepulse/pkg/logger"
	"github.com/rs/zerolog"
)

// AnalyticsService is the boundary between HTTP callers and the engine: it
// performs the single record source read and hands the records to the pure
// aggregation stages.
type AnalyticsService struct {
	engine         *analytics.Engine
	source         RecordSource
	detector       *analytics.Detector
	exporter       *export.Exporter
	projectionDays int
	events         *PatternEventHub
	log            zerolog.Logger
}

func NewAnalyticsService(engine *analytics.Engine, source RecordSource, detector *analytics.Detector, exporter *export.Exporter, projectionDays int) *AnalyticsService {
	if projectionDays <= 0 {
		projectionDays = analytics.ProjectionWindow
	}
	return &AnalyticsService{
		engine:         engine,
		source:         source,
		detector:       detector,
		exporter:       exporter,
		projectionDays: projectionDays,
		log:            logger.Component("analytics"),
	}
}

// SetEventHub makes DetectPatterns announce recorded patterns on hub.
func (s *AnalyticsService) SetEventHub(hub *PatternEventHub) {
	s.events = hub
}

// DefaultProjectionDays is used when a projection request names no horizon.
func (s *AnalyticsService) DefaultProjectionDays() int {
	return s.projectionDays
}

// Snapshot loads the records for the filter's window and aggregates them.
func (s *AnalyticsService) Snapshot(ctx context.Context, f analytics.Filter) (*analytics.AnalyticsSnapshot, error) {
	if err := s.engine.ResolveBounds(&f); err != nil {
		return nil, err
	}

	started := time.Now()
	records, err := s.source.FetchRecords(ctx, f.Start, f.End, RecordQuery{UserID: f.UserID, Status: f.Status})
	if err != nil {
		s.log.Error().Err(err).Str("range", f.Range).Msg("record source failed")
		return nil, &analytics.AggregationError{Op: "fetch records", Err: err}
	}

	snapshot, err := s.engine.Aggregate(ctx, records, f)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("range", f.Range).
		Int("records", snapshot.TotalRecords).
		Dur("took", time.Since(started)).
		Msg("snapshot aggregated")
	return snapshot, nil
}

// Projection extrapolates the trend series of the filter's window.
func (s *AnalyticsService) Projection(ctx context.Context, f analytics.Filter, days int) (*analytics.ProjectionResult, error) {
	snapshot, err := s.Snapshot(ctx, f)
	if err != nil {
		return nil, err
	}
	result, err := analytics.Project(snapshot.TrendData, days)
	if err != nil {
		return nil, fmt.Errorf("project %d days over %d points: %w", days, len(snapshot.TrendData), err)
	}
	return result, nil
}

// Export aggregates a snapshot and encodes it in format.
func (s *AnalyticsService) Export(ctx context.Context, f analytics.Filter, format string) (*export.Export, error) {
	if !s.exporter.Supports(format) {
		return nil, fmt.Errorf("%w: %q", analytics.ErrUnsupportedFormat, format)
	}
	snapshot, err := s.Snapshot(ctx, f)
	if err != nil {
		return nil, err
	}
	out, err := s.exporter.Encode(snapshot, format, s.engine.Now())
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("format", format).Str("file", out.Filename).Int("bytes", len(out.Payload)).Msg("snapshot exported")
	return out, nil
}

// Patterns returns the top error patterns last seen in the filter's window.
func (s *AnalyticsService) Patterns(ctx context.Context, f analytics.Filter) ([]analytics.ErrorPattern, error) {
	return s.engine.TopPatterns(ctx, f)
}

// Classification is the labelling preview for a single text.
type Classification struct {
	IssueType analytics.IssueType      `json:"issueType"`
	Severity  analytics.Severity       `json:"severity"`
	Patterns  []analytics.PatternMatch `json:"patterns"`
}

// Classify labels text and lists matching patterns without recording them.
func (s *AnalyticsService) Classify(text string) Classification {
	issueType, severity := analytics.Classify(text)
	matches := s.detector.Match(text)
	if matches == nil {
		matches = []analytics.PatternMatch{}
	}
	return Classification{IssueType: issueType, Severity: severity, Patterns: matches}
}

// DetectPatterns records every pattern found in text at the given instant.
func (s *AnalyticsService) DetectPatterns(ctx context.Context, task *PatternTask) ([]analytics.PatternMatch, error) {
	at := task.OccurredAt
	if at.IsZero() {
		at = s.engine.Now()
	}
	matches, err := s.detector.Detect(ctx, task.Text, at)
	if err != nil {
		s.log.Error().Err(err).Uint("analysis_id", task.AnalysisID).Int("recorded", len(matches)).Msg("pattern detection failed")
		return matches, err
	}
	if len(matches) > 0 {
		s.log.Debug().Uint("analysis_id", task.AnalysisID).Int("patterns", len(matches)).Msg("patterns recorded")
		s.publish(task.AnalysisID, matches, at)
	}
	return matches, nil
}

// ProcessPatternTask adapts DetectPatterns to a TaskProcessor.
func (s *AnalyticsService) ProcessPatternTask(ctx context.Context, task *PatternTask) error {
	_, err := s.DetectPatterns(ctx, task)
	return err
}

func (s *AnalyticsService) publish(analysisID uint, matches []analytics.PatternMatch, at time.Time) {
	if s.events == nil {
		return
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Name
	}
	s.events.Publish(PatternEvent{AnalysisID: analysisID, Patterns: names, OccurredAt: at})
}
