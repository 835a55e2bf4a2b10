package analytics

import (
	"context"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultResolutionMinutes is reported as the average resolution time
	// when no resolved record exists in the window.
	DefaultResolutionMinutes = 60
	// DefaultTopPatterns caps the number of patterns in a snapshot.
	DefaultTopPatterns = 10
	// DefaultRange is used when a filter names neither a range nor bounds.
	DefaultRange = Range7d

	classifyChunkSize = 2048
)

// Filter narrows the records that feed a snapshot. All set fields are ANDed.
type Filter struct {
	Range     string
	Start     time.Time
	End       time.Time
	UserID    *uint
	Severity  Severity
	IssueType IssueType
	Status    Status
}

// Engine aggregates records into snapshots. It only reads from its pattern store.
type Engine struct {
	patterns    PatternStore
	loc         *time.Location
	topPatterns int
	now         func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLocation sets the time zone that defines calendar days and hours.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithTopPatterns sets how many error patterns a snapshot keeps.
func WithTopPatterns(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.topPatterns = n
		}
	}
}

// WithClock overrides the engine's notion of the current time.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine. patterns may be nil, in which case snapshots
// carry no error patterns.
func NewEngine(patterns PatternStore, opts ...EngineOption) *Engine {
	e := &Engine{
		patterns:    patterns,
		loc:         time.UTC,
		topPatterns: DefaultTopPatterns,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Location returns the engine's calendar time zone.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// ResolveBounds fills Start and End from the range token when no explicit
// bounds are set. An explicit End without a Start takes its Start from the
// range token counted back from End.
func (e *Engine) ResolveBounds(f *Filter) error {
	if !f.Start.IsZero() {
		if f.End.IsZero() {
			f.End = e.now()
		}
		return nil
	}

	token := f.Range
	if token == "" {
		token = DefaultRange
	}
	anchor := f.End
	if anchor.IsZero() {
		anchor = e.now()
		f.Range = token
	}
	start, end, err := ResolveRange(token, anchor)
	if err != nil {
		return err
	}
	f.Start, f.End = start, end
	return nil
}

// Aggregate filters, classifies and summarizes records into a snapshot.
func (e *Engine) Aggregate(ctx context.Context, records []AnalysisRecord, f Filter) (*AnalyticsSnapshot, error) {
	if err := e.ResolveBounds(&f); err != nil {
		return nil, err
	}

	var inWindow []AnalysisRecord
	for _, rec := range records {
		if matchesRecord(rec, f) {
			inWindow = append(inWindow, rec)
		}
	}

	classified, err := e.classifyAll(ctx, inWindow)
	if err != nil {
		return nil, err
	}
	filtered := classified[:0]
	for _, rec := range classified {
		if f.Severity != "" && rec.Severity != f.Severity {
			continue
		}
		if f.IssueType != "" && rec.IssueType != f.IssueType {
			continue
		}
		filtered = append(filtered, rec)
	}

	snapshot := &AnalyticsSnapshot{
		Range:              f.Range,
		StartDate:          f.Start,
		EndDate:            f.End,
		TotalRecords:       len(filtered),
		IssuesByType:       make(map[string]int, len(IssueTypes)),
		IssuesBySeverity:   make(map[string]int, len(Severities)),
		HourlyDistribution: BucketByHour(filtered, e.loc),
		GeneratedAt:        e.now(),
	}
	for _, t := range IssueTypes {
		snapshot.IssuesByType[string(t)] = 0
	}
	for _, s := range Severities {
		snapshot.IssuesBySeverity[string(s)] = 0
	}
	for _, rec := range filtered {
		snapshot.IssuesByType[string(rec.IssueType)]++
		snapshot.IssuesBySeverity[string(rec.Severity)]++
	}

	snapshot.TrendData = BucketByDay(filtered, e.seriesStart(f, filtered), f.End, e.loc)
	snapshot.ResolutionRate, snapshot.AverageResolutionTime = resolutionStats(filtered)
	snapshot.ImpactMetrics = impactMetrics(filtered)

	top, err := e.listTopPatterns(ctx, f)
	if err != nil {
		return nil, err
	}
	snapshot.TopErrorPatterns = top

	return snapshot, nil
}

// TopPatterns returns the most frequent patterns last seen within the
// filter's window.
func (e *Engine) TopPatterns(ctx context.Context, f Filter) ([]ErrorPattern, error) {
	if err := e.ResolveBounds(&f); err != nil {
		return nil, err
	}
	return e.listTopPatterns(ctx, f)
}

func (e *Engine) listTopPatterns(ctx context.Context, f Filter) ([]ErrorPattern, error) {
	if e.patterns == nil {
		return []ErrorPattern{}, nil
	}
	all, err := e.patterns.List(ctx)
	if err != nil {
		return nil, &AggregationError{Op: "list error patterns", Err: err}
	}
	return topPatterns(all, f.Start, f.End, e.topPatterns), nil
}

func matchesRecord(rec AnalysisRecord, f Filter) bool {
	if rec.Timestamp.Before(f.Start) || rec.Timestamp.After(f.End) {
		return false
	}
	if f.UserID != nil && (rec.UserID == nil || *rec.UserID != *f.UserID) {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	return true
}

// seriesStart keeps an "all" series from being padded back to the epoch.
func (e *Engine) seriesStart(f Filter, records []ClassifiedRecord) time.Time {
	if f.Range != RangeAll {
		return f.Start
	}
	earliest := f.End
	for _, rec := range records {
		if rec.Timestamp.Before(earliest) {
			earliest = rec.Timestamp
		}
	}
	return earliest
}

func (e *Engine) classifyAll(ctx context.Context, records []AnalysisRecord) ([]ClassifiedRecord, error) {
	out := make([]ClassifiedRecord, len(records))
	if len(records) <= classifyChunkSize {
		for i, rec := range records {
			out[i] = ClassifyRecord(rec)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < len(records); lo += classifyChunkSize {
		hi := min(lo+classifyChunkSize, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = ClassifyRecord(records[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func resolutionStats(records []ClassifiedRecord) (rate int, avgMinutes int) {
	if len(records) == 0 {
		return 0, DefaultResolutionMinutes
	}

	var resolved, timed int
	var totalMinutes float64
	for _, rec := range records {
		if rec.Status != StatusResolved {
			continue
		}
		resolved++
		if rec.ResolvedAt == nil || rec.ResolvedAt.Before(rec.Timestamp) {
			continue
		}
		timed++
		totalMinutes += rec.ResolvedAt.Sub(rec.Timestamp).Minutes()
	}

	rate = int(math.Round(float64(resolved) / float64(len(records)) * 100))
	if timed == 0 {
		return rate, DefaultResolutionMinutes
	}
	return rate, int(math.Round(totalMinutes / float64(timed)))
}

func impactMetrics(records []ClassifiedRecord) ImpactMetrics {
	m := ImpactMetrics{
		TotalAnalyses:   len(records),
		AnalysesByModel: make(map[string]int),
	}
	if len(records) == 0 {
		return m
	}

	users := make(map[uint]struct{})
	var critical int
	var processing float64
	for _, rec := range records {
		if rec.UserID != nil {
			users[*rec.UserID] = struct{}{}
		}
		if rec.Severity == SeverityCritical {
			critical++
		}
		if rec.Status != StatusResolved {
			m.OpenIssues++
		}
		if rec.ModelID != "" {
			m.AnalysesByModel[rec.ModelID]++
		}
		processing += rec.ProcessingTime
	}

	m.AffectedUsers = len(users)
	m.CriticalRate = int(math.Round(float64(critical) / float64(len(records)) * 100))
	m.AverageProcessingTime = math.Round(processing/float64(len(records))*100) / 100
	return m
}

func topPatterns(all []ErrorPattern, start, end time.Time, limit int) []ErrorPattern {
	selected := make([]ErrorPattern, 0, len(all))
	for _, p := range all {
		if p.LastOccurred.Before(start) || p.LastOccurred.After(end) {
			continue
		}
		selected = append(selected, p)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Frequency != selected[j].Frequency {
			return selected[i].Frequency > selected[j].Frequency
		}
		return selected[i].Name < selected[j].Name
	})
	if len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}
