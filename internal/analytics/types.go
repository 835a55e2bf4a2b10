package analytics

import "time"

// Status is the resolution state of an analysis.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// Statuses lists every valid Status.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved}

// IssueType is the category assigned by the classifier.
type IssueType string

const (
	IssueMemoryLeak   IssueType = "Memory Leak"
	IssueRuntimeError IssueType = "Runtime Error"
	IssueSyntaxError  IssueType = "Syntax Error"
	IssueLogicError   IssueType = "Logic Error"
	IssuePerformance  IssueType = "Performance Issue"
	IssueNetworkError IssueType = "Network Error"
)

// IssueTypes lists every issue type in classifier priority order.
var IssueTypes = []IssueType{
	IssueMemoryLeak,
	IssueRuntimeError,
	IssueSyntaxError,
	IssueLogicError,
	IssuePerformance,
	IssueNetworkError,
}

// Severity is the urgency label assigned by the classifier.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Severities lists every severity from most to least urgent.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// PatternTrend describes how often an error pattern is recurring lately.
type PatternTrend string

const (
	TrendNew        PatternTrend = "new"
	TrendIncreasing PatternTrend = "increasing"
	TrendStable     PatternTrend = "stable"
	TrendDecreasing PatternTrend = "decreasing"
)

// AnalysisRecord is a single analyzed submission as read from the record source.
type AnalysisRecord struct {
	ID                uint       `json:"id"`
	Timestamp         time.Time  `json:"timestamp"`
	UserID            *uint      `json:"userId,omitempty"`
	TechnicalAnalysis string     `json:"technicalAnalysis"`
	Status            Status     `json:"status"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
	ModelID           string     `json:"modelId"`
	ProcessingTime    float64    `json:"processingTime"` // seconds
}

// ClassifiedRecord is an AnalysisRecord with its computed labels.
type ClassifiedRecord struct {
	AnalysisRecord
	IssueType IssueType `json:"issueType"`
	Severity  Severity  `json:"severity"`
}

// ErrorPattern is the recurrence state of one catalogue signature.
type ErrorPattern struct {
	Name         string       `json:"name"`
	Frequency    int64        `json:"frequency"`
	LastOccurred time.Time    `json:"lastOccurred"`
	Trend        PatternTrend `json:"trend"`
}

// TimeSeriesPoint holds the per-severity counts of one calendar day.
type TimeSeriesPoint struct {
	Date     string `json:"date"`
	Critical int    `json:"critical"`
	High     int    `json:"high"`
	Medium   int    `json:"medium"`
	Low      int    `json:"low"`
}

// Total returns the number of records counted in the point.
func (p TimeSeriesPoint) Total() int {
	return p.Critical + p.High + p.Medium + p.Low
}

// Projection is a forecast point beyond the last historical day.
type Projection struct {
	Date         string  `json:"date"`
	Critical     float64 `json:"critical"`
	High         float64 `json:"high"`
	Medium       float64 `json:"medium"`
	Low          float64 `json:"low"`
	IsProjection bool    `json:"isProjection"`
}

// SeverityTrends are the per-severity day-over-day slopes used by a projection.
type SeverityTrends struct {
	Critical float64 `json:"critical"`
	High     float64 `json:"high"`
	Medium   float64 `json:"medium"`
	Low      float64 `json:"low"`
}

// ProjectionResult is the output of Project.
type ProjectionResult struct {
	Historical []TimeSeriesPoint `json:"historical"`
	Projected  []Projection      `json:"projected"`
	Trends     SeverityTrends    `json:"trends"`
}

// ImpactMetrics summarizes the reach of the issues in a snapshot.
type ImpactMetrics struct {
	TotalAnalyses         int            `json:"totalAnalyses"`
	AffectedUsers         int            `json:"affectedUsers"`
	CriticalRate          int            `json:"criticalRate"`
	OpenIssues            int            `json:"openIssues"`
	AverageProcessingTime float64        `json:"averageProcessingTime"`
	AnalysesByModel       map[string]int `json:"analysesByModel"`
}

// AnalyticsSnapshot is the aggregate answer for one time window and filter.
type AnalyticsSnapshot struct {
	Range                 string            `json:"range"`
	StartDate             time.Time         `json:"startDate"`
	EndDate               time.Time         `json:"endDate"`
	TotalRecords          int               `json:"totalRecords"`
	IssuesByType          map[string]int    `json:"issuesByType"`
	IssuesBySeverity      map[string]int    `json:"issuesBySeverity"`
	TrendData             []TimeSeriesPoint `json:"trendData"`
	HourlyDistribution    []int             `json:"hourlyDistribution"`
	ResolutionRate        int               `json:"resolutionRate"`
	AverageResolutionTime int               `json:"averageResolutionTime"` // minutes
	TopErrorPatterns      []ErrorPattern    `json:"topErrorPatterns"`
	ImpactMetrics         ImpactMetrics     `json:"impactMetrics"`
	GeneratedAt           time.Time         `json:"generatedAt"`
}
