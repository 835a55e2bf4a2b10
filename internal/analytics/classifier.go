package analytics

import "regexp"

type severityRule struct {
	pattern  *regexp.Regexp
	severity Severity
}

type issueTypeRule struct {
	pattern   *regexp.Regexp
	issueType IssueType
}

// Evaluated top to bottom; the first match wins. Reordering changes
// historical reports.
var severityRules = []severityRule{
	{regexp.MustCompile(`(?i)critical|crash|fatal|deadlock|exception`), SeverityCritical},
	{regexp.MustCompile(`(?i)error|fail|problem`), SeverityHigh},
	{regexp.MustCompile(`(?i)warning|potential|might|could`), SeverityMedium},
}

var issueTypeRules = []issueTypeRule{
	{regexp.MustCompile(`(?i)memory leak|out of memory|memory allocation|heap exhaust|\boom\b`), IssueMemoryLeak},
	{regexp.MustCompile(`(?i)runtime|exception|panic|null pointer|nil pointer|undefined|segfault`), IssueRuntimeError},
	{regexp.MustCompile(`(?i)syntax|parse error|unexpected token|compil`), IssueSyntaxError},
	{regexp.MustCompile(`(?i)logic|incorrect|wrong result|off-by-one|race condition`), IssueLogicError},
	{regexp.MustCompile(`(?i)performance|slow|latency|bottleneck|high cpu`), IssuePerformance},
	{regexp.MustCompile(`(?i)network|connection|socket|dns|unreachable|timeout`), IssueNetworkError},
}

// Classify maps analysis text to an issue type and severity.
// Unmatched or empty text yields (Runtime Error, Low).
func Classify(text string) (IssueType, Severity) {
	return classifyIssueType(text), classifySeverity(text)
}

func classifySeverity(text string) Severity {
	for _, r := range severityRules {
		if r.pattern.MatchString(text) {
			return r.severity
		}
	}
	return SeverityLow
}

func classifyIssueType(text string) IssueType {
	for _, r := range issueTypeRules {
		if r.pattern.MatchString(text) {
			return r.issueType
		}
	}
	return IssueRuntimeError
}

// ClassifyRecord attaches the computed labels to a record.
func ClassifyRecord(rec AnalysisRecord) ClassifiedRecord {
	issueType, severity := Classify(rec.TechnicalAnalysis)
	return ClassifiedRecord{
		AnalysisRecord: rec,
		IssueType:      issueType,
		Severity:       severity,
	}
}
