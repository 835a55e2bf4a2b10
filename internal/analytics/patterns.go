package analytics

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// DefaultTrendWindow is the length of the current and preceding windows
// compared when recomputing a pattern's trend.
const DefaultTrendWindow = 7 * 24 * time.Hour

// PatternSignature pairs a canonical pattern name with the regexp that detects it.
type PatternSignature struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultCatalogue is the fixed, ordered list of known failure signatures.
var DefaultCatalogue = []PatternSignature{
	{"Memory allocation failure", regexp.MustCompile(`(?i)memory allocation|out of memory|cannot allocate|heap exhaust|\boom\b`)},
	{"Connection timeout", regexp.MustCompile(`(?i)connection time[d]? ?out|timed out|connect(ion)? timeout|ETIMEDOUT`)},
	{"Null reference", regexp.MustCompile(`(?i)null pointer|nil pointer|null reference|nullreferenceexception|undefined is not|cannot read propert`)},
	{"Permission denied", regexp.MustCompile(`(?i)permission denied|access denied|EACCES|not permitted`)},
	{"Rate limit exceeded", regexp.MustCompile(`(?i)rate limit|too many requests|\b429\b|throttl`)},
	{"Invalid configuration", regexp.MustCompile(`(?i)invalid config|misconfigur|configuration error|missing config`)},
	{"Database error", regexp.MustCompile(`(?i)database|sql error|query failed|deadlock detected|constraint violation`)},
}

// PatternMatch is one catalogue hit within a text.
type PatternMatch struct {
	Name    string `json:"name"`
	Excerpt string `json:"excerpt"`
}

// PatternStore holds ErrorPattern state shared across requests.
// Upsert must be atomic per pattern name.
type PatternStore interface {
	Upsert(ctx context.Context, name string, at time.Time) (ErrorPattern, error)
	List(ctx context.Context) ([]ErrorPattern, error)
}

// Detector scans text against a catalogue and records matches in a PatternStore.
type Detector struct {
	catalogue []PatternSignature
	store     PatternStore
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithCatalogue replaces the default signature catalogue.
func WithCatalogue(catalogue []PatternSignature) DetectorOption {
	return func(d *Detector) {
		if len(catalogue) > 0 {
			d.catalogue = catalogue
		}
	}
}

// NewDetector creates a Detector writing to store.
func NewDetector(store PatternStore, opts ...DetectorOption) *Detector {
	d := &Detector{
		catalogue: DefaultCatalogue,
		store:     store,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Store returns the pattern store the detector writes to.
func (d *Detector) Store() PatternStore {
	return d.store
}

// Match reports every catalogue entry found in text without touching the store.
// Unlike classification, matching is additive: one text may hit several entries.
func (d *Detector) Match(text string) []PatternMatch {
	var matches []PatternMatch
	for _, sig := range d.catalogue {
		if loc := sig.Pattern.FindStringIndex(text); loc != nil {
			matches = append(matches, PatternMatch{
				Name:    sig.Name,
				Excerpt: text[loc[0]:loc[1]],
			})
		}
	}
	return matches
}

// Detect matches text and upserts each hit into the store at the given instant.
func (d *Detector) Detect(ctx context.Context, text string, at time.Time) ([]PatternMatch, error) {
	matches := d.Match(text)
	for i, m := range matches {
		if _, err := d.store.Upsert(ctx, m.Name, at); err != nil {
			return matches[:i], fmt.Errorf("upsert pattern %q: %w", m.Name, err)
		}
	}
	return matches, nil
}

// ComputeTrend compares the hits in (at-window, at] with those in the
// preceding window of equal length.
func ComputeTrend(hits []time.Time, at time.Time, window time.Duration) PatternTrend {
	currentStart := at.Add(-window)
	previousStart := at.Add(-2 * window)

	var current, previous int
	for _, h := range hits {
		switch {
		case h.After(currentStart) && !h.After(at):
			current++
		case h.After(previousStart) && !h.After(currentStart):
			previous++
		}
	}

	switch {
	case current > previous:
		return TrendIncreasing
	case current < previous:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
