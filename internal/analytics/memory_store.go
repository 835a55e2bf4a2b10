package analytics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryPatternStore keeps pattern state in process memory.
type MemoryPatternStore struct {
	window  time.Duration
	mu      sync.RWMutex
	entries map[string]*memoryPattern
}

type memoryPattern struct {
	mu      sync.Mutex
	pattern ErrorPattern
	hits    []time.Time
}

// NewMemoryPatternStore creates an empty store. A non-positive window
// falls back to DefaultTrendWindow.
func NewMemoryPatternStore(window time.Duration) *MemoryPatternStore {
	if window <= 0 {
		window = DefaultTrendWindow
	}
	return &MemoryPatternStore{
		window:  window,
		entries: make(map[string]*memoryPattern),
	}
}

func (s *MemoryPatternStore) entry(name string) *memoryPattern {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[name]; !ok {
		e = &memoryPattern{pattern: ErrorPattern{Name: name}}
		s.entries[name] = e
	}
	return e
}

// Upsert records one occurrence of name at the given instant.
func (s *MemoryPatternStore) Upsert(ctx context.Context, name string, at time.Time) (ErrorPattern, error) {
	if err := ctx.Err(); err != nil {
		return ErrorPattern{}, err
	}

	e := s.entry(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pattern.Frequency == 0 {
		e.pattern.Frequency = 1
		e.pattern.LastOccurred = at
		e.pattern.Trend = TrendNew
		e.hits = []time.Time{at}
		return e.pattern, nil
	}

	e.pattern.Frequency++
	if at.After(e.pattern.LastOccurred) {
		e.pattern.LastOccurred = at
	}
	// A late hit can land in the windows but never moves them back in time.
	e.hits = pruneHits(append(e.hits, at), e.pattern.LastOccurred.Add(-2*s.window))
	e.pattern.Trend = ComputeTrend(e.hits, e.pattern.LastOccurred, s.window)
	return e.pattern, nil
}

// List returns a copy of every known pattern ordered by name.
func (s *MemoryPatternStore) List(ctx context.Context) ([]ErrorPattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := make([]*memoryPattern, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	patterns := make([]ErrorPattern, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.pattern.Frequency > 0 {
			patterns = append(patterns, e.pattern)
		}
		e.mu.Unlock()
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Name < patterns[j].Name })
	return patterns, nil
}

// pruneHits drops hits at or before cutoff; they can no longer affect a trend.
func pruneHits(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, h := range hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}
	return kept
}
