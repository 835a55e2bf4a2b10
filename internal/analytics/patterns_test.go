package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDetector_Match(t *testing.T) {
	d := NewDetector(NewMemoryPatternStore(0))

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"memory scenario", "Critical: memory allocation error, out of memory", []string{"Memory allocation failure"}},
		{"no match", "all checks passed", nil},
		{"additive", "connection timed out while the database query failed", []string{"Connection timeout", "Database error"}},
		{"permission", "open /etc/app.yaml: permission denied", []string{"Permission denied"}},
		{"rate limit", "upstream returned 429 Too Many Requests", []string{"Rate limit exceeded"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Match(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Match(%q) returned %d matches, expected %d: %+v", tt.text, len(got), len(tt.want), got)
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("match[%d] = %q, expected %q", i, got[i].Name, name)
				}
				if got[i].Excerpt == "" {
					t.Errorf("match[%d] has empty excerpt", i)
				}
			}
		})
	}
}

func TestDetector_MatchHasNoSideEffects(t *testing.T) {
	store := NewMemoryPatternStore(0)
	d := NewDetector(store)
	d.Match("out of memory")

	patterns, _ := store.List(context.Background())
	if len(patterns) != 0 {
		t.Errorf("Match should not write to the store, got %d patterns", len(patterns))
	}
}

func TestDetector_DetectUpserts(t *testing.T) {
	store := NewMemoryPatternStore(0)
	d := NewDetector(store)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	matches, err := d.Detect(ctx, "Critical: memory allocation error, out of memory", now)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "Memory allocation failure" {
		t.Fatalf("Detect() matches = %+v", matches)
	}

	patterns, _ := store.List(ctx)
	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	p := patterns[0]
	if p.Frequency != 1 || p.Trend != TrendNew || !p.LastOccurred.Equal(now) {
		t.Errorf("new pattern = %+v, expected frequency 1, trend new, lastOccurred %v", p, now)
	}

	if _, err := d.Detect(ctx, "out of memory again", now.Add(time.Hour)); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	patterns, _ = store.List(ctx)
	if patterns[0].Frequency != 2 {
		t.Errorf("Frequency = %d, expected 2", patterns[0].Frequency)
	}
	if !patterns[0].LastOccurred.Equal(now.Add(time.Hour)) {
		t.Errorf("LastOccurred = %v, expected %v", patterns[0].LastOccurred, now.Add(time.Hour))
	}
}

type failingStore struct{}

func (failingStore) Upsert(context.Context, string, time.Time) (ErrorPattern, error) {
	return ErrorPattern{}, errors.New("store unavailable")
}
func (failingStore) List(context.Context) ([]ErrorPattern, error) { return nil, nil }

func TestDetector_DetectStoreError(t *testing.T) {
	d := NewDetector(failingStore{})
	_, err := d.Detect(context.Background(), "permission denied", time.Now())
	if err == nil {
		t.Fatal("Detect() should surface store errors")
	}
}

func TestComputeTrend(t *testing.T) {
	at := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	window := 24 * time.Hour
	cur := at.Add(-time.Hour)
	prev := at.Add(-30 * time.Hour)
	old := at.Add(-72 * time.Hour)

	tests := []struct {
		name string
		hits []time.Time
		want PatternTrend
	}{
		{"increasing", []time.Time{prev, cur, cur}, TrendIncreasing},
		{"decreasing", []time.Time{prev, prev, cur}, TrendDecreasing},
		{"stable", []time.Time{prev, cur}, TrendStable},
		{"outside windows ignored", []time.Time{old, old, old, cur}, TrendIncreasing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeTrend(tt.hits, at, window); got != tt.want {
				t.Errorf("ComputeTrend() = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestMemoryPatternStore_TrendAcrossWindows(t *testing.T) {
	store := NewMemoryPatternStore(24 * time.Hour)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store.Upsert(ctx, "Database error", base)
	store.Upsert(ctx, "Database error", base.Add(time.Hour))
	store.Upsert(ctx, "Database error", base.Add(2*time.Hour))

	// Three hits yesterday, one today.
	p, err := store.Upsert(ctx, "Database error", base.Add(30*time.Hour))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if p.Trend != TrendDecreasing {
		t.Errorf("Trend = %q, expected %q", p.Trend, TrendDecreasing)
	}
	if p.Frequency != 4 {
		t.Errorf("Frequency = %d, expected 4", p.Frequency)
	}
}

func TestMemoryPatternStore_LateHitKeepsLatestWindow(t *testing.T) {
	store := NewMemoryPatternStore(7 * 24 * time.Hour)
	ctx := context.Background()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	store.Upsert(ctx, "Connection timeout", now)
	p, err := store.Upsert(ctx, "Connection timeout", now.AddDate(0, 0, -10))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !p.LastOccurred.Equal(now) {
		t.Errorf("LastOccurred = %v, expected %v", p.LastOccurred, now)
	}
	if p.Trend != TrendStable {
		t.Errorf("Trend = %q, expected %q", p.Trend, TrendStable)
	}

	// Too old to fall in either window.
	p, err = store.Upsert(ctx, "Connection timeout", now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if p.Trend != TrendStable || p.Frequency != 3 {
		t.Errorf("after stale hit = %+v, expected stable with frequency 3", p)
	}
}

func TestMemoryPatternStore_ConcurrentUpserts(t *testing.T) {
	store := NewMemoryPatternStore(0)
	ctx := context.Background()
	now := time.Now()

	const workers, perWorker = 16, 250
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				store.Upsert(ctx, "Connection timeout", now)
				store.Upsert(ctx, "Null reference", now)
			}
		}()
	}
	wg.Wait()

	patterns, _ := store.List(ctx)
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}
	for _, p := range patterns {
		if p.Frequency != workers*perWorker {
			t.Errorf("%s frequency = %d, expected %d", p.Name, p.Frequency, workers*perWorker)
		}
	}
}

func TestMemoryPatternStore_CanceledContext(t *testing.T) {
	store := NewMemoryPatternStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Upsert(ctx, "Database error", time.Now()); err == nil {
		t.Error("Upsert() should fail on a canceled context")
	}
}
