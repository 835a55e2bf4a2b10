package analytics

import (
	"errors"
	"testing"
	"time"
)

func TestResolveRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		token     string
		wantStart time.Time
	}{
		{"24h", now.Add(-24 * time.Hour)},
		{"7d", now.AddDate(0, 0, -7)},
		{"30d", now.AddDate(0, 0, -30)},
		{"90d", now.AddDate(0, 0, -90)},
		{"all", time.Unix(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			start, end, err := ResolveRange(tt.token, now)
			if err != nil {
				t.Fatalf("ResolveRange(%q) error = %v", tt.token, err)
			}
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %v, expected %v", start, tt.wantStart)
			}
			if !end.Equal(now) {
				t.Errorf("end = %v, expected %v", end, now)
			}
		})
	}
}

func TestResolveRange_Invalid(t *testing.T) {
	for _, token := range []string{"", "1y", "7D", "week"} {
		_, _, err := ResolveRange(token, time.Now())
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("ResolveRange(%q) error = %v, expected ErrInvalidRange", token, err)
		}
		var rangeErr *InvalidRangeError
		if !errors.As(err, &rangeErr) || rangeErr.Token != token {
			t.Errorf("ResolveRange(%q) should return *InvalidRangeError carrying the token", token)
		}
	}
}

func classifiedAt(ts time.Time, severity Severity) ClassifiedRecord {
	return ClassifiedRecord{AnalysisRecord: AnalysisRecord{Timestamp: ts}, Severity: severity}
}

func TestBucketByDay_LengthMatchesDays(t *testing.T) {
	end := time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC)
	for _, token := range []string{"24h", "7d", "30d", "90d"} {
		start, _, _ := ResolveRange(token, end)
		want := DaysInRange(start, end, time.UTC)

		empty := BucketByDay(nil, start, end, time.UTC)
		if len(empty) != want {
			t.Errorf("%s empty series length = %d, expected %d", token, len(empty), want)
		}

		records := []ClassifiedRecord{classifiedAt(end, SeverityHigh), classifiedAt(start, SeverityLow)}
		full := BucketByDay(records, start, end, time.UTC)
		if len(full) != want {
			t.Errorf("%s series length = %d, expected %d", token, len(full), want)
		}
	}
}

func TestBucketByDay_ZeroFillAndOrder(t *testing.T) {
	start := time.Date(2024, 2, 27, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	records := []ClassifiedRecord{
		classifiedAt(time.Date(2024, 2, 27, 23, 59, 0, 0, time.UTC), SeverityCritical),
		classifiedAt(time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC), SeverityMedium),
		classifiedAt(time.Date(2024, 3, 2, 2, 0, 0, 0, time.UTC), SeverityMedium),
		classifiedAt(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), SeverityHigh),
	}

	series := BucketByDay(records, start, end, time.UTC)
	wantDates := []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}
	if len(series) != len(wantDates) {
		t.Fatalf("series length = %d, expected %d", len(series), len(wantDates))
	}
	for i, d := range wantDates {
		if series[i].Date != d {
			t.Errorf("series[%d].Date = %q, expected %q", i, series[i].Date, d)
		}
	}
	if series[0].Critical != 1 {
		t.Errorf("first day critical = %d, expected 1", series[0].Critical)
	}
	for i := 1; i <= 3; i++ {
		if series[i].Total() != 0 {
			t.Errorf("series[%d] should be zero-filled, got %+v", i, series[i])
		}
	}
	if series[4].Medium != 2 {
		t.Errorf("last day medium = %d, expected 2", series[4].Medium)
	}
}

func TestBucketByDay_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	ts := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC) // 2024-01-02 04:00 in UTC+8
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	end := time.Date(2024, 1, 2, 23, 0, 0, 0, loc)

	series := BucketByDay([]ClassifiedRecord{classifiedAt(ts, SeverityLow)}, start, end, loc)
	if len(series) != 2 {
		t.Fatalf("series length = %d, expected 2", len(series))
	}
	if series[1].Low != 1 {
		t.Errorf("record should land on 2024-01-02 in UTC+8, got %+v", series)
	}
}

func TestBucketByHour(t *testing.T) {
	records := []ClassifiedRecord{
		classifiedAt(time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC), SeverityLow),
		classifiedAt(time.Date(2024, 1, 5, 0, 45, 0, 0, time.UTC), SeverityLow),
		classifiedAt(time.Date(2024, 1, 3, 23, 0, 0, 0, time.UTC), SeverityLow),
	}

	hours := BucketByHour(records, time.UTC)
	if len(hours) != 24 {
		t.Fatalf("histogram length = %d, expected 24", len(hours))
	}
	if hours[0] != 2 || hours[23] != 1 {
		t.Errorf("hours[0] = %d, hours[23] = %d, expected 2 and 1", hours[0], hours[23])
	}

	empty := BucketByHour(nil, time.UTC)
	for h, n := range empty {
		if n != 0 {
			t.Errorf("empty histogram hour %d = %d", h, n)
		}
	}
}
