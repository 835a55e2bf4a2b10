package analytics

import "time"

// DateLayout is the calendar-day format used in time series.
const DateLayout = "2006-01-02"

// Range tokens accepted by ResolveRange.
const (
	Range24h = "24h"
	Range7d  = "7d"
	Range30d = "30d"
	Range90d = "90d"
	RangeAll = "all"
)

// RangeTokens is the fixed range vocabulary.
var RangeTokens = []string{Range24h, Range7d, Range30d, Range90d, RangeAll}

// ResolveRange turns a range token into absolute bounds ending at now.
func ResolveRange(token string, now time.Time) (time.Time, time.Time, error) {
	switch token {
	case Range24h:
		return now.Add(-24 * time.Hour), now, nil
	case Range7d:
		return now.AddDate(0, 0, -7), now, nil
	case Range30d:
		return now.AddDate(0, 0, -30), now, nil
	case Range90d:
		return now.AddDate(0, 0, -90), now, nil
	case RangeAll:
		return time.Unix(0, 0).In(now.Location()), now, nil
	default:
		return time.Time{}, time.Time{}, &InvalidRangeError{Token: token}
	}
}

// ValidRange reports whether token is part of the range vocabulary.
func ValidRange(token string) bool {
	_, _, err := ResolveRange(token, time.Now())
	return err == nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysInRange counts the calendar days from start to end inclusive.
func DaysInRange(start, end time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	first, last := startOfDay(start, loc), startOfDay(end, loc)
	if last.Before(first) {
		return 0
	}
	n := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// BucketByDay returns one point per calendar day from start to end inclusive,
// in ascending order. Days without records are zero-filled; records outside
// the days are ignored.
func BucketByDay(records []ClassifiedRecord, start, end time.Time, loc *time.Location) []TimeSeriesPoint {
	if loc == nil {
		loc = time.UTC
	}
	first, last := startOfDay(start, loc), startOfDay(end, loc)
	if last.Before(first) {
		return []TimeSeriesPoint{}
	}

	var series []TimeSeriesPoint
	index := make(map[string]int)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		index[key] = len(series)
		series = append(series, TimeSeriesPoint{Date: key})
	}

	for _, rec := range records {
		i, ok := index[rec.Timestamp.In(loc).Format(DateLayout)]
		if !ok {
			continue
		}
		switch rec.Severity {
		case SeverityCritical:
			series[i].Critical++
		case SeverityHigh:
			series[i].High++
		case SeverityMedium:
			series[i].Medium++
		default:
			series[i].Low++
		}
	}
	return series
}

// BucketByHour builds a 24-slot hour-of-day histogram across all dates.
func BucketByHour(records []ClassifiedRecord, loc *time.Location) []int {
	if loc == nil {
		loc = time.UTC
	}
	hours := make([]int, 24)
	for _, rec := range records {
		hours[rec.Timestamp.In(loc).Hour()]++
	}
	return hours
}
