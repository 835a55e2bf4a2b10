package analytics

import (
	"math"
	"time"
)

// ProjectionWindow is the maximum number of trailing points used to estimate slopes.
const ProjectionWindow = 7

// Project extrapolates days points past the end of series using the mean
// day-over-day change of each severity over the trailing window.
// Projected values never drop below zero.
func Project(series []TimeSeriesPoint, days int) (*ProjectionResult, error) {
	if len(series) < 2 {
		return nil, ErrInsufficientData
	}

	window := series[len(series)-min(ProjectionWindow, len(series)):]
	trends := SeverityTrends{
		Critical: meanDelta(window, func(p TimeSeriesPoint) int { return p.Critical }),
		High:     meanDelta(window, func(p TimeSeriesPoint) int { return p.High }),
		Medium:   meanDelta(window, func(p TimeSeriesPoint) int { return p.Medium }),
		Low:      meanDelta(window, func(p TimeSeriesPoint) int { return p.Low }),
	}

	last := series[len(series)-1]
	lastDate, err := time.Parse(DateLayout, last.Date)
	if err != nil {
		return nil, err
	}

	projected := make([]Projection, 0, max(days, 0))
	for ahead := 1; ahead <= days; ahead++ {
		k := float64(ahead)
		projected = append(projected, Projection{
			Date:         lastDate.AddDate(0, 0, ahead).Format(DateLayout),
			Critical:     extrapolate(last.Critical, trends.Critical, k),
			High:         extrapolate(last.High, trends.High, k),
			Medium:       extrapolate(last.Medium, trends.Medium, k),
			Low:          extrapolate(last.Low, trends.Low, k),
			IsProjection: true,
		})
	}

	return &ProjectionResult{
		Historical: series,
		Projected:  projected,
		Trends:     trends,
	}, nil
}

func meanDelta(window []TimeSeriesPoint, value func(TimeSeriesPoint) int) float64 {
	var sum int
	for i := 1; i < len(window); i++ {
		sum += value(window[i]) - value(window[i-1])
	}
	return float64(sum) / float64(len(window)-1)
}

func extrapolate(last int, slope, daysAhead float64) float64 {
	return math.Round(math.Max(0, float64(last)+slope*daysAhead))
}
