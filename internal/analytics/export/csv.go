package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/huangang/issuepulse/internal/analytics"
)

// TrendHeader is the header row shared by the tabular formats.
var TrendHeader = []string{"Date", "Critical", "High", "Medium", "Low"}

// CSVEncoder writes only the daily trend series; other snapshot fields are
// not part of the CSV layout.
type CSVEncoder struct{}

func (CSVEncoder) Name() string        { return "csv" }
func (CSVEncoder) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVEncoder) Extension() string   { return "csv" }

func (CSVEncoder) Encode(w io.Writer, snapshot *analytics.AnalyticsSnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TrendHeader); err != nil {
		return err
	}
	for _, p := range snapshot.TrendData {
		if err := cw.Write(trendRow(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func trendRow(p analytics.TimeSeriesPoint) []string {
	return []string{
		p.Date,
		strconv.Itoa(p.Critical),
		strconv.Itoa(p.High),
		strconv.Itoa(p.Medium),
		strconv.Itoa(p.Low),
	}
}
