package export

import (
	"io"

	"github.com/huangang/issuepulse/internal/analytics"
	"github.com/xuri/excelize/v2"
)

// TrendSheet is the worksheet holding the trend table.
const TrendSheet = "Trends"

// XLSXEncoder writes the same table as CSVEncoder into a workbook.
type XLSXEncoder struct{}

func (XLSXEncoder) Name() string { return "xlsx" }
func (XLSXEncoder) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSXEncoder) Extension() string { return "xlsx" }

func (XLSXEncoder) Encode(w io.Writer, snapshot *analytics.AnalyticsSnapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TrendSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(TrendHeader))
	for i, h := range TrendHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(TrendSheet, "A1", &header); err != nil {
		return err
	}

	for i, p := range snapshot.TrendData {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{p.Date, p.Critical, p.High, p.Medium, p.Low}
		if err := f.SetSheetRow(TrendSheet, cell, &row); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}
