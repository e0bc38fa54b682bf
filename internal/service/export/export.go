// Package export writes the rolling series as a spreadsheet with one row per
// sample and the columns Time(s), R, G, B.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"rgbmonitor/internal/sampler"
)

const (
	SheetName    = "RGB Values"
	XLSXFilename = "rgb_values.xlsx"
	CSVFilename  = "rgb_values.csv"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	CSVContentType  = "text/csv; charset=utf-8"
)

// Header is the first row of every export.
var Header = []string{"Time(s)", "R", "G", "B"}

// WriteXLSX writes an Excel workbook with a single sheet. An empty series
// produces a header-only sheet.
func WriteXLSX(w io.Writer, samples []sampler.Sample) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, s := range samples {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := []interface{}{s.T, s.R, s.G, s.B}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes the same table as comma separated values.
func WriteCSV(w io.Writer, samples []sampler.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range samples {
		record := []string{
			strconv.Itoa(s.T),
			strconv.FormatFloat(s.R, 'f', -1, 64),
			strconv.FormatFloat(s.G, 'f', -1, 64),
			strconv.FormatFloat(s.B, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row t=%d: %w", s.T, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
