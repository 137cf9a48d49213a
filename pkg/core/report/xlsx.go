package report

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"
)

// XLSXSheetName is the worksheet holding the summary rows
const XLSXSheetName = "Report"

// WriteXLSX writes the summary rows and a totals block as an Excel workbook
func WriteXLSX(w io.Writer, title string, summaries []TailSummary, totals Totals) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", XLSXSheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	row := 1
	if err := setRow(f, row, []any{title}); err != nil {
		return err
	}
	row += 2

	header := make([]any, len(CSVHeader))
	for i, h := range CSVHeader {
		header[i] = h
	}
	if err := setRow(f, row, header); err != nil {
		return err
	}

	for _, s := range summaries {
		row++
		var avg any = ""
		if s.AverageTemp != nil {
			avg = math.Round(*s.AverageTemp*10) / 10
		}
		if err := setRow(f, row, []any{s.TailNumber, s.DateLabel, s.HeatSource, avg, s.RecordedBy, s.PurgedStatus}); err != nil {
			return err
		}
	}

	row += 2
	fleetAvg := FormatAverage(totals.AverageTemp)
	if fleetAvg == "" {
		fleetAvg = Placeholder
	}
	summaryRows := [][]any{
		{"Total Aircraft", totals.TotalTails},
		{"Purged", totals.PurgedCount},
		{"Fleet Average (°F)", fleetAvg},
	}
	for _, values := range summaryRows {
		if err := setRow(f, row, values); err != nil {
			return err
		}
		row++
	}

	if err := f.SetColWidth(XLSXSheetName, "A", "F", 22); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetCellValue(XLSXSheetName, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}
