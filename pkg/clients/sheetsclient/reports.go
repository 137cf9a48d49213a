package sheetsclient

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// ReportTab is a report laid out for one spreadsheet tab
type ReportTab struct {
	Title   string // tab title, e.g. "OMA 2026-01-12 to 2026-01-18"
	Heading string // written to A1
	Header  []string
	Rows    [][]string
	Totals  [][]string
}

// TabTitle builds the tab title for a station and inclusive night-date range
func TabTitle(station, startDate, endDate string) string {
	if startDate == endDate {
		return fmt.Sprintf("%s %s", station, startDate)
	}
	return fmt.Sprintf("%s %s to %s", station, startDate, endDate)
}

// WriteReportTab writes a report to its tab. A missing tab is created; an
// existing one is cleared and rewritten so re-publishing a range is safe.
func (c *Client) WriteReportTab(ctx context.Context, tab *ReportTab) error {
	spreadsheet, err := c.service.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}

	exists := false
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == tab.Title {
			exists = true
			break
		}
	}

	if exists {
		_, err := c.service.Spreadsheets.Values.Clear(c.spreadsheetID, quoteRange(tab.Title, "A1:ZZ"), &sheets.ClearValuesRequest{}).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to clear tab %s: %w", tab.Title, err)
		}
	} else {
		if _, err := c.CreateSheet(ctx, tab.Title); err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
	}

	valueRange := &sheets.ValueRange{
		Values: tab.values(),
	}
	_, err = c.service.Spreadsheets.Values.Update(c.spreadsheetID, quoteRange(tab.Title, "A1"), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write report to tab %s: %w", tab.Title, err)
	}

	return nil
}

// values lays the tab out as heading, blank row, header, rows, blank row, totals
func (t *ReportTab) values() [][]interface{} {
	out := [][]interface{}{
		{t.Heading},
		{},
		toRow(t.Header),
	}
	for _, r := range t.Rows {
		out = append(out, toRow(r))
	}
	if len(t.Totals) > 0 {
		out = append(out, []interface{}{})
		for _, r := range t.Totals {
			out = append(out, toRow(r))
		}
	}
	return out
}

func toRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

func quoteRange(title, cells string) string {
	return fmt.Sprintf("'%s'!%s", title, cells)
}
