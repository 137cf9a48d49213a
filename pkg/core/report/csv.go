package report

import (
	"fmt"
	"io"
	"strings"
)

// CSVHeader is the fixed column order of the report export
var CSVHeader = []string{
	"Tail Number",
	"Date Range",
	"Heat Source",
	"Average Temperature (°F)",
	"Recorded By",
	"Purged Status",
}

// CSVRows converts summaries into export rows, header first
func CSVRows(summaries []TailSummary) [][]string {
	rows := make([][]string, 0, len(summaries)+1)
	rows = append(rows, CSVHeader)
	for _, s := range summaries {
		rows = append(rows, []string{
			s.TailNumber,
			s.DateLabel,
			s.HeatSource,
			FormatAverage(s.AverageTemp),
			s.RecordedBy,
			s.PurgedStatus,
		})
	}
	return rows
}

// FormatAverage renders an average to one decimal place, or "" when absent
func FormatAverage(avg *float64) string {
	if avg == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *avg)
}

// EncodeCSV renders summaries as CSV. Every field is double-quoted, embedded
// quotes are doubled, and rows are joined by "\n" with no trailing newline.
func EncodeCSV(summaries []TailSummary) string {
	rows := CSVRows(summaries)
	lines := make([]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = quoteField(cell)
		}
		lines[i] = strings.Join(cells, ",")
	}
	return strings.Join(lines, "\n")
}

// WriteCSV writes EncodeCSV output to w
func WriteCSV(w io.Writer, summaries []TailSummary) error {
	if _, err := io.WriteString(w, EncodeCSV(summaries)); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// CSVFileName is the download name for a report over a date range
func CSVFileName(station, startDate, endDate string) string {
	return fmt.Sprintf("%s-aircraft-temps-report-%s-to-%s.csv", strings.ToLower(station), startDate, endDate)
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
