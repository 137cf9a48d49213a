package services

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/clients/sheetsclient"
	"github.com/jakechorley/tail-temps/pkg/core/report"
)

// ReportSheetWriter writes a laid-out report to a spreadsheet tab
type ReportSheetWriter interface {
	WriteReportTab(ctx context.Context, tab *sheetsclient.ReportTab) error
}

// PublishReport writes the report summary rows and totals to a tab named
// after the station and date range, and returns the tab title
func PublishReport(ctx context.Context, writer ReportSheetWriter, r *Report, logger *zap.Logger) (string, error) {
	tab := BuildReportTab(r)

	logger.Info("Publishing report", zap.String("tab", tab.Title), zap.Int("rows", len(tab.Rows)))

	if err := writer.WriteReportTab(ctx, tab); err != nil {
		return "", fmt.Errorf("failed to publish report: %w", err)
	}

	logger.Info("Report published", zap.String("tab", tab.Title))
	return tab.Title, nil
}

// BuildReportTab lays a report out for a spreadsheet tab
func BuildReportTab(r *Report) *sheetsclient.ReportTab {
	rows := report.CSVRows(r.Summaries)

	fleetAvg := report.FormatAverage(r.Totals.AverageTemp)
	if fleetAvg == "" {
		fleetAvg = report.Placeholder
	}

	return &sheetsclient.ReportTab{
		Title:   sheetsclient.TabTitle(r.Params.Station, r.Params.StartDate, r.Params.EndDate),
		Heading: r.Title(),
		Header:  rows[0],
		Rows:    rows[1:],
		Totals: [][]string{
			{"Total Aircraft", strconv.Itoa(r.Totals.TotalTails)},
			{"Purged", strconv.Itoa(r.Totals.PurgedCount)},
			{"Fleet Average (°F)", fleetAvg},
		},
	}
}
