package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/core/night"
	"github.com/jakechorley/tail-temps/pkg/core/report"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// ReportParams selects the archived nights a report covers
type ReportParams struct {
	Station    string
	StartDate  string
	EndDate    string
	TailNumber string
}

// Report is the archive aggregation for a date range
type Report struct {
	Params      ReportParams
	Summaries   []report.TailSummary
	Totals      report.Totals
	Details     []report.NightDetail
	Fleet       report.FleetSummary
	TailOptions []string
	NoteCount   int
}

// Title is the heading used on exported reports
func (r *Report) Title() string {
	return fmt.Sprintf("%s Aircraft Temps Report: %s", r.Params.Station, report.FormatDateRange(r.Params.StartDate, r.Params.EndDate))
}

// RunReport reads archived records, logs and notes for the range and
// aggregates them. Tail options always cover every tail in the range, even
// when the report is filtered to one tail.
func RunReport(ctx context.Context, store db.ArchiveStore, loc *time.Location, params ReportParams, logger *zap.Logger) (*Report, error) {
	params.TailNumber = NormalizeTail(params.TailNumber)
	if err := validateReportParams(params); err != nil {
		return nil, err
	}

	logger.Info("Running report",
		zap.String("start_date", params.StartDate),
		zap.String("end_date", params.EndDate),
		zap.String("tail_number", params.TailNumber))

	allQuery := db.ArchiveQuery{Station: params.Station, StartDate: params.StartDate, EndDate: params.EndDate}
	allTails, err := store.GetArchivedNightRecords(ctx, allQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to get archived records: %w", err)
	}

	query := allQuery
	query.TailNumber = params.TailNumber

	tails := allTails
	if query.TailNumber != "" {
		tails = nil
		for _, t := range allTails {
			if t.TailNumber == query.TailNumber {
				tails = append(tails, t)
			}
		}
	}

	logs, err := store.GetArchivedTempLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get archived temperature logs: %w", err)
	}
	notes, err := store.GetArchivedNotes(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get archived notes: %w", err)
	}

	summaries := report.Summarize(tails, logs, loc)
	details := report.BuildNightDetails(tails, logs, notes)

	r := &Report{
		Params:      params,
		Summaries:   summaries,
		Totals:      report.ComputeTotals(tails, logs, summaries),
		Details:     details,
		Fleet:       report.SummarizeFleet(details),
		TailOptions: report.TailOptions(allTails),
		NoteCount:   len(notes),
	}

	logger.Info("Report complete",
		zap.Int("tails", r.Totals.TotalTails),
		zap.Int("nights", len(tails)),
		zap.Int("logs", len(logs)),
		zap.Int("notes", len(notes)))

	return r, nil
}

func validateReportParams(p ReportParams) error {
	if p.StartDate == "" {
		return db.NewValidationError("start_date", "is required")
	}
	if p.EndDate == "" {
		return db.NewValidationError("end_date", "is required")
	}
	start, err := night.ParseDate(p.StartDate)
	if err != nil {
		return db.NewValidationError("start_date", "%q is not a YYYY-MM-DD date", p.StartDate)
	}
	end, err := night.ParseDate(p.EndDate)
	if err != nil {
		return db.NewValidationError("end_date", "%q is not a YYYY-MM-DD date", p.EndDate)
	}
	if start.After(end) {
		return db.NewValidationError("start_date", "%s is after end date %s", p.StartDate, p.EndDate)
	}
	if p.TailNumber != "" {
		return validateTail(p.TailNumber)
	}
	return nil
}

// ReportPeriod resolves the previous complete window of the configured rrule
func ReportPeriod(rule string, shift Shift) (string, string, error) {
	start, end, err := report.PreviousPeriod(rule, shift.Now(), shift.Resolver.Location())
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve report period: %w", err)
	}
	return start, end, nil
}
