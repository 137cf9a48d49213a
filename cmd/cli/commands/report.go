package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/core/report"
	"github.com/jakechorley/tail-temps/pkg/core/services"
)

// ReportCmd creates the report command
func ReportCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize archived nights over a date range",
		Long: `Summarize archived aircraft nights between --start and --end (YYYY-MM-DD, inclusive).
Without dates the previous complete period of --period (an RRULE, default
from reportPeriod in the config) is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			period, _ := cmd.Flags().GetString("period")
			tail, _ := cmd.Flags().GetString("tail")
			csvPath, _ := cmd.Flags().GetString("csv")
			xlsxPath, _ := cmd.Flags().GetString("xlsx")
			publish, _ := cmd.Flags().GetBool("publish")
			details, _ := cmd.Flags().GetBool("details")

			if start == "" && end == "" {
				if period == "" {
					period = app.Cfg.ReportPeriod
				}
				var err error
				start, end, err = services.ReportPeriod(period, app.Shift)
				if err != nil {
					return err
				}
				app.Logger.Debug("Using previous report period", zap.String("start", start), zap.String("end", end))
			}

			r, err := services.RunReport(app.Ctx, app.Database, app.Shift.Resolver.Location(), services.ReportParams{
				Station:    app.Shift.Station,
				StartDate:  start,
				EndDate:    end,
				TailNumber: tail,
			}, app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printReport(out, r)
			if details {
				printDetails(out, app, r)
			}

			if csvPath != "" {
				if err := writeReportFile(csvPath, r.Params, "csv", func(w io.Writer) error {
					return report.WriteCSV(w, r.Summaries)
				}, out); err != nil {
					return err
				}
			}

			if xlsxPath != "" {
				if err := writeReportFile(xlsxPath, r.Params, "xlsx", func(w io.Writer) error {
					return report.WriteXLSX(w, r.Title(), r.Summaries, r.Totals)
				}, out); err != nil {
					return err
				}
			}

			if publish {
				if app.OpenSheets == nil {
					return fmt.Errorf("sheets publishing is not configured")
				}
				writer, err := app.OpenSheets(app.Ctx)
				if err != nil {
					return fmt.Errorf("failed to connect to sheets: %w", err)
				}
				title, err := services.PublishReport(app.Ctx, writer, r, app.Logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Published to sheet tab %q\n\n", title)
			}

			return nil
		},
	}

	cmd.Flags().String("start", "", "First night to include (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Last night to include (YYYY-MM-DD)")
	cmd.Flags().String("period", "", "RRULE whose previous complete period is reported when no dates are given")
	cmd.Flags().String("tail", "", "Only include this tail number")
	cmd.Flags().String("csv", "", "Write the summary as CSV to this path (a directory gets the default file name)")
	cmd.Flags().String("xlsx", "", "Write the summary as an Excel workbook to this path")
	cmd.Flags().Bool("publish", false, "Publish the summary to the configured spreadsheet")
	cmd.Flags().Bool("details", false, "Print per-night readings, notes and fleet highlights")

	return cmd
}

func printReport(out io.Writer, r *services.Report) {
	fmt.Fprintf(out, "\n%s%s%s\n\n", colorBold, r.Title(), colorReset)

	if len(r.Summaries) == 0 {
		fmt.Fprintln(out, "No archived aircraft in this range.")
		fmt.Fprintln(out)
		return
	}

	fmt.Fprintf(out, "%-10s %-28s %-10s %-8s %-26s %s\n", "Tail", "Date", "Heat", "Avg °F", "Purged", "Recorded By")
	for _, s := range r.Summaries {
		fmt.Fprintf(out, "%-10s %-28s %-10s %-8s %-26s %s\n",
			s.TailNumber, s.DateLabel, orDash(s.HeatSource), orDash(report.FormatAverage(s.AverageTemp)), s.PurgedStatus, orDash(s.RecordedBy))
	}

	fmt.Fprintf(out, "\nTotal aircraft: %d   Purged: %d   Fleet average: %s\n",
		r.Totals.TotalTails, r.Totals.PurgedCount, orDash(report.FormatAverage(r.Totals.AverageTemp)))
	if r.Params.TailNumber != "" && len(r.TailOptions) > 1 {
		fmt.Fprintf(out, "%sOther tails in range: %d%s\n", colorDim, len(r.TailOptions)-1, colorReset)
	}
	fmt.Fprintln(out)
}

func printDetails(out io.Writer, app *AppContext, r *services.Report) {
	for _, d := range r.Details {
		fmt.Fprintf(out, "%s%s%s  %s  %s\n", colorBold, d.Record.TailNumber, colorReset, d.Record.NightDate, statusBadge(d.Status))
		for _, log := range d.Logs {
			fmt.Fprintf(out, "  %s  %.1f°F  %s\n", clockTime(app, &log.RecordedAt), log.TempF, orDash(log.RecordedBy))
		}
		for _, note := range d.Notes {
			fmt.Fprintf(out, "  %s  note: %s\n", clockTime(app, &note.CreatedAt), note.Text)
		}
		if d.Trend != nil && d.Trend.RatePerHour != nil {
			fmt.Fprintf(out, "  trend %+.1f°F/h over %.1fh\n", *d.Trend.RatePerHour, d.Trend.DurationHours)
		}
	}

	fleet := r.Fleet
	fmt.Fprintf(out, "\nFleet: %d aircraft, %d purged, %d not purged, average %s\n",
		fleet.TotalAircraft, fleet.PurgedCount, fleet.NotPurged, orDash(report.FormatAverage(fleet.AverageTemp)))
	if fleet.Highest != nil && fleet.Highest.Trend != nil {
		fmt.Fprintf(out, "Highest latest:  %s at %.1f°F\n", fleet.Highest.Record.TailNumber, fleet.Highest.Trend.Latest)
	}
	if fleet.FastestRise != nil && fleet.FastestRise.Trend != nil && fleet.FastestRise.Trend.RatePerHour != nil {
		fmt.Fprintf(out, "Fastest rise:    %s at %+.1f°F/h\n", fleet.FastestRise.Record.TailNumber, *fleet.FastestRise.Trend.RatePerHour)
	}
	fmt.Fprintln(out)
}

// writeReportFile writes an export, naming it after the range when path is a directory
func writeReportFile(path string, params services.ReportParams, ext string, write func(w io.Writer) error, out io.Writer) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		name := report.CSVFileName(params.Station, params.StartDate, params.EndDate)
		if ext != "csv" {
			name = name[:len(name)-len(filepath.Ext(name))] + "." + ext
		}
		path = filepath.Join(path, name)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	fmt.Fprintf(out, "✓ Wrote %s\n", path)
	return nil
}
