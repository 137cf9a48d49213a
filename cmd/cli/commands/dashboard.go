package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/tail-temps/pkg/core/countdown"
	"github.com/jakechorley/tail-temps/pkg/core/monitor"
	"github.com/jakechorley/tail-temps/pkg/core/services"
	"github.com/jakechorley/tail-temps/pkg/core/status"
)

const clearScreen = "\033[H\033[2J"

// DashboardCmd creates the dashboard command
func DashboardCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show tonight's aircraft with status and time to next check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, _ := cmd.Flags().GetStringSlice("filter")
			watch, _ := cmd.Flags().GetBool("watch")

			filter, err := services.ParseFilter(keys)
			if err != nil {
				return err
			}

			build := func(ctx context.Context) (*services.Dashboard, error) {
				return services.BuildDashboard(ctx, app.Database, app.Weather, app.Shift, filter, app.Logger)
			}
			out := cmd.OutOrStdout()

			if !watch {
				d, err := build(app.Ctx)
				if err != nil {
					return err
				}
				renderDashboard(out, app, d)
				return nil
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m := monitor.New(monitor.Options{
				Refresh: app.Cfg.RefreshInterval(),
				Tick:    app.Cfg.TickInterval(),
				Clock:   app.Shift.Now,
			}, build, func(d *services.Dashboard) {
				fmt.Fprint(out, clearScreen)
				renderDashboard(out, app, d)
			}, app.Logger)

			return m.Run(ctx)
		},
	}

	cmd.Flags().StringSlice("filter", nil, "Only show these statuses (none, cold, normal, above, critical)")
	cmd.Flags().Bool("watch", false, "Keep refreshing until interrupted")

	return cmd
}

func renderDashboard(out io.Writer, app *AppContext, d *services.Dashboard) {
	outside := "unavailable"
	if d.OutsideTempF != nil {
		outside = fmt.Sprintf("%.0f°F", *d.OutsideTempF)
	}

	fmt.Fprintf(out, "%s%s night of %s%s   outside %s   updated %s\n\n",
		colorBold, d.Night.Station, d.Night.NightDate, colorReset, outside, d.FetchedAt.Format("15:04:05"))

	fmt.Fprintf(out, "%d aircraft:", d.Total)
	for _, key := range []status.Key{status.KeyCriticalHot, status.KeyCold, status.KeyAboveTarget, status.KeyNormal, status.KeyNoData} {
		if n := d.Counts[key]; n > 0 {
			fmt.Fprintf(out, "  %s %d", key, n)
		}
	}
	fmt.Fprint(out, "\n\n")

	if len(d.Rows) == 0 {
		fmt.Fprintln(out, "Nothing to show.")
		return
	}

	fmt.Fprintf(out, "%-10s %-12s %-10s %-8s %-22s %-10s %s\n", "Tail", "Location", "Heat", "Latest", "Status", "Next Check", "Trend")
	for _, row := range d.Rows {
		latest := "-"
		if row.Latest != nil {
			latest = fmt.Sprintf("%.1f", row.Latest.TempF)
		}
		trend := "-"
		if row.Trend != nil && row.Trend.RatePerHour != nil {
			trend = fmt.Sprintf("%+.1f°F/h", *row.Trend.RatePerHour)
		}
		fmt.Fprintf(out, "%-10s %-12s %-10s %-8s %-22s %-10s %s\n",
			row.Record.TailNumber, orDash(row.Record.Location), orDash(row.Record.HeatSource),
			latest, statusBadge(row.Status), formatDue(row.Due), trend)
	}
	fmt.Fprintln(out)
}

// formatDue renders the time to the next check as MM:SS, or OVERDUE
func formatDue(due countdown.Due) string {
	if due.Overdue() {
		return colorRed + "OVERDUE" + colorReset
	}
	secs := int(due.Remaining.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
