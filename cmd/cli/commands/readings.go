package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/tail-temps/pkg/core/services"
	"github.com/jakechorley/tail-temps/pkg/core/status"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// LogTempCmd creates the logTemp command
func LogTempCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logTemp <tail_number> <temp_f>",
		Short: "Record a cabin temperature reading in °F",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tempF, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			if err != nil {
				return db.NewValidationError("temp_f", "%q is not a number", args[1])
			}

			logged, err := services.LogTemperature(app.Ctx, app.Database, app.Events, app.Shift, args[0], tempF, app.Logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ %s: %.1f°F at %s %s\n\n",
				logged.Log.TailNumber, logged.Log.TempF, clockTime(app, &logged.Log.RecordedAt), statusBadge(logged.Status))
			return nil
		},
	}
}

// AddNoteCmd creates the addNote command
func AddNoteCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "addNote <tail_number> <text...>",
		Short: "Attach a note to an aircraft for tonight",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, err := services.AddNote(app.Ctx, app.Database, app.Shift, args[0], strings.Join(args[1:], " "), app.Logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Note added to %s: %s\n\n", note.TailNumber, note.Text)
			return nil
		},
	}
}

// DispatchCmd creates the dispatch command
func DispatchCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch <tail_number>",
		Short: "Archive an aircraft's night and remove it from the active list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.Dispatch(app.Ctx, app.Database, app.Events, app.Shift, args[0], app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ %s dispatched\n\n", result.Record.TailNumber)
			fmt.Fprintf(out, "Night:         %s\n", result.Record.NightDate)
			fmt.Fprintf(out, "Readings:      %d\n", result.LogCount)
			fmt.Fprintf(out, "Notes:         %d\n", result.NoteCount)
			fmt.Fprintf(out, "Archived At:   %s\n\n", app.Shift.Resolver.LocalTimestamp(result.ArchivedAt))
			return nil
		},
	}
}

// statusBadge colors a status label by severity
func statusBadge(s status.Status) string {
	color := colorGreen
	switch s.Key {
	case status.KeyNoData:
		color = colorDim
	case status.KeyAboveTarget:
		color = colorYellow
	case status.KeyCold:
		color = colorBlue
	case status.KeyCriticalHot:
		color = colorRed
	}
	if s.IsAlert() {
		color += colorBold
	}
	return color + s.Label + colorReset
}
