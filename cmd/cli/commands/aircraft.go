package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/pkg/core/services"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// PrepCmd creates the prep command
func PrepCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prep <tail_number>",
		Short: "Add an aircraft to tonight's list, or update its prep details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := services.PrepInput{TailNumber: args[0]}
			flags := cmd.Flags()

			for name, dst := range map[string]**string{
				"in":          &input.InTime,
				"location":    &input.Location,
				"heat-source": &input.HeatSource,
				"heater-mode": &input.HeaterMode,
			} {
				if flags.Changed(name) {
					v, _ := flags.GetString(name)
					*dst = &v
				}
			}
			if flags.Changed("drained") {
				v, _ := flags.GetBool("drained")
				input.Drained = &v
			}

			app.Logger.Debug("prep command", zap.String("tail_number", input.TailNumber))

			rec, err := services.CreateOrUpdate(app.Ctx, app.Database, app.Shift, app.Catalog, input, app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ %s prepped for the night of %s\n\n", rec.TailNumber, rec.NightDate)
			printRecord(out, app, rec)
			return nil
		},
	}

	cmd.Flags().String("in", "", "Arrival time (HH:MM, station time); required for a new aircraft")
	cmd.Flags().String("location", "", "Parking location")
	cmd.Flags().String("heat-source", "", "Heat source")
	cmd.Flags().String("heater-mode", "", "Heater mode")
	cmd.Flags().Bool("drained", false, "Whether the water system is drained")

	return cmd
}

// ListCmd creates the list command
func ListCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tonight's aircraft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := services.ListNight(app.Ctx, app.Database, app.Shift, app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			night := app.Shift.Night()
			if len(records) == 0 {
				fmt.Fprintf(out, "No aircraft on the list for %s (%s).\n", night.Station, night.NightDate)
				return nil
			}

			fmt.Fprintf(out, "\n%s%s night of %s%s (%d aircraft)\n\n", colorBold, night.Station, night.NightDate, colorReset, len(records))
			fmt.Fprintf(out, "%-10s %-6s %-12s %-10s %-6s %-9s %s\n", "Tail", "In", "Location", "Heat", "Mode", "Marked", "Purged")
			for _, r := range records {
				purged := colorDim + "no" + colorReset
				if r.Drained {
					purged = colorGreen + clockTime(app, r.PurgedAt) + colorReset
				}
				fmt.Fprintf(out, "%-10s %-6s %-12s %-10s %-6s %-9s %s\n",
					r.TailNumber, orDash(r.InTime), orDash(r.Location), orDash(r.HeatSource), orDash(r.HeaterMode),
					clockTime(app, r.MarkedInAt), purged)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

// DeleteCmd creates the delete command
func DeleteCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tail_number>",
		Short: "Remove an aircraft from tonight's list without archiving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := activeRecord(app, args[0])
			if err != nil {
				return err
			}
			if err := services.DeleteAircraft(app.Ctx, app.Database, app.Shift, rec.ID, app.Logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ %s removed from tonight's list\n\n", rec.TailNumber)
			return nil
		},
	}
}

// MarkInCmd creates the markIn command
func MarkInCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "markIn <tail_number>",
		Short: "Record that an aircraft has arrived",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateAndPrint(cmd, app, args[0], "marked in", func(rec *db.AircraftNightRecord) (*db.AircraftNightRecord, error) {
				return services.MarkIn(app.Ctx, app.Database, app.Shift, rec.ID, app.Logger)
			})
		},
	}
}

// SetHeatSourceCmd creates the setHeatSource command
func SetHeatSourceCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setHeatSource <tail_number> <heat_source>",
		Short: "Change an aircraft's heat source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateAndPrint(cmd, app, args[0], "heat source updated", func(rec *db.AircraftNightRecord) (*db.AircraftNightRecord, error) {
				return services.SetHeatSource(app.Ctx, app.Database, app.Shift, app.Catalog, rec.ID, args[1], app.Logger)
			})
		},
	}
}

// SetHeaterModeCmd creates the setHeaterMode command
func SetHeaterModeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setHeaterMode <tail_number> <mode>",
		Short: "Change an aircraft's heater mode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateAndPrint(cmd, app, args[0], "heater mode updated", func(rec *db.AircraftNightRecord) (*db.AircraftNightRecord, error) {
				return services.SetHeaterMode(app.Ctx, app.Database, app.Shift, app.Catalog, rec.ID, args[1], app.Logger)
			})
		},
	}
}

// PurgeCmd creates the purge command
func PurgeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge <tail_number>",
		Short: "Mark an aircraft's water system as drained (use --off to undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			off, _ := cmd.Flags().GetBool("off")
			verb := "purged"
			if off {
				verb = "purge cleared"
			}
			return updateAndPrint(cmd, app, args[0], verb, func(rec *db.AircraftNightRecord) (*db.AircraftNightRecord, error) {
				return services.TogglePurge(app.Ctx, app.Database, app.Shift, rec.ID, !off, app.Logger)
			})
		},
	}

	cmd.Flags().Bool("off", false, "Clear the purge instead of setting it")

	return cmd
}

func updateAndPrint(cmd *cobra.Command, app *AppContext, tail, verb string, update func(rec *db.AircraftNightRecord) (*db.AircraftNightRecord, error)) error {
	rec, err := activeRecord(app, tail)
	if err != nil {
		return err
	}
	updated, err := update(rec)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n✓ %s %s\n\n", updated.TailNumber, verb)
	printRecord(out, app, updated)
	return nil
}
