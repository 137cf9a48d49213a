package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			migrator, ok := app.Database.(Migrator)
			if !ok {
				fmt.Fprintf(out, "\nThe %s store has no migrations to run.\n\n", app.Cfg.Database.Driver)
				return nil
			}

			applied, err := migrator.RunMigrations(app.Ctx)
			if err != nil {
				return err
			}
			app.Logger.Info("Migrations complete", zap.Strings("applied", applied))

			if len(applied) == 0 {
				fmt.Fprintf(out, "\n✓ Schema is up to date\n\n")
				return nil
			}
			fmt.Fprintf(out, "\n✓ Applied %d migration(s):\n", len(applied))
			for _, name := range applied {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
