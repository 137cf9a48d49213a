package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/cmd/cli/commands"
	"github.com/jakechorley/tail-temps/internal/config"
	"github.com/jakechorley/tail-temps/pkg/clients/eventsclient"
	"github.com/jakechorley/tail-temps/pkg/clients/sheetsclient"
	"github.com/jakechorley/tail-temps/pkg/clients/weatherclient"
	"github.com/jakechorley/tail-temps/pkg/core/services"
	"github.com/jakechorley/tail-temps/pkg/db"
	"github.com/jakechorley/tail-temps/pkg/postgres"
	"github.com/jakechorley/tail-temps/pkg/sqlite"
	"github.com/jakechorley/tail-temps/pkg/utils/logging"
)

var (
	env   string
	actor string
	app   = &commands.AppContext{}
	rdb   *redis.Client
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tail-temps",
		Short: "Tail Temps CLI - Track overnight aircraft cabin temperatures",
		Long:  `A CLI tool for prepping aircraft for the night, logging cabin temperatures, dispatching in the morning and reporting on archived nights.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVar(&actor, "as", os.Getenv("USER"), "Who is recording (checked against authorizedUsers)")

	rootCmd.AddCommand(commands.PrepCmd(app))
	rootCmd.AddCommand(commands.ListCmd(app))
	rootCmd.AddCommand(commands.DeleteCmd(app))
	rootCmd.AddCommand(commands.MarkInCmd(app))
	rootCmd.AddCommand(commands.SetHeatSourceCmd(app))
	rootCmd.AddCommand(commands.SetHeaterModeCmd(app))
	rootCmd.AddCommand(commands.PurgeCmd(app))
	rootCmd.AddCommand(commands.LogTempCmd(app))
	rootCmd.AddCommand(commands.AddNoteCmd(app))
	rootCmd.AddCommand(commands.DispatchCmd(app))
	rootCmd.AddCommand(commands.DashboardCmd(app))
	rootCmd.AddCommand(commands.ReportCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		closeApp()
		os.Exit(1)
	}
}

// initApp sets up logger, config, store and clients
func initApp() error {
	var err error
	app.Ctx = context.Background()

	// Initialize logger
	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env), zap.String("actor", actor))

	// Load configuration
	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger = app.Logger.With(zap.String("station", app.Cfg.Station))
	app.Logger.Debug("Configuration loaded successfully")

	resolver, err := app.Cfg.Resolver()
	if err != nil {
		return fmt.Errorf("failed to build night resolver: %w", err)
	}

	// Open the store
	app.Logger.Info("Connecting to database", zap.String("driver", app.Cfg.Database.Driver))
	app.Database, err = openDatabase(app.Ctx, app.Cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.Logger.Info("Database initialized successfully")

	// Initialize event publisher
	app.Events, err = eventsclient.New(app.Cfg.Events, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}

	// Initialize weather source, cached in redis when configured
	if app.Cfg.Weather.Latitude != 0 || app.Cfg.Weather.Longitude != 0 {
		var weather weatherclient.Source = weatherclient.NewClient(app.Cfg.Weather, app.Logger)
		if app.Cfg.Redis.Addr != "" {
			rdb = redis.NewClient(&redis.Options{Addr: app.Cfg.Redis.Addr, DB: app.Cfg.Redis.DB})
			ttl := time.Duration(app.Cfg.Weather.CacheTTLSeconds) * time.Second
			weather = weatherclient.NewCachedSource(weather, rdb, app.Cfg.Station, ttl, app.Logger)
		}
		app.Weather = weather
		app.Logger.Debug("Weather source initialized")
	} else {
		app.Logger.Info("No weather coordinates configured, check intervals use the default")
	}

	app.Shift = services.Shift{
		Station:  app.Cfg.Station,
		Resolver: resolver,
		Actor:    actor,
		Guard:    services.NewAuthorizer(app.Cfg.AuthorizedUsers),
	}
	app.Catalog = services.NewCatalog(app.Cfg)

	// Sheets only connects when a report is published
	sheetsCfg := app.Cfg.Sheets
	app.OpenSheets = func(ctx context.Context) (services.ReportSheetWriter, error) {
		client, err := sheetsclient.NewClient(ctx, sheetsCfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	return nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (db.Database, error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := postgres.NewDB(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case "sqlite":
		lite, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return lite, nil
	case "memory":
		return db.NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func closeApp() {
	if app.Events != nil {
		app.Events.Close()
		app.Events = nil
	}
	if rdb != nil {
		rdb.Close()
		rdb = nil
	}
	if app.Database != nil {
		app.Database.Close()
		app.Database = nil
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
