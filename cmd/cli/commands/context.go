package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/internal/config"
	"github.com/jakechorley/tail-temps/pkg/clients/eventsclient"
	"github.com/jakechorley/tail-temps/pkg/core/services"
	"github.com/jakechorley/tail-temps/pkg/db"
)

// SheetsOpener connects to the report spreadsheet on demand
type SheetsOpener func(ctx context.Context) (services.ReportSheetWriter, error)

// Migrator is implemented by stores with a managed schema
type Migrator interface {
	RunMigrations(ctx context.Context) ([]string, error)
}

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg        *config.Config
	Database   db.Database
	Shift      services.Shift
	Catalog    services.Catalog
	Events     eventsclient.Publisher
	Weather    services.OutsideTempSource
	OpenSheets SheetsOpener
	Logger     *zap.Logger
	Ctx        context.Context
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
)

// activeRecord finds tonight's record for a tail or explains that there is none
func activeRecord(app *AppContext, tail string) (*db.AircraftNightRecord, error) {
	rec, err := services.FindActive(app.Ctx, app.Database, app.Shift, tail)
	if err != nil {
		return nil, fmt.Errorf("%s is not on tonight's list (%s): %w", services.NormalizeTail(tail), app.Shift.Night().NightDate, err)
	}
	return rec, nil
}

// clockTime renders a timestamp as station-local HH:MM
func clockTime(app *AppContext, t *time.Time) string {
	if t == nil {
		return "-"
	}
	return app.Shift.Resolver.Local(*t).Format("15:04")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func printRecord(w io.Writer, app *AppContext, rec *db.AircraftNightRecord) {
	purged := "no"
	if rec.Drained {
		purged = "yes @ " + clockTime(app, rec.PurgedAt)
	}
	fmt.Fprintf(w, "Tail Number: %s\n", rec.TailNumber)
	fmt.Fprintf(w, "Night:       %s\n", rec.NightDate)
	fmt.Fprintf(w, "In Time:     %s\n", orDash(rec.InTime))
	fmt.Fprintf(w, "Location:    %s\n", orDash(rec.Location))
	fmt.Fprintf(w, "Heat Source: %s\n", orDash(rec.HeatSource))
	fmt.Fprintf(w, "Heater Mode: %s\n", orDash(rec.HeaterMode))
	fmt.Fprintf(w, "Marked In:   %s\n", clockTime(app, rec.MarkedInAt))
	fmt.Fprintf(w, "Purged:      %s\n", purged)
	fmt.Fprintf(w, "Recorded By: %s\n\n", orDash(rec.RecordedBy))
}
