package services

import (
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jakechorley/tail-temps/internal/config"
	"github.com/jakechorley/tail-temps/pkg/db"
)

var validate = validator.New()

// Catalog holds the enumerations record fields are checked against
type Catalog struct {
	Locations   []string
	HeatSources []string
	HeaterModes []string
}

// NewCatalog builds the catalog from configuration
func NewCatalog(cfg *config.Config) Catalog {
	return Catalog{
		Locations:   cfg.Locations,
		HeatSources: cfg.HeatSources,
		HeaterModes: cfg.HeaterModes,
	}
}

// DefaultCatalog is the catalog used when no configuration overrides it
func DefaultCatalog() Catalog {
	return Catalog{
		Locations:   config.DefaultLocations,
		HeatSources: config.DefaultHeatSources,
		HeaterModes: config.DefaultHeaterModes,
	}
}

// DefaultHeaterMode is the mode new records start in
func (c Catalog) DefaultHeaterMode() string {
	if len(c.HeaterModes) == 0 {
		return "off"
	}
	return c.HeaterModes[0]
}

func (c Catalog) checkLocation(v string) error {
	return checkOneOf("location", v, c.Locations)
}

func (c Catalog) checkHeatSource(v string) error {
	return checkOneOf("heat_source", v, c.HeatSources)
}

func (c Catalog) checkHeaterMode(v string) error {
	return checkOneOf("heater_mode", v, c.HeaterModes)
}

func checkOneOf(field, v string, allowed []string) error {
	if slices.Contains(allowed, v) {
		return nil
	}
	return db.NewValidationError(field, "%q is not one of %s", v, strings.Join(allowed, ", "))
}

// NormalizeTail trims and upper-cases a tail number
func NormalizeTail(tail string) string {
	return strings.ToUpper(strings.TrimSpace(tail))
}

// validateTail checks a normalised tail number
func validateTail(tail string) error {
	if tail == "" {
		return db.NewValidationError("tail_number", "is required")
	}
	if err := validate.Var(tail, "max=10,alphanum"); err != nil {
		return db.NewValidationError("tail_number", "%q must be at most 10 letters or digits", tail)
	}
	return nil
}
