package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/tail-temps/pkg/core/night"
)

func validConfig() *Config {
	cfg := &Config{
		Station:     "OMA",
		Timezone:    "America/Chicago",
		NightPolicy: night.Rollover,
		Database:    DatabaseConfig{Driver: "postgres", URL: "postgres://localhost/tail_temps"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Events = EventsConfig{Driver: "mqtt", URL: "tcp://localhost:1883", TopicPrefix: "tail-temps"}
	cfg.Sheets = SheetsConfig{CredentialsFile: "creds.json", SpreadsheetID: "sheet123"}

	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestValidate_MemoryDriverNeedsNoURL(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{Driver: "memory"}

	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestValidate_MissingRequiredField(t *testing.T) {
	cfg := validConfig()
	cfg.Station = ""

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "mongo"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_SqliteNeedsURL(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{Driver: "sqlite"}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_InvalidTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Timezone = "Mars/Olympus_Mons"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timezone")
}

func TestValidate_RolloverHourOutOfRange(t *testing.T) {
	cfg := validConfig()
	hour := 24
	cfg.RolloverHour = &hour

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_HeaterModesMustStartWithOff(t *testing.T) {
	cfg := validConfig()
	cfg.HeaterModes = []string{"high", "off"}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "heaterModes")
}

func TestValidate_InvalidRRule(t *testing.T) {
	cfg := validConfig()
	cfg.ReportPeriod = "INVALID_RRULE_SYNTAX"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rrule")
}

func TestValidate_EventsDriverNeedsURL(t *testing.T) {
	cfg := validConfig()
	cfg.Events = EventsConfig{Driver: "nats"}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromPath_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")

	validConfig := `
station: "OMA"
timezone: "America/Chicago"
nightPolicy: "rollover"
rolloverHour: 10
database:
  driver: "sqlite"
  url: "file:tail_temps.db"
locations:
  - "Gate A"
  - "Hangar"
heatSources:
  - "HG014"
heaterModes:
  - "off"
  - "high"
authorizedUsers:
  - "crew@example.com"
weather:
  latitude: 41.3
  longitude: -95.9
redis:
  addr: "localhost:6379"
events:
  driver: "nats"
  url: "nats://localhost:4222"
reportPeriod: "FREQ=WEEKLY;BYDAY=SU"
refreshSeconds: 30
`

	err := os.WriteFile(configPath, []byte(validConfig), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, "OMA", cfg.Station)
	assert.Equal(t, night.Rollover, cfg.NightPolicy)
	require.NotNil(t, cfg.RolloverHour)
	assert.Equal(t, 10, *cfg.RolloverHour)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"Gate A", "Hangar"}, cfg.Locations)
	assert.Equal(t, []string{"HG014"}, cfg.HeatSources)
	assert.Equal(t, []string{"off", "high"}, cfg.HeaterModes)
	assert.Equal(t, []string{"crew@example.com"}, cfg.AuthorizedUsers)
	assert.InDelta(t, 41.3, cfg.Weather.Latitude, 0.0001)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "nats", cfg.Events.Driver)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=SU", cfg.ReportPeriod)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval())
	assert.Equal(t, time.Second, cfg.TickInterval())
}

func TestLoadFromPath_MinimalConfigGetsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "minimal_config.yaml")

	minimalConfig := `
station: "OMA"
timezone: "America/Chicago"
database:
  driver: "memory"
`

	err := os.WriteFile(configPath, []byte(minimalConfig), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, night.Rollover, cfg.NightPolicy)
	require.NotNil(t, cfg.RolloverHour)
	assert.Equal(t, 12, *cfg.RolloverHour)
	assert.Equal(t, DefaultLocations, cfg.Locations)
	assert.Equal(t, DefaultHeatSources, cfg.HeatSources)
	assert.Equal(t, DefaultHeaterModes, cfg.HeaterModes)
	assert.Equal(t, DefaultReportPeriod, cfg.ReportPeriod)
	assert.Equal(t, 15*time.Second, cfg.RefreshInterval())
	assert.Equal(t, DefaultWeatherBaseURL, cfg.Weather.BaseURL)
	assert.Empty(t, cfg.AuthorizedUsers)
	assert.Empty(t, cfg.Events.Driver)

	resolver, err := cfg.Resolver()
	require.NoError(t, err)
	assert.Equal(t, night.Rollover, resolver.Policy())
}

func TestLoadFromPath_MissingRequiredField(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.yaml")

	invalidConfig := `
station: "OMA"
# Missing timezone
database:
  driver: "memory"
`

	err := os.WriteFile(configPath, []byte(invalidConfig), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_yaml.yaml")

	invalidYAML := `
station: "OMA"
  invalid indentation
timezone: "America/Chicago"
`

	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromPath_FileNotFound(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFromPath_CalendarPolicy(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "calendar.yaml")

	calendarConfig := `
station: "OMA"
timezone: "America/Chicago"
nightPolicy: "calendar"
database:
  driver: "memory"
`

	err := os.WriteFile(configPath, []byte(calendarConfig), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	resolver, err := cfg.Resolver()
	require.NoError(t, err)
	assert.Equal(t, night.PlainCalendar, resolver.Policy())
}
