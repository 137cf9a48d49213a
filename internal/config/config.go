package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/tail-temps/pkg/core/night"
)

// DatabaseConfig selects and locates the persistence backend
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite memory"`
	URL    string `yaml:"url" validate:"required_unless=Driver memory"`
}

// WeatherConfig locates the outside-air temperature lookup
type WeatherConfig struct {
	BaseURL         string  `yaml:"baseURL,omitempty" validate:"omitempty,url"`
	Latitude        float64 `yaml:"latitude" validate:"min=-90,max=90"`
	Longitude       float64 `yaml:"longitude" validate:"min=-180,max=180"`
	TimeoutSeconds  int     `yaml:"timeoutSeconds,omitempty" validate:"omitempty,min=1"`
	CacheTTLSeconds int     `yaml:"cacheTTLSeconds,omitempty" validate:"omitempty,min=1"`
}

// RedisConfig locates the shared cache; an empty Addr disables it
type RedisConfig struct {
	Addr string `yaml:"addr,omitempty"`
	DB   int    `yaml:"db,omitempty" validate:"min=0"`
}

// EventsConfig selects where dispatch and alert events are published; an empty Driver disables them
type EventsConfig struct {
	Driver      string `yaml:"driver,omitempty" validate:"omitempty,oneof=mqtt nats"`
	URL         string `yaml:"url,omitempty" validate:"required_with=Driver"`
	TopicPrefix string `yaml:"topicPrefix,omitempty"`
	ClientID    string `yaml:"clientID,omitempty"`
}

// SheetsConfig locates the spreadsheet reports are published to
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentialsFile,omitempty"`
	SpreadsheetID   string `yaml:"spreadsheetID,omitempty" validate:"required_with=CredentialsFile"`
}

// Config represents the application configuration
type Config struct {
	Station         string         `yaml:"station" validate:"required,alphanum"`
	Timezone        string         `yaml:"timezone" validate:"required"`
	NightPolicy     night.Policy   `yaml:"nightPolicy" validate:"required,oneof=rollover calendar"`
	RolloverHour    *int           `yaml:"rolloverHour,omitempty" validate:"omitempty,min=0,max=23"`
	Database        DatabaseConfig `yaml:"database" validate:"required"`
	Locations       []string       `yaml:"locations,omitempty" validate:"dive,required"`
	HeatSources     []string       `yaml:"heatSources,omitempty" validate:"dive,required"`
	HeaterModes     []string       `yaml:"heaterModes,omitempty" validate:"dive,required"`
	AuthorizedUsers []string       `yaml:"authorizedUsers,omitempty" validate:"dive,required"`
	Weather         WeatherConfig  `yaml:"weather,omitempty"`
	Redis           RedisConfig    `yaml:"redis,omitempty"`
	Events          EventsConfig   `yaml:"events,omitempty"`
	Sheets          SheetsConfig   `yaml:"sheets,omitempty"`
	ReportPeriod    string         `yaml:"reportPeriod,omitempty"`
	RefreshSeconds  int            `yaml:"refreshSeconds,omitempty" validate:"omitempty,min=1"`
	TickSeconds     int            `yaml:"tickSeconds,omitempty" validate:"omitempty,min=1"`
}

// Defaults applied when the config leaves a field empty
var (
	DefaultLocations   = []string{"Gate A", "Gate B", "Gate C", "Gate D", "Hangar", "Remote Pad"}
	DefaultHeatSources = []string{"HG014", "HG012", "AC0066", "AC0071", "GPU Only", "None"}
	DefaultHeaterModes = []string{"off", "low", "high"}
)

const (
	DefaultReportPeriod   = "FREQ=WEEKLY;BYDAY=MO"
	DefaultRefreshSeconds = 15
	DefaultTickSeconds    = 1
	DefaultWeatherBaseURL = "https://api.open-meteo.com"
	DefaultWeatherTimeout = 10
	DefaultWeatherTTL     = 600
	DefaultTopicPrefix    = "tail-temps"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from tail_temps_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	configPath, err := findConfigFile("tail_temps_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadWithEnv loads tail_temps_<env>.yaml, falling back to tail_temps_config.yaml
func LoadWithEnv(env string) (*Config, error) {
	if env == "" {
		return Load()
	}

	configPath, err := findConfigFile(fmt.Sprintf("tail_temps_%s.yaml", env))
	if err != nil {
		return Load()
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills optional fields that were left empty
func (c *Config) ApplyDefaults() {
	if c.NightPolicy == "" {
		c.NightPolicy = night.Rollover
	}
	if c.RolloverHour == nil {
		h := night.DefaultRolloverHour
		c.RolloverHour = &h
	}
	if len(c.Locations) == 0 {
		c.Locations = DefaultLocations
	}
	if len(c.HeatSources) == 0 {
		c.HeatSources = DefaultHeatSources
	}
	if len(c.HeaterModes) == 0 {
		c.HeaterModes = DefaultHeaterModes
	}
	if c.ReportPeriod == "" {
		c.ReportPeriod = DefaultReportPeriod
	}
	if c.RefreshSeconds == 0 {
		c.RefreshSeconds = DefaultRefreshSeconds
	}
	if c.TickSeconds == 0 {
		c.TickSeconds = DefaultTickSeconds
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = DefaultWeatherBaseURL
	}
	if c.Weather.TimeoutSeconds == 0 {
		c.Weather.TimeoutSeconds = DefaultWeatherTimeout
	}
	if c.Weather.CacheTTLSeconds == 0 {
		c.Weather.CacheTTLSeconds = DefaultWeatherTTL
	}
	if c.Events.TopicPrefix == "" {
		c.Events.TopicPrefix = DefaultTopicPrefix
	}
}

// Validate validates the configuration struct, the time zone and the rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	if len(cfg.HeaterModes) > 0 && cfg.HeaterModes[0] != "off" {
		return fmt.Errorf("config validation failed: heaterModes must start with \"off\", got %q", cfg.HeaterModes[0])
	}

	if cfg.ReportPeriod != "" {
		if _, err := rrule.StrToRRule(cfg.ReportPeriod); err != nil {
			return fmt.Errorf("invalid rrule in reportPeriod: %w", err)
		}
	}

	return nil
}

// Location returns the station time zone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Resolver builds the night resolver used everywhere in the process
func (c *Config) Resolver() (*night.Resolver, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}
	hour := night.DefaultRolloverHour
	if c.RolloverHour != nil {
		hour = *c.RolloverHour
	}
	return night.NewResolver(loc, c.NightPolicy, hour)
}

// RefreshInterval is the dashboard data refresh cadence
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// TickInterval is the countdown recompute cadence
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// findConfigFile searches for the named config in current directory and home directory
func findConfigFile(configFileName string) (string, error) {
	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", configFileName)
}
