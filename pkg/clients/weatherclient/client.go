// Package weatherclient looks up the current outside-air temperature at the
// station from the Open-Meteo forecast API.
package weatherclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/internal/config"
)

const forecastPath = "/v1/forecast"

// forecastResponse is the subset of the forecast payload we read
type forecastResponse struct {
	Current struct {
		Time          string   `json:"time"`
		Temperature2m *float64 `json:"temperature_2m"`
	} `json:"current"`
}

// apiError is returned by Open-Meteo on a bad request
type apiError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Client fetches the current temperature for one location
type Client struct {
	httpClient *resty.Client
	latitude   float64
	longitude  float64
	logger     *zap.Logger
}

// NewClient creates a client for the configured station coordinates
func NewClient(cfg config.WeatherConfig, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultWeatherTimeout * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		latitude:   cfg.Latitude,
		longitude:  cfg.Longitude,
		logger:     logger,
	}
}

// CurrentTempF returns the current temperature in °F
func (c *Client) CurrentTempF(ctx context.Context) (float64, error) {
	var result forecastResponse
	var apiErr apiError

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":         strconv.FormatFloat(c.latitude, 'f', -1, 64),
			"longitude":        strconv.FormatFloat(c.longitude, 'f', -1, 64),
			"current":          "temperature_2m",
			"temperature_unit": "fahrenheit",
		}).
		SetResult(&result).
		SetError(&apiErr).
		Get(forecastPath)
	if err != nil {
		return 0, fmt.Errorf("failed to call weather API: %w", err)
	}

	if resp.IsError() {
		c.logger.Warn("Weather API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("reason", apiErr.Reason))
		if apiErr.Reason != "" {
			return 0, fmt.Errorf("weather API error: %s (status: %d)", apiErr.Reason, resp.StatusCode())
		}
		return 0, fmt.Errorf("weather API error: status %d", resp.StatusCode())
	}

	if result.Current.Temperature2m == nil {
		return 0, fmt.Errorf("weather API response has no current temperature")
	}

	c.logger.Debug("Fetched outside temperature",
		zap.Float64("temp_f", *result.Current.Temperature2m),
		zap.String("observed", result.Current.Time))

	return *result.Current.Temperature2m, nil
}
