package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"solarcast/internal/metrics"
	"solarcast/internal/models"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

const baseURL = "https://api.open-meteo.com/v1/forecast"

// ErrWeatherUnavailable is returned while the circuit breaker is open
var ErrWeatherUnavailable = errors.New("weather feed unavailable")

// SolarHourlyFields are the hourly variables the forecast pipeline needs
var SolarHourlyFields = []string{
	"temperature_2m",
	"shortwave_radiation",
	"direct_normal_irradiance",
	"diffuse_radiation",
}

// OpenMeteoClient is a client for the Open-Meteo API.
// Requests go through a circuit breaker that opens after 5 consecutive failures.
type OpenMeteoClient struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*models.Forecast]
	baseURL string
}

type ForecastParams struct {
	Latitude        float64
	Longitude       float64
	HourlyFields    []string
	Timezone        string
	TemperatureUnit string
	PastDays        int // how many days in the past you want to get
	ForecastDays    int // how many days in the future you want to forecast
}

// NewOpenMeteoClient creates a new Open-Meteo API client. A zero timeout means 10 seconds.
func NewOpenMeteoClient(timeout time.Duration) *OpenMeteoClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenMeteoClient{
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*models.Forecast](gobreaker.Settings{
			Name:        "open-meteo",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		baseURL: baseURL,
	}
}

// GetForecast fetches forecast data for the given parameters
func (c *OpenMeteoClient) GetForecast(ctx context.Context, forecastParams ForecastParams) (forecast *models.Forecast, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordWeatherFetch(time.Since(start), err)
	}()

	forecast, err = c.breaker.Execute(func() (*models.Forecast, error) {
		return c.fetch(ctx, forecastParams)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrWeatherUnavailable, err)
	}
	return forecast, err
}

func (c *OpenMeteoClient) fetch(ctx context.Context, forecastParams ForecastParams) (*models.Forecast, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BuildURL(forecastParams), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	forecast := &models.Forecast{}
	if err := json.NewDecoder(resp.Body).Decode(forecast); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return forecast, nil
}

// Builds URL for OpenMeteoClient request
func (c *OpenMeteoClient) BuildURL(forecastParams ForecastParams) string {
	if forecastParams.Timezone == "" {
		forecastParams.Timezone = "UTC"
	}

	if forecastParams.TemperatureUnit == "" {
		forecastParams.TemperatureUnit = "celsius"
	}

	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&timezone=%s&temperature_unit=%s",
		c.baseURL, forecastParams.Latitude, forecastParams.Longitude, forecastParams.Timezone, forecastParams.TemperatureUnit)

	if forecastParams.PastDays > 0 {
		url += fmt.Sprintf("&past_days=%d", forecastParams.PastDays)
	}

	if forecastParams.ForecastDays >= 0 {
		url += fmt.Sprintf("&forecast_days=%d", forecastParams.ForecastDays)
	}

	if len(forecastParams.HourlyFields) > 0 {
		url += "&hourly=" + strings.Join(forecastParams.HourlyFields, ",")
	}

	return url
}

// GetSolarForecast fetches today's hourly temperature and irradiance in UTC
func (c *OpenMeteoClient) GetSolarForecast(ctx context.Context, loc models.Location) (*models.Forecast, error) {
	if !loc.Valid() {
		return nil, fmt.Errorf("GetSolarForecast: %w: latitude %.4f, longitude %.4f", models.ErrInvalidLocation, loc.Latitude, loc.Longitude)
	}

	return c.GetForecast(ctx, ForecastParams{
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		HourlyFields: SolarHourlyFields,
		ForecastDays: 1,
	})
}
