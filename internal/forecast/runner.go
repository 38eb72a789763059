package forecast

import (
	"context"
	"fmt"
	"log"
	"solarcast/internal/api"
	"solarcast/internal/metrics"
	"solarcast/internal/models"
	"time"
)

// WeatherSource supplies today's hourly forecast payload for a location
type WeatherSource interface {
	GetSolarForecast(ctx context.Context, loc models.Location) (*models.Forecast, error)
}

// ObservationStore keeps the weather a run was computed from
type ObservationStore interface {
	StoreObservations(site string, obs []models.SkyObservation) error
}

// Runner fetches weather for a site and runs the pipeline over it
type Runner struct {
	weather    WeatherSource
	store      ObservationStore
	forecaster *Forecaster
}

// NewRunner wires a weather source to a forecaster. store may be nil.
func NewRunner(weather WeatherSource, store ObservationStore, forecaster *Forecaster) *Runner {
	return &Runner{
		weather:    weather,
		store:      store,
		forecaster: forecaster,
	}
}

// Forecast runs site over today's forecast weather
func (r *Runner) Forecast(ctx context.Context, site models.Site) (fc *models.SiteForecast, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = string(models.KindOf(err))
		}
		metrics.RecordForecastRun(site.Name, status, time.Since(start))
		if fc != nil {
			metrics.SetForecastResult(site.Name, fc.Result.TotalEnergyKWh, fc.Result.PeakPowerKW)
		}
	}()

	payload, err := r.weather.GetSolarForecast(ctx, site.Location)
	if err != nil {
		return nil, fmt.Errorf("site %s: failed to fetch weather: %w", site.Name, err)
	}

	obs, err := api.ToObservations(payload)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	if r.store != nil {
		if err := r.store.StoreObservations(site.Name, obs); err != nil {
			log.Printf("❌ Failed to store observations for %s: %v", site.Name, err)
		}
	}

	return r.forecaster.Run(site, obs)
}
