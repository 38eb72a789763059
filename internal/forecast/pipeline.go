package forecast

import (
	"fmt"
	"math"
	"solarcast/internal/irradiance"
	"solarcast/internal/models"
	"solarcast/internal/predictor"
	"solarcast/internal/solar"
	"time"
)

// Forecaster runs the four pipeline stages for one site at a time.
// It shares only read-only collaborators and is safe for concurrent use.
type Forecaster struct {
	engine  *irradiance.Engine
	adapter *predictor.Adapter
	now     func() time.Time
}

// NewForecaster creates a pipeline from a transposition engine and a power adapter
func NewForecaster(engine *irradiance.Engine, adapter *predictor.Adapter) *Forecaster {
	return &Forecaster{
		engine:  engine,
		adapter: adapter,
		now:     time.Now,
	}
}

// Run produces a forecast for site from hourly (or otherwise uniformly spaced) observations
func (f *Forecaster) Run(site models.Site, obs []models.SkyObservation) (*models.SiteForecast, error) {
	if !(site.CapacityKW > 0) || math.IsInf(site.CapacityKW, 0) {
		return nil, fmt.Errorf("site %s: %w: %v kW", site.Name, models.ErrInvalidCapacity, site.CapacityKW)
	}

	timestamps := make([]time.Time, len(obs))
	for i, o := range obs {
		timestamps[i] = o.Timestamp
	}

	sun, err := solar.ComputeSunPosition(site.Location, timestamps)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	interval, err := SamplingInterval(timestamps)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	poa, err := f.engine.Transpose(site.Orientation, sun, obs)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	irr := make([]float64, len(poa))
	temp := make([]float64, len(obs))
	for i := range poa {
		irr[i] = poa[i].Global
		temp[i] = obs[i].TemperatureC
	}

	samples, err := f.adapter.PredictPower(irr, temp, site.CapacityKW)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}
	for i := range samples {
		samples[i].Timestamp = obs[i].Timestamp
	}

	result, err := AggregateInterval(samples, site.CapacityKW, interval)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	rows := make([]models.ForecastRow, len(obs))
	for i := range obs {
		rows[i] = models.ForecastRow{
			Timestamp:    obs[i].Timestamp,
			TemperatureC: obs[i].TemperatureC,
			GHI:          obs[i].GHI,
			POA:          poa[i].Global,
			PowerKW:      samples[i].PowerKW,
		}
	}

	return &models.SiteForecast{
		Site:        site,
		Result:      result,
		Rows:        rows,
		GeneratedAt: f.now().UTC(),
	}, nil
}
