package api

import (
	"fmt"
	"solarcast/internal/models"
	"time"
)

// hourlyTimeLayout is the ISO 8601 form Open-Meteo uses for hourly timestamps
const hourlyTimeLayout = "2006-01-02T15:04"

// ToObservations converts an hourly Open-Meteo payload into UTC sky observations.
// Every hourly series must match the time axis; a null value fails with ErrMissingData.
func ToObservations(f *models.Forecast) ([]models.SkyObservation, error) {
	if f == nil || len(f.Hourly.Time) == 0 {
		return nil, fmt.Errorf("%w: forecast has no hourly timestamps", models.ErrEmptyInput)
	}

	h := f.Hourly
	n := len(h.Time)
	series := []struct {
		name   string
		values []*float64
	}{
		{"temperature_2m", h.Temperature2m},
		{"shortwave_radiation", h.ShortwaveRadiation},
		{"direct_normal_irradiance", h.DirectNormalIrradiance},
		{"diffuse_radiation", h.DiffuseRadiation},
	}

	for _, s := range series {
		if len(s.values) != n {
			return nil, fmt.Errorf("%w: %s has %d values for %d timestamps", models.ErrMisalignedSeries, s.name, len(s.values), n)
		}
	}

	zone := time.FixedZone(f.Timezone, f.UTCOffsetSeconds)
	obs := make([]models.SkyObservation, n)
	for i, raw := range h.Time {
		ts, err := time.ParseInLocation(hourlyTimeLayout, raw, zone)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", raw, err)
		}

		for _, s := range series {
			if s.values[i] == nil {
				return nil, fmt.Errorf("%w: %s is null at %s", models.ErrMissingData, s.name, raw)
			}
		}

		obs[i] = models.SkyObservation{
			Timestamp:    ts.UTC(),
			TemperatureC: *h.Temperature2m[i],
			GHI:          *h.ShortwaveRadiation[i],
			DNI:          *h.DirectNormalIrradiance[i],
			DHI:          *h.DiffuseRadiation[i],
		}
	}

	return obs, nil
}
