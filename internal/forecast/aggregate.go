// Package forecast turns per-timestamp power samples into energy totals and
// drives the full geometry → transposition → prediction → aggregation pipeline.
package forecast

import (
	"fmt"
	"math"
	"solarcast/internal/models"
	"time"
)

// Aggregate summarizes samples assuming uniform hourly spacing:
// each sample contributes PowerKW × 1 h to the total. Callers with other
// spacings should use AggregateInterval.
func Aggregate(samples []models.PowerSample, ratedCapacityKW float64) (*models.ForecastResult, error) {
	return AggregateInterval(samples, ratedCapacityKW, time.Hour)
}

// AggregateInterval summarizes samples spaced interval apart
func AggregateInterval(samples []models.PowerSample, ratedCapacityKW float64, interval time.Duration) (*models.ForecastResult, error) {
	if !(ratedCapacityKW > 0) || math.IsInf(ratedCapacityKW, 0) {
		return nil, fmt.Errorf("%w: %v kW", models.ErrInvalidCapacity, ratedCapacityKW)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("aggregate: %w", models.ErrEmptySeries)
	}

	if interval <= 0 {
		return nil, fmt.Errorf("%w: non-positive interval %s", models.ErrIrregularSampling, interval)
	}

	result := &models.ForecastResult{
		Samples:     samples,
		PeakPowerKW: samples[0].PowerKW,
		PeakAt:      samples[0].Timestamp,
		Interval:    interval,
	}

	var sum float64
	for _, s := range samples {
		sum += s.PowerKW
		if s.PowerKW > result.PeakPowerKW {
			result.PeakPowerKW = s.PowerKW
			result.PeakAt = s.Timestamp
		}
	}

	result.TotalEnergyKWh = sum * interval.Hours()
	result.SpecificYield = result.TotalEnergyKWh / ratedCapacityKW
	return result, nil
}

// SamplingInterval returns the uniform spacing of timestamps.
// A single timestamp is treated as one hour.
func SamplingInterval(timestamps []time.Time) (time.Duration, error) {
	if len(timestamps) == 0 {
		return 0, fmt.Errorf("sampling interval: %w", models.ErrEmptySeries)
	}
	if len(timestamps) == 1 {
		return time.Hour, nil
	}

	interval := timestamps[1].Sub(timestamps[0])
	for i := 1; i < len(timestamps); i++ {
		delta := timestamps[i].Sub(timestamps[i-1])
		if delta <= 0 || delta != interval {
			return 0, fmt.Errorf("%w: step %d is %s, expected %s",
				models.ErrIrregularSampling, i, delta, interval)
		}
	}
	return interval, nil
}
