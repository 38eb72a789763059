// Package predictor maps plane-of-array irradiance and ambient temperature to
// AC power through a fitted regression.
//
// Every regressor predicts a normalized power fraction: the output of a 1 kW
// reference system. The Adapter owns the feature contract and the capacity scaling.
package predictor

import (
	"fmt"
	"math"
	"solarcast/internal/models"
)

// Feature names, in the order the offline training stage uses them
const (
	FeatureIrradiance  = "irradiance"
	FeatureTemperature = "temperature"
)

// FeatureNames returns the feature contract: [irradiance, temperature]
func FeatureNames() []string {
	return []string{FeatureIrradiance, FeatureTemperature}
}

// Regressor is a fitted model predicting one normalized power fraction per feature row
type Regressor interface {
	Predict(features [][]float64) ([]float64, error)
	FeatureNames() []string
}

// Adapter wraps a Regressor behind the feature and capacity contract.
// A nil regressor is allowed; calls then fail with ErrPredictorUnavailable.
type Adapter struct {
	regressor Regressor
}

// NewAdapter checks that r was trained on the expected features
func NewAdapter(r Regressor) (*Adapter, error) {
	if r != nil && !sameFeatures(r.FeatureNames(), FeatureNames()) {
		return nil, fmt.Errorf("%w: predictor expects %v, want %v", models.ErrFeatureShapeMismatch, r.FeatureNames(), FeatureNames())
	}
	return &Adapter{regressor: r}, nil
}

// Available reports whether a fitted predictor is loaded
func (a *Adapter) Available() bool {
	return a != nil && a.regressor != nil
}

// PredictPower returns one power sample per input, scaled to ratedCapacityKW.
// Negative or undefined fractions are clipped to 0. Timestamps are left for the caller to set.
func (a *Adapter) PredictPower(poa, tempC []float64, ratedCapacityKW float64) ([]models.PowerSample, error) {
	if !a.Available() {
		return nil, fmt.Errorf("%w: no fitted model loaded, run the training step first", models.ErrPredictorUnavailable)
	}

	if len(poa) != len(tempC) {
		return nil, fmt.Errorf("%w: %d irradiance values but %d temperatures", models.ErrFeatureShapeMismatch, len(poa), len(tempC))
	}

	if !(ratedCapacityKW > 0) || math.IsInf(ratedCapacityKW, 0) {
		return nil, fmt.Errorf("%w: %v kW", models.ErrInvalidCapacity, ratedCapacityKW)
	}

	samples := make([]models.PowerSample, len(poa))
	if len(poa) == 0 {
		return samples, nil
	}

	features := make([][]float64, len(poa))
	for i := range poa {
		features[i] = []float64{poa[i], tempC[i]}
	}

	fractions, err := a.regressor.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("predict power: %w", err)
	}

	if len(fractions) != len(features) {
		return nil, fmt.Errorf("%w: predictor returned %d values for %d rows", models.ErrFeatureShapeMismatch, len(fractions), len(features))
	}

	for i, f := range fractions {
		if !(f > 0) {
			f = 0
		}
		samples[i].PowerKW = f * ratedCapacityKW
	}
	return samples, nil
}

func sameFeatures(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func checkRows(features [][]float64) error {
	for i, row := range features {
		if len(row) != 2 {
			return fmt.Errorf("%w: row %d has %d features, want 2", models.ErrFeatureShapeMismatch, i, len(row))
		}
	}
	return nil
}
