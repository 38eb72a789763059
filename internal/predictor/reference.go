package predictor

import "math"

// stcIrradiance is the irradiance at standard test conditions, W/m²
const stcIrradiance = 1000.0

// ReferenceModel is the closed-form power law the learned models are trained on:
// linear in irradiance, derated by TempCoefficient per °C away from ReferenceTempC,
// clipped at zero, then reduced by SystemLoss.
type ReferenceModel struct {
	TempCoefficient float64
	ReferenceTempC  float64
	SystemLoss      float64
}

// NewReferenceModel returns the default law: -0.4 %/°C around 25 °C with 5 % system losses
func NewReferenceModel() ReferenceModel {
	return ReferenceModel{
		TempCoefficient: -0.004,
		ReferenceTempC:  25,
		SystemLoss:      0.05,
	}
}

// Fraction returns the normalized power fraction for one irradiance/temperature pair
func (m ReferenceModel) Fraction(irradiance, tempC float64) float64 {
	p := irradiance / stcIrradiance * (1 + m.TempCoefficient*(tempC-m.ReferenceTempC))
	return math.Max(p, 0) * (1 - m.SystemLoss)
}

func (m ReferenceModel) Predict(features [][]float64) ([]float64, error) {
	if err := checkRows(features); err != nil {
		return nil, err
	}

	out := make([]float64, len(features))
	for i, row := range features {
		out[i] = m.Fraction(row[0], row[1])
	}
	return out, nil
}

func (m ReferenceModel) FeatureNames() []string {
	return FeatureNames()
}
