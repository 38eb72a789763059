package predictor

import (
	"errors"
	"math"
	"path/filepath"
	"solarcast/internal/models"
	"testing"
)

// stubRegressor returns fixed outputs regardless of the rows it is given
type stubRegressor struct {
	out      []float64
	err      error
	features []string
	calls    int
}

func (s *stubRegressor) Predict(features [][]float64) ([]float64, error) {
	s.calls++
	return s.out, s.err
}

func (s *stubRegressor) FeatureNames() []string {
	if s.features != nil {
		return s.features
	}
	return FeatureNames()
}

func newAdapter(t *testing.T, r Regressor) *Adapter {
	t.Helper()
	a, err := NewAdapter(r)
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	return a
}

func TestNewAdapter_FeatureMismatch(t *testing.T) {
	_, err := NewAdapter(&stubRegressor{features: []string{"ghi", "temp"}})
	if !errors.Is(err, models.ErrFeatureShapeMismatch) {
		t.Errorf("NewAdapter() error = %v, want ErrFeatureShapeMismatch", err)
	}
}

func TestPredictPower_Unavailable(t *testing.T) {
	a := newAdapter(t, nil)
	if a.Available() {
		t.Error("Available() = true with no regressor")
	}

	_, err := a.PredictPower([]float64{500}, []float64{25}, 5)
	if !errors.Is(err, models.ErrPredictorUnavailable) {
		t.Errorf("PredictPower() error = %v, want ErrPredictorUnavailable", err)
	}

	var nilAdapter *Adapter
	if _, err := nilAdapter.PredictPower(nil, nil, 5); !errors.Is(err, models.ErrPredictorUnavailable) {
		t.Errorf("nil adapter: error = %v, want ErrPredictorUnavailable", err)
	}
}

func TestPredictPower_Errors(t *testing.T) {
	tests := []struct {
		name     string
		poa      []float64
		temp     []float64
		capacity float64
		stub     *stubRegressor
		want     error
	}{
		{name: "length mismatch", poa: []float64{1, 2}, temp: []float64{25}, capacity: 5, stub: &stubRegressor{}, want: models.ErrFeatureShapeMismatch},
		{name: "zero capacity", poa: []float64{1}, temp: []float64{25}, capacity: 0, stub: &stubRegressor{}, want: models.ErrInvalidCapacity},
		{name: "negative capacity", poa: []float64{1}, temp: []float64{25}, capacity: -2, stub: &stubRegressor{}, want: models.ErrInvalidCapacity},
		{name: "NaN capacity", poa: []float64{1}, temp: []float64{25}, capacity: math.NaN(), stub: &stubRegressor{}, want: models.ErrInvalidCapacity},
		{name: "wrong output count", poa: []float64{1, 2}, temp: []float64{25, 25}, capacity: 5, stub: &stubRegressor{out: []float64{0.1}}, want: models.ErrFeatureShapeMismatch},
		{name: "regressor failure", poa: []float64{1}, temp: []float64{25}, capacity: 5, stub: &stubRegressor{err: models.ErrPredictorUnavailable}, want: models.ErrPredictorUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAdapter(t, tt.stub)
			_, err := a.PredictPower(tt.poa, tt.temp, tt.capacity)
			if !errors.Is(err, tt.want) {
				t.Errorf("PredictPower() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPredictPower_EmptyInputSkipsRegressor(t *testing.T) {
	stub := &stubRegressor{}
	a := newAdapter(t, stub)

	samples, err := a.PredictPower(nil, nil, 5)
	if err != nil {
		t.Fatalf("PredictPower() error = %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("got %d samples, want 0", len(samples))
	}
	if stub.calls != 0 {
		t.Errorf("regressor called %d times, want 0", stub.calls)
	}
}

func TestPredictPower_ClipsNegativeAndNaN(t *testing.T) {
	a := newAdapter(t, &stubRegressor{out: []float64{-0.2, math.NaN(), 0.5}})

	samples, err := a.PredictPower([]float64{0, 0, 500}, []float64{25, 25, 25}, 4)
	if err != nil {
		t.Fatalf("PredictPower() error = %v", err)
	}

	want := []float64{0, 0, 2}
	for i, s := range samples {
		if s.PowerKW != want[i] {
			t.Errorf("samples[%d].PowerKW = %v, want %v", i, s.PowerKW, want[i])
		}
	}
}

func TestPredictPower_ScalesLinearlyWithCapacity(t *testing.T) {
	a := newAdapter(t, NewReferenceModel())
	poa := []float64{0, 120, 480, 850, 1010}
	temp := []float64{12, 18, 27, 35, 41}

	one, err := a.PredictPower(poa, temp, 3.3)
	if err != nil {
		t.Fatalf("PredictPower() error = %v", err)
	}
	two, err := a.PredictPower(poa, temp, 6.6)
	if err != nil {
		t.Fatalf("PredictPower() error = %v", err)
	}

	for i := range one {
		if two[i].PowerKW != 2*one[i].PowerKW {
			t.Errorf("row %d: %.6f kW at 2x capacity, want %.6f", i, two[i].PowerKW, 2*one[i].PowerKW)
		}
		if one[i].PowerKW < 0 {
			t.Errorf("row %d: negative power %.4f", i, one[i].PowerKW)
		}
	}
}

func TestReferenceModel_Fraction(t *testing.T) {
	m := NewReferenceModel()

	tests := []struct {
		name       string
		irradiance float64
		temp       float64
		want       float64
	}{
		{name: "standard conditions", irradiance: 1000, temp: 25, want: 0.95},
		{name: "dark", irradiance: 0, temp: 30, want: 0},
		{name: "hot panel", irradiance: 1000, temp: 45, want: 0.95 * 0.92},
		{name: "cold panel", irradiance: 500, temp: 5, want: 0.5 * 1.08 * 0.95},
		{name: "negative irradiance clipped", irradiance: -50, temp: 25, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Fraction(tt.irradiance, tt.temp); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Fraction() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReferenceModel_RowShape(t *testing.T) {
	_, err := NewReferenceModel().Predict([][]float64{{500, 25}, {500}})
	if !errors.Is(err, models.ErrFeatureShapeMismatch) {
		t.Errorf("Predict() error = %v, want ErrFeatureShapeMismatch", err)
	}
}

func TestJaipurScenarioStaysBelowCapacity(t *testing.T) {
	a := newAdapter(t, NewReferenceModel())

	// 848.7 W/m² on the panel at 30 °C for a 5 kW system
	samples, err := a.PredictPower([]float64{848.7}, []float64{30}, 5)
	if err != nil {
		t.Fatalf("PredictPower() error = %v", err)
	}
	if p := samples[0].PowerKW; p <= 3.5 || p >= 4.0 {
		t.Errorf("PowerKW = %.3f, want within (3.5, 4.0)", p)
	}
}

func TestFit_MatchesReferenceModel(t *testing.T) {
	ref := NewReferenceModel()
	set := Synthesize(20000, 42, ref)

	m, err := Fit(set.Irradiance, set.Temperature, set.Fraction)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	a := m.Artifact()
	if a.Samples != 20000 {
		t.Errorf("Samples = %d, want 20000", a.Samples)
	}
	if a.RMSE > 1e-9 {
		t.Errorf("RMSE = %g, want ~0 on noise-free labels", a.RMSE)
	}

	// fraction = 0.95*1.1/1000·E - 0.95*0.004/1000·E·T
	if math.Abs(a.Coefficients[1]-0.001045) > 1e-9 {
		t.Errorf("irradiance coefficient = %g, want 0.001045", a.Coefficients[1])
	}
	if math.Abs(a.Coefficients[3]+0.0000038) > 1e-11 {
		t.Errorf("interaction coefficient = %g, want -0.0000038", a.Coefficients[3])
	}

	for irr := 0.0; irr <= 1000; irr += 125 {
		for temp := 5.0; temp <= 45; temp += 10 {
			got, err := m.Predict([][]float64{{irr, temp}})
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if want := ref.Fraction(irr, temp); math.Abs(got[0]-want) > 1e-6 {
				t.Errorf("E=%.0f T=%.0f: fitted %.6f, reference %.6f", irr, temp, got[0], want)
			}
		}
	}
}

func TestFit_Errors(t *testing.T) {
	if _, err := Fit([]float64{1, 2}, []float64{1}, []float64{1, 2}); !errors.Is(err, models.ErrFeatureShapeMismatch) {
		t.Errorf("mismatched lengths: error = %v, want ErrFeatureShapeMismatch", err)
	}
	if _, err := Fit([]float64{1}, []float64{1}, []float64{1}); err == nil {
		t.Error("expected error for too few samples")
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	a := Synthesize(100, 42, NewReferenceModel())
	b := Synthesize(100, 42, NewReferenceModel())

	for i := range a.Irradiance {
		if a.Irradiance[i] != b.Irradiance[i] || a.Temperature[i] != b.Temperature[i] {
			t.Fatalf("row %d differs between runs with the same seed", i)
		}
		if a.Irradiance[i] < 0 || a.Irradiance[i] >= 1000 {
			t.Errorf("irradiance %.2f out of range", a.Irradiance[i])
		}
		if a.Temperature[i] < 5 || a.Temperature[i] >= 45 {
			t.Errorf("temperature %.2f out of range", a.Temperature[i])
		}
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	set := Synthesize(500, 7, NewReferenceModel())
	m, err := Fit(set.Irradiance, set.Temperature, set.Fraction)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := m.SaveArtifact(path); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}

	loaded, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact() error = %v", err)
	}

	a := newAdapter(t, loaded)
	got, err := a.PredictPower([]float64{640}, []float64{31}, 5)
	if err != nil {
		t.Fatalf("PredictPower() error = %v", err)
	}
	want, _ := newAdapter(t, m).PredictPower([]float64{640}, []float64{31}, 5)
	if got[0].PowerKW != want[0].PowerKW {
		t.Errorf("loaded model predicts %v, fitted model %v", got[0].PowerKW, want[0].PowerKW)
	}
}
