package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"solarcast/internal/models"
	"time"

	"gonum.org/v1/gonum/mat"
)

// LinearKind identifies a least-squares artifact on disk
const LinearKind = "linear"

// linearTerms are the regression terms, in coefficient order
var linearTerms = []string{"intercept", FeatureIrradiance, FeatureTemperature, FeatureIrradiance + "*" + FeatureTemperature}

// Artifact is the persisted form of a fitted LinearModel
type Artifact struct {
	Kind         string    `json:"kind"`
	Features     []string  `json:"features"`
	Terms        []string  `json:"terms"`
	Coefficients []float64 `json:"coefficients"`
	Samples      int       `json:"samples"`
	RMSE         float64   `json:"rmse"`
	TrainedAt    time.Time `json:"trained_at"`
}

// LinearModel is a least-squares fit of the power fraction over
// [1, irradiance, temperature, irradiance*temperature].
type LinearModel struct {
	artifact Artifact
}

// Fit solves the least-squares problem for the given training rows
func Fit(irradiance, tempC, fraction []float64) (*LinearModel, error) {
	n := len(fraction)
	if len(irradiance) != n || len(tempC) != n {
		return nil, fmt.Errorf("%w: %d irradiance, %d temperature, %d targets",
			models.ErrFeatureShapeMismatch, len(irradiance), len(tempC), n)
	}
	if n < len(linearTerms) {
		return nil, fmt.Errorf("need at least %d training samples, got %d", len(linearTerms), n)
	}

	x := mat.NewDense(n, len(linearTerms), nil)
	for i := 0; i < n; i++ {
		x.SetRow(i, design(irradiance[i], tempC[i]))
	}
	y := mat.NewVecDense(n, append([]float64(nil), fraction...))

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return nil, fmt.Errorf("least squares fit: %w", err)
	}

	coefficients := make([]float64, len(linearTerms))
	for i := range coefficients {
		coefficients[i] = beta.AtVec(i)
	}

	m := &LinearModel{artifact: Artifact{
		Kind:         LinearKind,
		Features:     FeatureNames(),
		Terms:        append([]string(nil), linearTerms...),
		Coefficients: coefficients,
		Samples:      n,
		TrainedAt:    time.Now().UTC(),
	}}

	var sse float64
	for i := 0; i < n; i++ {
		d := m.fraction(irradiance[i], tempC[i]) - fraction[i]
		sse += d * d
	}
	m.artifact.RMSE = math.Sqrt(sse / float64(n))

	return m, nil
}

func design(irradiance, tempC float64) []float64 {
	return []float64{1, irradiance, tempC, irradiance * tempC}
}

func (m *LinearModel) fraction(irradiance, tempC float64) float64 {
	c := m.artifact.Coefficients
	return c[0] + c[1]*irradiance + c[2]*tempC + c[3]*irradiance*tempC
}

func (m *LinearModel) Predict(features [][]float64) ([]float64, error) {
	if err := checkRows(features); err != nil {
		return nil, err
	}

	out := make([]float64, len(features))
	for i, row := range features {
		out[i] = m.fraction(row[0], row[1])
	}
	return out, nil
}

func (m *LinearModel) FeatureNames() []string {
	return append([]string(nil), m.artifact.Features...)
}

// Artifact returns the fitted coefficients and training metadata
func (m *LinearModel) Artifact() Artifact {
	return m.artifact
}

// SaveArtifact writes the model as indented JSON
func (m *LinearModel) SaveArtifact(path string) error {
	data, err := json.MarshalIndent(m.artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model artifact: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write model artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads a model written by SaveArtifact.
// A missing file is reported as ErrPredictorUnavailable.
func LoadArtifact(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: model artifact %s not found, run cmd/train first", models.ErrPredictorUnavailable, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}

	if a.Kind != LinearKind {
		return nil, fmt.Errorf("model artifact %s: unsupported kind %q", path, a.Kind)
	}
	if !sameFeatures(a.Features, FeatureNames()) {
		return nil, fmt.Errorf("%w: artifact %s trained on %v, want %v", models.ErrFeatureShapeMismatch, path, a.Features, FeatureNames())
	}
	if len(a.Coefficients) != len(linearTerms) {
		return nil, fmt.Errorf("%w: artifact %s has %d coefficients, want %d", models.ErrFeatureShapeMismatch, path, len(a.Coefficients), len(linearTerms))
	}

	return &LinearModel{artifact: a}, nil
}

// TrainingSet holds synthetic rows labelled by a ReferenceModel
type TrainingSet struct {
	Irradiance  []float64
	Temperature []float64
	Fraction    []float64
}

// Synthesize draws n rows with irradiance uniform in [0, 1000) W/m² and
// temperature uniform in [5, 45) °C, labelled by ref. The same seed gives the same rows.
func Synthesize(n int, seed int64, ref ReferenceModel) TrainingSet {
	r := rand.New(rand.NewSource(seed))
	set := TrainingSet{
		Irradiance:  make([]float64, n),
		Temperature: make([]float64, n),
		Fraction:    make([]float64, n),
	}

	for i := 0; i < n; i++ {
		set.Irradiance[i] = r.Float64() * stcIrradiance
		set.Temperature[i] = 5 + r.Float64()*40
	}
	for i := 0; i < n; i++ {
		set.Fraction[i] = ref.Fraction(set.Irradiance[i], set.Temperature[i])
	}
	return set
}
