// Package irradiance transposes horizontal irradiance components onto a tilted plane.
package irradiance

import (
	"fmt"
	"math"
	"solarcast/internal/models"
	"solarcast/internal/solar"
)

// Model selects the sky-diffuse transposition model
type Model string

const (
	// Isotropic treats the sky dome as uniformly bright
	Isotropic Model = "isotropic"
	// HayDavies adds a circumsolar component weighted by the anisotropy index DNI/DNI_extra
	HayDavies Model = "haydavies"
)

// DefaultAlbedo is the ground reflectance used when none is configured
const DefaultAlbedo = 0.25

// Reasons an estimate could not be resolved
const (
	ReasonSunBelowHorizon = "sun below horizon"
	ReasonNonFiniteInput  = "non-finite input"
	ReasonNonFiniteResult = "non-finite result"
)

// minCosZenith bounds the beam ratio near the horizon (cos 89°)
const minCosZenith = 0.01745

// Engine converts GHI/DNI/DHI plus sun geometry into plane-of-array irradiance.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	model  Model
	albedo float64
}

// NewEngine creates a transposition engine. An empty model means Isotropic.
func NewEngine(model Model, albedo float64) (*Engine, error) {
	switch model {
	case "":
		model = Isotropic
	case Isotropic, HayDavies:
	default:
		return nil, fmt.Errorf("unknown transposition model %q", model)
	}

	if math.IsNaN(albedo) || albedo < 0 || albedo > 1 {
		return nil, fmt.Errorf("albedo must be between 0 and 1, got %v", albedo)
	}

	return &Engine{model: model, albedo: albedo}, nil
}

// Model returns the sky-diffuse model in use
func (e *Engine) Model() Model {
	return e.model
}

// estimate is the per-timestamp result before it crosses the engine boundary.
// missing is empty when the components are resolved.
type estimate struct {
	direct     float64
	skyDiffuse float64
	ground     float64
	missing    string
}

func missing(reason string) estimate {
	return estimate{missing: reason}
}

// Transpose computes POA irradiance for each aligned pair of sun position and observation.
// Undefined values become 0 with the reason recorded in Missing.
func (e *Engine) Transpose(o models.SurfaceOrientation, sun []models.SunPosition, obs []models.SkyObservation) ([]models.PlaneOfArrayIrradiance, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: tilt %.2f, azimuth %.2f", models.ErrInvalidOrientation, o.Tilt, o.Azimuth)
	}

	if len(sun) != len(obs) {
		return nil, fmt.Errorf("%w: %d sun positions but %d observations", models.ErrMisalignedSeries, len(sun), len(obs))
	}

	for i := range obs {
		if !sun[i].Timestamp.Equal(obs[i].Timestamp) {
			return nil, fmt.Errorf("%w: index %d has sun position at %s but observation at %s",
				models.ErrMisalignedSeries, i, sun[i].Timestamp.Format("2006-01-02T15:04Z07:00"), obs[i].Timestamp.Format("2006-01-02T15:04Z07:00"))
		}
	}

	poa := make([]models.PlaneOfArrayIrradiance, len(obs))
	for i := range obs {
		poa[i] = e.estimate(o, sun[i], obs[i]).collapse(obs[i])
	}
	return poa, nil
}

func (e *Engine) estimate(o models.SurfaceOrientation, sun models.SunPosition, sky models.SkyObservation) estimate {
	if !finite(sun.ApparentZenith, sun.Azimuth, sky.GHI, sky.DNI, sky.DHI) {
		return missing(ReasonNonFiniteInput)
	}

	if sun.ApparentZenith >= 90 {
		return missing(ReasonSunBelowHorizon)
	}

	cosAOI := CosAngleOfIncidence(o, sun)
	cosTilt := math.Cos(degToRad(o.Tilt))

	var skyDiffuse float64
	switch e.model {
	case HayDavies:
		cosZenith := math.Max(math.Cos(degToRad(sun.ApparentZenith)), minCosZenith)
		beamRatio := math.Max(cosAOI, 0) / cosZenith
		anisotropy := sky.DNI / solar.ExtraterrestrialDNI(sky.Timestamp)
		isotropic := math.Max(sky.DHI*(1-anisotropy)*(1+cosTilt)/2, 0)
		circumsolar := math.Max(sky.DHI*anisotropy*beamRatio, 0)
		skyDiffuse = isotropic + circumsolar
	default:
		skyDiffuse = sky.DHI * (1 + cosTilt) / 2
	}

	est := estimate{
		direct:     math.Max(sky.DNI*cosAOI, 0),
		skyDiffuse: math.Max(skyDiffuse, 0),
		ground:     math.Max(sky.GHI*e.albedo*(1-cosTilt)/2, 0),
	}

	if !finite(est.direct, est.skyDiffuse, est.ground) {
		return missing(ReasonNonFiniteResult)
	}
	return est
}

// collapse turns an estimate into the outward value; missing estimates become 0
func (est estimate) collapse(sky models.SkyObservation) models.PlaneOfArrayIrradiance {
	if est.missing != "" {
		return models.PlaneOfArrayIrradiance{Timestamp: sky.Timestamp, Missing: est.missing}
	}

	return models.PlaneOfArrayIrradiance{
		Timestamp:       sky.Timestamp,
		Global:          est.direct + est.skyDiffuse + est.ground,
		Direct:          est.direct,
		SkyDiffuse:      est.skyDiffuse,
		GroundReflected: est.ground,
	}
}

// CosAngleOfIncidence returns the cosine of the angle between the sun beam and the surface normal.
// Negative values mean the sun is behind the plane.
func CosAngleOfIncidence(o models.SurfaceOrientation, sun models.SunPosition) float64 {
	tilt := degToRad(o.Tilt)
	zenith := degToRad(sun.ApparentZenith)
	cos := math.Cos(zenith)*math.Cos(tilt) +
		math.Sin(zenith)*math.Sin(tilt)*math.Cos(degToRad(sun.Azimuth-o.Azimuth))
	return math.Max(-1, math.Min(1, cos))
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
