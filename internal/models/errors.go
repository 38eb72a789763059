package models

import "errors"

var (
	// Configuration problems: the operator has to fix the site setup
	ErrInvalidLocation    = errors.New("invalid location")
	ErrInvalidOrientation = errors.New("invalid surface orientation")
	ErrInvalidCapacity    = errors.New("invalid rated capacity")

	// Data problems: the weather feed or the caller handed over something unusable
	ErrEmptyInput        = errors.New("empty input")
	ErrEmptySeries       = errors.New("empty series")
	ErrMisalignedSeries  = errors.New("misaligned series")
	ErrMissingData       = errors.New("missing data")
	ErrIrregularSampling = errors.New("irregular sampling")

	ErrFeatureShapeMismatch = errors.New("feature shape mismatch")

	// Missing dependency: the predictor has not been trained or cannot be reached
	ErrPredictorUnavailable = errors.New("predictor unavailable")
)

// ErrorKind groups errors by the corrective action they need
type ErrorKind string

const (
	KindUnknown       ErrorKind = "unknown"
	KindData          ErrorKind = "data"
	KindConfiguration ErrorKind = "configuration"
	KindDependency    ErrorKind = "dependency"
)

// KindOf classifies err so hosts can tell a feed problem from a bad setup or a missing model
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrPredictorUnavailable):
		return KindDependency
	case errors.Is(err, ErrInvalidLocation),
		errors.Is(err, ErrInvalidOrientation),
		errors.Is(err, ErrInvalidCapacity):
		return KindConfiguration
	case errors.Is(err, ErrEmptyInput),
		errors.Is(err, ErrEmptySeries),
		errors.Is(err, ErrMisalignedSeries),
		errors.Is(err, ErrMissingData),
		errors.Is(err, ErrIrregularSampling),
		errors.Is(err, ErrFeatureShapeMismatch):
		return KindData
	}
	return KindUnknown
}
