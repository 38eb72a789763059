package models

import "time"

// Location is a point on the globe in decimal degrees
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Valid reports whether the coordinates are finite and inside their ranges
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// SurfaceOrientation describes how the panels are mounted.
// Tilt is 0 for horizontal; Azimuth is measured clockwise from north, so 180 faces south.
type SurfaceOrientation struct {
	Tilt    float64 `json:"tilt" yaml:"tilt"`
	Azimuth float64 `json:"azimuth" yaml:"azimuth"`
}

// Valid reports whether tilt and azimuth are inside their ranges
func (o SurfaceOrientation) Valid() bool {
	return o.Tilt >= 0 && o.Tilt <= 90 && o.Azimuth >= 0 && o.Azimuth <= 360
}

// SkyObservation is one hour of forecast weather
type SkyObservation struct {
	Timestamp    time.Time `json:"timestamp"`
	TemperatureC float64   `json:"temperature_c"`
	GHI          float64   `json:"ghi"` // W/m²
	DNI          float64   `json:"dni"` // W/m²
	DHI          float64   `json:"dhi"` // W/m²
}

// SunPosition is the apparent sun position at one instant.
// A zenith of 90 or more means the sun is at or below the horizon.
type SunPosition struct {
	Timestamp      time.Time `json:"timestamp"`
	ApparentZenith float64   `json:"apparent_zenith"`
	Azimuth        float64   `json:"azimuth"`
}

// PlaneOfArrayIrradiance is the irradiance received by the tilted surface.
// Missing is empty when the value was resolved, otherwise it names why Global was forced to 0.
type PlaneOfArrayIrradiance struct {
	Timestamp       time.Time `json:"timestamp"`
	Global          float64   `json:"global"`
	Direct          float64   `json:"direct"`
	SkyDiffuse      float64   `json:"sky_diffuse"`
	GroundReflected float64   `json:"ground_reflected"`
	Missing         string    `json:"missing,omitempty"`
}

// PowerSample is the predicted AC output at one instant
type PowerSample struct {
	Timestamp time.Time `json:"timestamp"`
	PowerKW   float64   `json:"power_kw"`
}

// ForecastResult is the aggregated output of a forecast run
type ForecastResult struct {
	Samples        []PowerSample `json:"samples"`
	TotalEnergyKWh float64       `json:"total_energy_kwh"`
	SpecificYield  float64       `json:"specific_yield"` // kWh/kW
	PeakPowerKW    float64       `json:"peak_power_kw"`
	PeakAt         time.Time     `json:"peak_at"`
	Interval       time.Duration `json:"interval"`
}

// ForecastRow is one line of the per-timestamp detail table
type ForecastRow struct {
	Timestamp    time.Time `json:"timestamp"`
	TemperatureC float64   `json:"temperature_c"`
	GHI          float64   `json:"ghi"`
	POA          float64   `json:"poa"`
	PowerKW      float64   `json:"power_kw"`
}

// Site is a single PV installation
type Site struct {
	Name        string             `json:"name" yaml:"name"`
	Location    Location           `json:"location" yaml:"location"`
	Orientation SurfaceOrientation `json:"orientation" yaml:"orientation"`
	CapacityKW  float64            `json:"capacity_kw" yaml:"capacity_kw"`
}

// SiteForecast bundles everything a host needs to show one run
type SiteForecast struct {
	Site        Site            `json:"site"`
	Result      *ForecastResult `json:"result"`
	Rows        []ForecastRow   `json:"rows"`
	GeneratedAt time.Time       `json:"generated_at"`
}
