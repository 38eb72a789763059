// Package solar computes the apparent position of the sun with the NOAA solar
// calculator equations, including the atmospheric refraction correction.
package solar

import (
	"fmt"
	"math"
	"solarcast/internal/models"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	j2000         = 2451545.0
	julianCentury = 36525.0
	solarConstant = 1366.1 // W/m²
)

// ComputeSunPosition returns the sun position for every timestamp, in input order
func ComputeSunPosition(loc models.Location, timestamps []time.Time) ([]models.SunPosition, error) {
	if !loc.Valid() {
		return nil, fmt.Errorf("%w: latitude %.4f, longitude %.4f", models.ErrInvalidLocation, loc.Latitude, loc.Longitude)
	}
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("sun position: %w", models.ErrEmptyInput)
	}

	positions := make([]models.SunPosition, len(timestamps))
	for i, ts := range timestamps {
		positions[i] = position(loc, ts)
	}
	return positions, nil
}

// Position returns the sun position for a single instant
func Position(loc models.Location, t time.Time) (models.SunPosition, error) {
	if !loc.Valid() {
		return models.SunPosition{}, fmt.Errorf("%w: latitude %.4f, longitude %.4f", models.ErrInvalidLocation, loc.Latitude, loc.Longitude)
	}
	return position(loc, t), nil
}

func position(loc models.Location, t time.Time) models.SunPosition {
	utc := t.UTC()
	T := (julian.TimeToJD(utc) - j2000) / julianCentury
	declination, eqTime := sunCoordinates(T)

	minutes := float64(utc.Hour()*60+utc.Minute()) + (float64(utc.Second())+float64(utc.Nanosecond())/1e9)/60
	trueSolarTime := minutes + eqTime + 4*loc.Longitude
	hourAngle := fixAngle(trueSolarTime/4) - 180

	latRad := degToRad(loc.Latitude)
	declRad := degToRad(declination)
	haRad := degToRad(hourAngle)

	cosZenith := math.Sin(latRad)*math.Sin(declRad) + math.Cos(latRad)*math.Cos(declRad)*math.Cos(haRad)
	cosZenith = math.Max(-1, math.Min(1, cosZenith))
	zenith := radToDeg(math.Acos(cosZenith))

	// measured westward from south, shifted to clockwise from north
	azimuth := radToDeg(math.Atan2(math.Sin(haRad), math.Cos(haRad)*math.Sin(latRad)-math.Tan(declRad)*math.Cos(latRad)))

	return models.SunPosition{
		Timestamp:      t,
		ApparentZenith: zenith - refraction(90-zenith),
		Azimuth:        fixAngle(azimuth + 180),
	}
}

// sunCoordinates returns the solar declination (degrees) and the equation of time (minutes)
// for T Julian centuries since J2000.
func sunCoordinates(T float64) (declination, eqTime float64) {
	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := 357.52911 + T*(35999.05029-T*0.0001537)
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)

	mRad := degToRad(M)
	C := math.Sin(mRad)*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(2*mRad)*(0.019993-T*0.000101) +
		math.Sin(3*mRad)*0.000289

	omega := degToRad(125.04 - 1934.136*T)
	lambda := degToRad(L0 + C - 0.00569 - 0.00478*math.Sin(omega))
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	eps := degToRad(eps0 + 0.00256*math.Cos(omega))

	declination = radToDeg(math.Asin(math.Sin(eps) * math.Sin(lambda)))

	y := math.Tan(eps/2) * math.Tan(eps/2)
	l0Rad := degToRad(L0)
	eqTime = 4 * radToDeg(y*math.Sin(2*l0Rad)-
		2*e*math.Sin(mRad)+
		4*e*y*math.Sin(mRad)*math.Cos(2*l0Rad)-
		0.5*y*y*math.Sin(4*l0Rad)-
		1.25*e*e*math.Sin(2*mRad))
	return declination, eqTime
}

// refraction returns the atmospheric refraction correction in degrees for a
// geometric elevation in degrees.
func refraction(elevation float64) float64 {
	var arcsec float64
	switch {
	case elevation > 85:
		return 0
	case elevation > 5:
		te := math.Tan(degToRad(elevation))
		arcsec = 58.1/te - 0.07/(te*te*te) + 0.000086/math.Pow(te, 5)
	case elevation > -0.575:
		arcsec = 1735 + elevation*(-518.2+elevation*(103.4+elevation*(-12.79+elevation*0.711)))
	default:
		arcsec = -20.772 / math.Tan(degToRad(elevation))
	}
	return arcsec / 3600
}

// ExtraterrestrialDNI returns the direct normal irradiance at the top of the
// atmosphere for the day of t (Spencer, 1971).
func ExtraterrestrialDNI(t time.Time) float64 {
	b := 2 * math.Pi * float64(t.UTC().YearDay()-1) / 365
	ratio := 1.00011 + 0.034221*math.Cos(b) + 0.00128*math.Sin(b) +
		0.000719*math.Cos(2*b) + 0.000077*math.Sin(2*b)
	return solarConstant * ratio
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }

func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// fixAngle normalizes an angle to [0, 360)
func fixAngle(a float64) float64 { return a - 360.0*math.Floor(a/360.0) }
