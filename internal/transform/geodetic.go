// Package transform converts station and target positions from ECEF
// (Earth-Centered Earth-Fixed) into the station's topocentric SEZ
// (South-East-Zenith) frame.
//
// The station is first located on the reference ellipsoid with a fixed-point
// latitude iteration, then the ECEF range vector is rotated into SEZ using the
// station's geodetic latitude and longitude.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications",
// 4th ed., pp. 172-173.
package transform

import (
	"errors"
	"math"
)

// Reference ellipsoid parameters.
const (
	EarthRadiusKm     = 6378.1363      // equatorial radius (km)
	EarthEccentricity = 0.081819221456 // first eccentricity
)

// Latitude iteration policy.
const (
	MaxGeodeticIterations = 5
	LatitudeTolerance     = 1e-6 // radians
)

var (
	// ErrDegenerateStation is returned by ValidateStation when x = y = 0,
	// where the latitude update divides by zero.
	ErrDegenerateStation = errors.New("station has no horizontal component (on the polar axis or at the origin)")

	// ErrNonFinite is returned by ValidateStation when a component is NaN or Inf.
	ErrNonFinite = errors.New("station coordinate is not finite")
)

// Ellipsoid holds the parameters of a reference ellipsoid.
type Ellipsoid struct {
	RadiusKm     float64
	Eccentricity float64
}

// Reference returns the reference ellipsoid used throughout the package.
func Reference() Ellipsoid {
	return Ellipsoid{RadiusKm: EarthRadiusKm, Eccentricity: EarthEccentricity}
}

// ECEFPosition is a point in the ECEF frame (km).
type ECEFPosition struct {
	X, Y, Z float64
}

// Norm returns the distance from Earth's center.
func (p ECEFPosition) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Sub returns p - other.
func (p ECEFPosition) Sub(other ECEFPosition) ECEFPosition {
	return ECEFPosition{X: p.X - other.X, Y: p.Y - other.Y, Z: p.Z - other.Z}
}

// GeodeticEstimate is the station's location on the ellipsoid.
type GeodeticEstimate struct {
	LonRad, LatRad float64
	CurvatureKm    float64 // radius of curvature in the prime vertical
	HeightKm       float64 // height above the ellipsoid
	Iterations     int     // latitude refinement steps executed
	Converged      bool    // last step moved latitude by no more than LatitudeTolerance
}

// ToECEF converts geodetic coordinates (radians, km above the ellipsoid) to ECEF.
func (e Ellipsoid) ToECEF(latRad, lonRad, heightKm float64) ECEFPosition {
	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	e2 := e.Eccentricity * e.Eccentricity

	N := e.RadiusKm / math.Sqrt(1-e2*sinLat*sinLat)

	return ECEFPosition{
		X: (N + heightKm) * cosLat * math.Cos(lonRad),
		Y: (N + heightKm) * cosLat * math.Sin(lonRad),
		Z: (N*(1-e2) + heightKm) * sinLat,
	}
}

// Residual returns the distance (km) between p and the position rebuilt
// from geo. A few millimetres is normal; a large value means geo does not
// describe p, as happens for stations on the polar axis.
func (e Ellipsoid) Residual(p ECEFPosition, geo GeodeticEstimate) float64 {
	return e.ToECEF(geo.LatRad, geo.LonRad, geo.HeightKm).Sub(p).Norm()
}

// SolveGeodetic locates an ECEF position on the ellipsoid.
//
// Longitude is exact. Latitude starts from the spherical estimate and is
// refined until two successive values differ by at most LatitudeTolerance or
// MaxGeodeticIterations steps have run; a non-converged estimate is returned
// as is. The position must satisfy x²+y² > 0. This is not checked here;
// whatever the division by zero produces propagates to the result (see
// ValidateStation).
func SolveGeodetic(p ECEFPosition, e Ellipsoid) GeodeticEstimate {
	lon := math.Atan2(p.Y, p.X)
	lat := math.Asin(p.Z / p.Norm())
	rxy := math.Sqrt(p.X*p.X + p.Y*p.Y)
	e2 := e.Eccentricity * e.Eccentricity

	var (
		c         float64
		n         int
		converged bool
	)
	for n < MaxGeodeticIterations {
		sinLat := math.Sin(lat)
		c = e.RadiusKm / math.Sqrt(1-e2*sinLat*sinLat)
		next := math.Atan((p.Z + c*e2*sinLat) / rxy)
		n++

		converged = math.Abs(next-lat) <= LatitudeTolerance
		lat = next
		if converged {
			break
		}
	}

	return GeodeticEstimate{
		LonRad:      lon,
		LatRad:      lat,
		CurvatureKm: c,
		HeightKm:    rxy/math.Cos(lat) - c,
		Iterations:  n,
		Converged:   converged,
	}
}

// ValidateStation reports whether SolveGeodetic can produce finite results
// for p.
func ValidateStation(p ECEFPosition) error {
	for _, v := range [...]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}
	if p.X == 0 && p.Y == 0 {
		return ErrDegenerateStation
	}
	return nil
}
