package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SEZVector is a position in a station's topocentric South-East-Zenith frame (km).
type SEZVector struct {
	S, E, Z float64
}

// LookAngles holds azimuth, elevation, and range from station to target.
type LookAngles struct {
	AzimuthDeg   float64 // 0 = North, clockwise
	ElevationDeg float64 // 0 = horizon, 90 = zenith
	RangeKm      float64
}

// ToSEZ rotates the ECEF range vector from station to target into the
// station's SEZ frame. Only geo's latitude and longitude are used.
func ToSEZ(geo GeodeticEstimate, station, target ECEFPosition) SEZVector {
	d := target.Sub(station)

	sinLat := math.Sin(geo.LatRad)
	cosLat := math.Cos(geo.LatRad)
	sinLon := math.Sin(geo.LonRad)
	cosLon := math.Cos(geo.LonRad)

	return SEZVector{
		S: -d.Z*cosLat + d.X*cosLon*sinLat + d.Y*sinLat*sinLon,
		E: d.Y*cosLon - d.X*sinLon,
		Z: d.X*cosLat*cosLon + d.Z*sinLat + d.Y*cosLat*sinLon,
	}
}

// ECEFToSEZ locates the station on the reference ellipsoid and expresses the
// target in the station's SEZ frame.
func ECEFToSEZ(station, target ECEFPosition) (SEZVector, GeodeticEstimate) {
	geo := SolveGeodetic(station, Reference())
	return ToSEZ(geo, station, target), geo
}

// SEZRotation returns the ECEF to SEZ rotation R2(90°-lat)·R3(lon) as a 3x3
// matrix whose rows are the South, East and Zenith unit vectors.
func SEZRotation(latRad, lonRad float64) *mat.Dense {
	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	sinLon := math.Sin(lonRad)
	cosLon := math.Cos(lonRad)

	return mat.NewDense(3, 3, []float64{
		sinLat * cosLon, sinLat * sinLon, -cosLat,
		-sinLon, cosLon, 0,
		cosLat * cosLon, cosLat * sinLon, sinLat,
	})
}

// RotationResidual returns the largest absolute difference between sez and
// the matrix product SEZRotation·(target − station). It measures how far the
// expanded scalar rotation drifts from the matrix form for this geometry.
func RotationResidual(geo GeodeticEstimate, station, target ECEFPosition, sez SEZVector) float64 {
	d := target.Sub(station)

	var rotated mat.VecDense
	rotated.MulVec(SEZRotation(geo.LatRad, geo.LonRad), mat.NewVecDense(3, []float64{d.X, d.Y, d.Z}))

	diff := mat.NewVecDense(3, []float64{sez.S, sez.E, sez.Z})
	diff.SubVec(diff, &rotated)
	return mat.Norm(diff, math.Inf(1))
}

// Range returns the straight-line distance from station to target.
func (v SEZVector) Range() float64 {
	return math.Sqrt(v.S*v.S + v.E*v.E + v.Z*v.Z)
}

// LookAngles converts the SEZ vector to azimuth, elevation, and range.
// A zero vector is reported as straight up with azimuth 0.
func (v SEZVector) LookAngles() LookAngles {
	rangeKm := v.Range()
	if rangeKm == 0 {
		return LookAngles{ElevationDeg: 90}
	}

	el := math.Asin(v.Z / rangeKm)

	// North is the -S direction. Straight up has no azimuth; report 0.
	var az float64
	if v.S != 0 || v.E != 0 {
		az = math.Atan2(v.E, -v.S)
		if az < 0 {
			az += 2 * math.Pi
		}
	}

	return LookAngles{
		AzimuthDeg:   az * 180.0 / math.Pi,
		ElevationDeg: el * 180.0 / math.Pi,
		RangeKm:      rangeKm,
	}
}
