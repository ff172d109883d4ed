package transform

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

var (
	refStation = ECEFPosition{X: 4863.38, Y: 2287.63, Z: 4012.00}
	refTarget  = ECEFPosition{X: 5023.57, Y: 2389.99, Z: 4203.11}
)

func TestECEFToSEZ_ReferenceScenario(t *testing.T) {
	sez, geo := ECEFToSEZ(refStation, refTarget)

	want := SEZVector{S: -39.56012098158712, E: 24.441169966312742, Z: 265.5165980472778}
	const tol = 1e-9 // km
	if math.Abs(sez.S-want.S) > tol || math.Abs(sez.E-want.E) > tol || math.Abs(sez.Z-want.Z) > tol {
		t.Errorf("ECEFToSEZ = %+v, want %+v", sez, want)
	}
	if !geo.Converged {
		t.Error("reference station did not converge")
	}
}

func TestECEFToSEZ_ZeroDisplacement(t *testing.T) {
	sez, _ := ECEFToSEZ(refStation, refStation)
	if sez != (SEZVector{}) {
		t.Errorf("ECEFToSEZ(station, station) = %+v, want zero vector", sez)
	}
}

func TestECEFToSEZ_Idempotent(t *testing.T) {
	a, geoA := ECEFToSEZ(refStation, refTarget)
	b, geoB := ECEFToSEZ(refStation, refTarget)
	if a != b || geoA != geoB {
		t.Errorf("repeated calls differ: %+v / %+v", a, b)
	}
}

func TestECEFToSEZ_Zenith(t *testing.T) {
	const k = 500.0 // km

	t.Run("equator radial", func(t *testing.T) {
		station := ECEFPosition{X: EarthRadiusKm}
		target := ECEFPosition{X: EarthRadiusKm + k}

		sez, _ := ECEFToSEZ(station, target)
		if math.Abs(sez.Z-k) > 1e-6 || math.Abs(sez.S) > 1e-6 || math.Abs(sez.E) > 1e-6 {
			t.Errorf("overhead target SEZ = %+v, want (0, 0, %v)", sez, k)
		}
	})

	t.Run("geodetic normal", func(t *testing.T) {
		// Away from the equator the zenith follows the ellipsoid normal,
		// not the geocentric radius.
		geo := SolveGeodetic(refStation, Reference())
		cosLat := math.Cos(geo.LatRad)
		target := ECEFPosition{
			X: refStation.X + k*cosLat*math.Cos(geo.LonRad),
			Y: refStation.Y + k*cosLat*math.Sin(geo.LonRad),
			Z: refStation.Z + k*math.Sin(geo.LatRad),
		}

		sez := ToSEZ(geo, refStation, target)
		if math.Abs(sez.Z-k) > 1e-6 || math.Abs(sez.S) > 1e-6 || math.Abs(sez.E) > 1e-6 {
			t.Errorf("overhead target SEZ = %+v, want (0, 0, %v)", sez, k)
		}
	})
}

func TestToSEZ_IgnoresHeight(t *testing.T) {
	geo := SolveGeodetic(refStation, Reference())
	want := ToSEZ(geo, refStation, refTarget)

	perturbed := geo
	perturbed.HeightKm += 1234.5
	perturbed.CurvatureKm *= 2
	perturbed.Iterations = 0
	perturbed.Converged = false

	if got := ToSEZ(perturbed, refStation, refTarget); got != want {
		t.Errorf("ToSEZ with perturbed height = %+v, want %+v", got, want)
	}
}

func TestToSEZ_PreservesRange(t *testing.T) {
	sez, _ := ECEFToSEZ(refStation, refTarget)
	want := refTarget.Sub(refStation).Norm()
	if math.Abs(sez.Range()-want) > 1e-9 {
		t.Errorf("SEZ range = %.12f km, ECEF range = %.12f km", sez.Range(), want)
	}
}

func TestSEZRotation_MatchesToSEZ(t *testing.T) {
	geo := SolveGeodetic(refStation, Reference())
	d := refTarget.Sub(refStation)

	var got mat.VecDense
	got.MulVec(SEZRotation(geo.LatRad, geo.LonRad), mat.NewVecDense(3, []float64{d.X, d.Y, d.Z}))

	want := ToSEZ(geo, refStation, refTarget)
	for i, w := range []float64{want.S, want.E, want.Z} {
		if math.Abs(got.AtVec(i)-w) > 1e-9 {
			t.Errorf("component %d: matrix = %.12f, scalar = %.12f", i, got.AtVec(i), w)
		}
	}
}

func TestRotationResidual(t *testing.T) {
	sez, geo := ECEFToSEZ(refStation, refTarget)
	if r := RotationResidual(geo, refStation, refTarget, sez); r > 1e-9 {
		t.Errorf("residual for ToSEZ output = %g km, want < 1e-9", r)
	}

	off := sez
	off.E += 0.25
	if r := RotationResidual(geo, refStation, refTarget, off); math.Abs(r-0.25) > 1e-9 {
		t.Errorf("residual with E shifted by 0.25 = %.12f km, want 0.25", r)
	}
}

func TestSEZRotation_Orthonormal(t *testing.T) {
	r := SEZRotation(0.6443067512858195, 0.4396709621258878)

	var rrt mat.Dense
	rrt.Mul(r, r.T())

	eye := mat.NewDiagDense(3, []float64{1, 1, 1})
	if !mat.EqualApprox(&rrt, eye, 1e-12) {
		t.Errorf("R·Rᵀ = %v, want identity", mat.Formatted(&rrt))
	}
	if det := mat.Det(r); math.Abs(det-1) > 1e-12 {
		t.Errorf("det(R) = %.15f, want 1", det)
	}
}

func TestLookAngles_Directions(t *testing.T) {
	tests := []struct {
		name   string
		sez    SEZVector
		wantAz float64
		wantEl float64
	}{
		{"north", SEZVector{S: -1}, 0, 0},
		{"east", SEZVector{E: 1}, 90, 0},
		{"south", SEZVector{S: 1}, 180, 0},
		{"west", SEZVector{E: -1}, 270, 0},
		{"overhead", SEZVector{Z: 400}, 0, 90},
		{"northeast 45 up", SEZVector{S: -1, E: 1, Z: math.Sqrt2}, 45, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			la := tt.sez.LookAngles()
			if math.Abs(la.AzimuthDeg-tt.wantAz) > 1e-9 {
				t.Errorf("azimuth = %.9f deg, want %v", la.AzimuthDeg, tt.wantAz)
			}
			if math.Abs(la.ElevationDeg-tt.wantEl) > 1e-9 {
				t.Errorf("elevation = %.9f deg, want %v", la.ElevationDeg, tt.wantEl)
			}
			if math.Abs(la.RangeKm-tt.sez.Range()) > 1e-12 {
				t.Errorf("range = %.9f km, want %.9f", la.RangeKm, tt.sez.Range())
			}
		})
	}
}

func TestLookAngles_ZeroVector(t *testing.T) {
	la := SEZVector{}.LookAngles()
	if la != (LookAngles{ElevationDeg: 90}) {
		t.Errorf("zero vector look angles = %+v", la)
	}
}
