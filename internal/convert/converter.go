// Package convert runs the ECEF to SEZ transform with logging, tracing and
// metrics around it.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/star/ecef2sez/internal/metrics"
	"github.com/star/ecef2sez/internal/transform"
)

const tracerName = "github.com/star/ecef2sez/internal/convert"

// A station rebuilt from its geodetic estimate normally lands within a few
// millimetres of where it started.
const geodeticResidualWarnKm = 1e-3

// Config controls converter behaviour.
type Config struct {
	// Strict rejects stations the solver cannot handle instead of letting
	// NaN or Inf reach the result.
	Strict bool
}

// Result is the outcome of a single conversion.
type Result struct {
	Geodetic transform.GeodeticEstimate
	SEZ      transform.SEZVector
}

// Converter is safe for concurrent use.
type Converter struct {
	config Config
	logger *slog.Logger
	tracer trace.Tracer
}

// NewConverter creates a converter. Spans go to the global tracer provider.
func NewConverter(config Config, logger *slog.Logger) *Converter {
	return &Converter{
		config: config,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Convert expresses target in the SEZ frame of station. Errors are only
// returned in strict mode.
func (c *Converter) Convert(ctx context.Context, station, target transform.ECEFPosition) (Result, error) {
	_, span := c.tracer.Start(ctx, "ecef2sez.Convert", trace.WithAttributes(
		attribute.Float64Slice("station_ecef_km", []float64{station.X, station.Y, station.Z}),
		attribute.Float64Slice("target_ecef_km", []float64{target.X, target.Y, target.Z}),
		attribute.Bool("strict", c.config.Strict),
	))
	defer span.End()

	if c.config.Strict {
		if err := transform.ValidateStation(station); err != nil {
			metrics.RecordRejected()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Debug("station rejected", "station", station, "error", err)
			return Result{}, fmt.Errorf("invalid station %v: %w", station, err)
		}
	}

	sez, geo := transform.ECEFToSEZ(station, target)
	rotResidual := transform.RotationResidual(geo, station, target, sez)
	geoResidual := transform.Reference().Residual(station, geo)

	span.SetAttributes(
		attribute.Float64("geodetic.lat_rad", geo.LatRad),
		attribute.Float64("geodetic.lon_rad", geo.LonRad),
		attribute.Float64("geodetic.height_km", geo.HeightKm),
		attribute.Int("geodetic.iterations", geo.Iterations),
		attribute.Bool("geodetic.converged", geo.Converged),
		attribute.Float64("geodetic.residual_km", geoResidual),
		attribute.Float64("sez.rotation_residual_km", rotResidual),
	)

	c.logger.Debug("station solved",
		"lon_deg", geo.LonRad*180/math.Pi,
		"lat_deg", geo.LatRad*180/math.Pi,
		"height_km", geo.HeightKm,
		"curvature_km", geo.CurvatureKm,
		"iterations", geo.Iterations,
		"geodetic_residual_km", geoResidual,
		"rotation_residual_km", rotResidual,
	)
	if !geo.Converged {
		c.logger.Warn("latitude did not converge, using last estimate",
			"iterations", geo.Iterations,
			"lat_rad", geo.LatRad,
		)
	}
	if geoResidual > geodeticResidualWarnKm {
		c.logger.Warn("geodetic estimate does not reproduce the station",
			"station", station,
			"residual_km", geoResidual,
		)
	}

	outcome := metrics.OutcomeOK
	if !finite(sez) {
		outcome = metrics.OutcomeNonFinite
		span.SetStatus(codes.Error, "non-finite result")
		c.logger.Warn("conversion produced non-finite values", "station", station, "sez", sez)
	}
	metrics.RecordConversion(outcome, geo.Iterations, geo.Converged, sez.Range())
	metrics.RecordResidual(metrics.CheckRotation, rotResidual)
	metrics.RecordResidual(metrics.CheckGeodetic, geoResidual)

	return Result{Geodetic: geo, SEZ: sez}, nil
}

func finite(v transform.SEZVector) bool {
	for _, x := range [...]float64{v.S, v.E, v.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
