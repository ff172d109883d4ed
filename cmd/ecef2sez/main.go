// Command ecef2sez converts an ECEF position into the South-East-Zenith frame
// of an ECEF station and prints the S, E and Z components in km, one per line.
//
//	ecef2sez [flags] o_x_km o_y_km o_z_km x_km y_km z_km
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/star/ecef2sez/internal/convert"
	"github.com/star/ecef2sez/internal/logging"
	"github.com/star/ecef2sez/internal/metrics"
	"github.com/star/ecef2sez/internal/observability"
	"github.com/star/ecef2sez/internal/transform"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	station, target [3]*float64

	lookAngles  *bool
	strict      *bool
	metricsFile *string
	logLevel    *string
	logFormat   *string
}

func newApp(stderr io.Writer) (*kingpin.Application, *options) {
	app := kingpin.New("ecef2sez", "Convert an ECEF position to SEZ coordinates relative to an ECEF station (Vallado, pp. 172-173).")
	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)
	app.Version(version)

	opts := &options{}
	opts.lookAngles = app.Flag("look-angles", "Also print azimuth (deg), elevation (deg) and range (km).").Bool()
	opts.strict = app.Flag("strict", "Reject stations with no horizontal component (x = y = 0) instead of printing NaN.").Envar("ECEF2SEZ_STRICT").Bool()
	opts.metricsFile = app.Flag("metrics-file", "Write prometheus metrics to this file after converting.").Envar("ECEF2SEZ_METRICS_FILE").String()
	opts.logLevel = app.Flag("log-level", "Log level: debug, info, warn, error.").Envar("ECEF2SEZ_LOG_LEVEL").Default("warn").String()
	opts.logFormat = app.Flag("log-format", "Log format: text or json.").Envar("ECEF2SEZ_LOG_FORMAT").Default("text").Enum("text", "json")

	for i, axis := range []string{"x", "y", "z"} {
		opts.station[i] = app.Arg("o_"+axis+"_km", "Station ECEF "+axis+" (km).").Required().Float64()
	}
	for i, axis := range []string{"x", "y", "z"} {
		opts.target[i] = app.Arg(axis+"_km", "Target ECEF "+axis+" (km).").Required().Float64()
	}

	return app, opts
}

// valueFlags take their value from the following argument.
var valueFlags = map[string]bool{
	"--metrics-file": true,
	"--log-level":    true,
	"--log-format":   true,
}

// separateNumbers moves numeric arguments behind a "--" terminator so that
// negative coordinates are not parsed as short flags.
func separateNumbers(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case isNumber(arg):
			positional = append(positional, arg)
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			flags = append(flags, arg)
			if valueFlags[arg] && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
		default:
			positional = append(positional, arg)
		}
	}
	return append(append(flags, "--"), positional...)
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app, opts := newApp(stderr)

	terminated := -1
	app.Terminate(func(code int) {
		if terminated < 0 {
			terminated = code
		}
	})

	_, err := app.Parse(separateNumbers(args))
	if terminated >= 0 {
		return terminated
	}
	if err != nil {
		app.Errorf("%s", err)
		app.Usage(nil)
		return exitUsage
	}

	logger := logging.New(logging.Config{Level: *opts.logLevel, Format: *opts.logFormat}, stderr)

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(version), stderr, logger)
	if err != nil {
		logger.Error("invalid tracing configuration", "error", err)
		return exitError
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, logger)

	station := transform.ECEFPosition{X: *opts.station[0], Y: *opts.station[1], Z: *opts.station[2]}
	target := transform.ECEFPosition{X: *opts.target[0], Y: *opts.target[1], Z: *opts.target[2]}

	conv := convert.NewConverter(convert.Config{Strict: *opts.strict}, logger)
	res, err := conv.Convert(ctx, station, target)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		writeMetrics(*opts.metricsFile, logger)
		return exitError
	}

	fmt.Fprintln(stdout, res.SEZ.S)
	fmt.Fprintln(stdout, res.SEZ.E)
	fmt.Fprintln(stdout, res.SEZ.Z)

	if *opts.lookAngles {
		la := res.SEZ.LookAngles()
		fmt.Fprintln(stdout, la.AzimuthDeg)
		fmt.Fprintln(stdout, la.ElevationDeg)
		fmt.Fprintln(stdout, la.RangeKm)
	}

	writeMetrics(*opts.metricsFile, logger)
	return exitOK
}

func writeMetrics(path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		logger.Warn("failed to write metrics file", "path", path, "error", err)
		return
	}
	logger.Debug("metrics written", "path", path)
}
