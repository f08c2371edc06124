// Package forecast projects a per-period series forward with a confidence band.
package forecast

import (
	"fmt"
	"math"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/stats"
)

// Method selects the projection model.
type Method string

const (
	MethodLinear        Method = "linear"
	MethodMovingAverage Method = "moving_average"
)

// ParseMethod accepts "linear" or "moving_average".
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodLinear, MethodMovingAverage:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown forecast method %q: must be linear or moving_average", s)
}

// Point is one observed value of a series.
type Point struct {
	Period domain.Period
	Value  float64
}

// ProjectedPoint is one future value with its confidence band.
type ProjectedPoint struct {
	Period domain.Period
	Value  float64
	Lower  float64
	Upper  float64
}

// Options configures Project.
type Options struct {
	Method     Method
	Confidence float64
	// Window is the number of trailing points averaged by MethodMovingAverage.
	Window int
}

// DefaultOptions: linear fit with a 95% band and a 3-period window.
func DefaultOptions() Options {
	return Options{Method: MethodLinear, Confidence: 0.95, Window: 3}
}

// Projection is the result of Project.
type Projection struct {
	Method         Method
	Confidence     float64
	Z              float64
	Slope          float64
	Intercept      float64
	ResidualStdDev float64
	Window         int
	Points         []ProjectedPoint
}

// Project extends series by horizon periods. The series is assumed to be
// ordered and gap-free, one point per period.
//
// For MethodLinear a least-squares line is fitted over x = 0..n-1 and the
// band is ±z·s where s is the residual standard deviation. The band has the
// same width at every horizon step. For MethodMovingAverage the projection
// is the mean of the last Window values and the band uses their sample
// standard deviation.
//
// At least two points are required, otherwise *domain.InsufficientDataError
// is returned.
func Project(series []Point, horizon int, opts Options) (*Projection, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("Project: horizon must be positive, got %d", horizon)
	}
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		return nil, fmt.Errorf("Project: confidence must be in (0, 1), got %v", opts.Confidence)
	}
	if opts.Method == "" {
		opts.Method = MethodLinear
	}
	if len(series) < 2 {
		return nil, &domain.InsufficientDataError{Operation: "forecast", Need: 2, Have: len(series)}
	}

	ys := make([]float64, len(series))
	for i, p := range series {
		ys[i] = p.Value
	}

	proj := &Projection{
		Method:     opts.Method,
		Confidence: opts.Confidence,
		Z:          stats.NormalQuantile(opts.Confidence),
	}

	var value func(step int) float64
	switch opts.Method {
	case MethodLinear:
		proj.Slope, proj.Intercept = stats.LinearFit(ys)
		proj.ResidualStdDev = residualStdDev(ys, proj.Slope, proj.Intercept)
		n := len(ys)
		value = func(step int) float64 {
			return proj.Intercept + proj.Slope*float64(n-1+step)
		}
	case MethodMovingAverage:
		w := opts.Window
		if w < 2 {
			w = 2
		}
		if w > len(ys) {
			w = len(ys)
		}
		tail := ys[len(ys)-w:]
		mean := stats.Mean(tail)
		proj.Window = w
		proj.ResidualStdDev = stats.StdDev(tail)
		value = func(int) float64 { return mean }
	default:
		return nil, fmt.Errorf("Project: unknown method %q", opts.Method)
	}

	half := proj.Z * proj.ResidualStdDev
	last := series[len(series)-1].Period
	for step := 1; step <= horizon; step++ {
		v := value(step)
		proj.Points = append(proj.Points, ProjectedPoint{
			Period: last.Add(step),
			Value:  v,
			Lower:  v - half,
			Upper:  v + half,
		})
	}

	return proj, nil
}

// residualStdDev is sqrt(SSR/(n-2)), or 0 when the line passes through
// exactly two points.
func residualStdDev(ys []float64, slope, intercept float64) float64 {
	n := len(ys)
	if n <= 2 {
		return 0
	}
	var ssr float64
	for i, y := range ys {
		r := y - (intercept + slope*float64(i))
		ssr += r * r
	}
	return math.Sqrt(ssr / float64(n-2))
}
