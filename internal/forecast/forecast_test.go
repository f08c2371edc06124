package forecast

import (
	"errors"
	"math"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

func monthlySeries(values ...float64) []Point {
	start := domain.PeriodOf(domain.BucketMonth, civil.Date{Year: 2024, Month: 1, Day: 1})
	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{Period: start.Add(i), Value: v}
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestProject_PerfectLine(t *testing.T) {
	proj, err := Project(monthlySeries(100, 200, 300, 400), 2, DefaultOptions())
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	if !approx(proj.Slope, 100) || !approx(proj.Intercept, 100) {
		t.Errorf("slope/intercept = %v/%v, want 100/100", proj.Slope, proj.Intercept)
	}
	if !approx(proj.ResidualStdDev, 0) {
		t.Errorf("ResidualStdDev = %v, want 0", proj.ResidualStdDev)
	}

	want := []struct {
		period string
		value  float64
	}{
		{"2024-05", 500},
		{"2024-06", 600},
	}
	if len(proj.Points) != len(want) {
		t.Fatalf("Expected %d points, got %d", len(want), len(proj.Points))
	}
	for i, w := range want {
		p := proj.Points[i]
		if p.Period.String() != w.period {
			t.Errorf("Points[%d].Period = %s, want %s", i, p.Period, w.period)
		}
		if !approx(p.Value, w.value) || !approx(p.Lower, w.value) || !approx(p.Upper, w.value) {
			t.Errorf("Points[%d] = %+v, want %v with zero band", i, p, w.value)
		}
	}
}

func TestProject_Band(t *testing.T) {
	proj, err := Project(monthlySeries(100, 300, 200, 400), 3, DefaultOptions())
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	if !approx(proj.Z, 1.959963984540054) {
		t.Errorf("Z = %v, want 1.96", proj.Z)
	}
	if proj.ResidualStdDev <= 0 {
		t.Fatalf("Expected a positive residual stddev, got %v", proj.ResidualStdDev)
	}

	var width float64
	for i, p := range proj.Points {
		if !(p.Lower <= p.Value && p.Value <= p.Upper) {
			t.Errorf("Points[%d] not inside its band: %+v", i, p)
		}
		w := p.Upper - p.Lower
		if i > 0 && !approx(w, width) {
			t.Errorf("Band width changed at step %d: %v vs %v", i, w, width)
		}
		width = w
	}
}

func TestProject_HigherConfidenceWidensBand(t *testing.T) {
	series := monthlySeries(100, 300, 200, 400, 350)

	p80, err := Project(series, 1, Options{Method: MethodLinear, Confidence: 0.80})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	p99, err := Project(series, 1, Options{Method: MethodLinear, Confidence: 0.99})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	w80 := p80.Points[0].Upper - p80.Points[0].Lower
	w99 := p99.Points[0].Upper - p99.Points[0].Lower
	if w99 <= w80 {
		t.Errorf("99%% band (%v) should be wider than 80%% band (%v)", w99, w80)
	}
}

func TestProject_MovingAverage(t *testing.T) {
	proj, err := Project(monthlySeries(10, 100, 200, 300), 2,
		Options{Method: MethodMovingAverage, Confidence: 0.95, Window: 3})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	if proj.Window != 3 {
		t.Errorf("Window = %d, want 3", proj.Window)
	}
	for i, p := range proj.Points {
		if !approx(p.Value, 200) {
			t.Errorf("Points[%d].Value = %v, want 200", i, p.Value)
		}
	}
	// sample stddev of 100, 200, 300 is 100
	if !approx(proj.ResidualStdDev, 100) {
		t.Errorf("ResidualStdDev = %v, want 100", proj.ResidualStdDev)
	}
}

func TestProject_Errors(t *testing.T) {
	tests := []struct {
		name         string
		series       []Point
		horizon      int
		opts         Options
		insufficient bool
	}{
		{name: "single point", series: monthlySeries(100), horizon: 1, opts: DefaultOptions(), insufficient: true},
		{name: "empty", series: nil, horizon: 1, opts: DefaultOptions(), insufficient: true},
		{name: "zero horizon", series: monthlySeries(1, 2), horizon: 0, opts: DefaultOptions()},
		{name: "confidence too high", series: monthlySeries(1, 2), horizon: 1, opts: Options{Confidence: 1}},
		{name: "unknown method", series: monthlySeries(1, 2), horizon: 1, opts: Options{Method: "arima", Confidence: 0.9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Project(tt.series, tt.horizon, tt.opts)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			var ide *domain.InsufficientDataError
			if errors.As(err, &ide) != tt.insufficient {
				t.Errorf("InsufficientDataError = %v, want %v (err: %v)", !tt.insufficient, tt.insufficient, err)
			}
		})
	}
}

func TestParseMethod(t *testing.T) {
	if m, err := ParseMethod("moving_average"); err != nil || m != MethodMovingAverage {
		t.Errorf("ParseMethod(moving_average) = %v, %v", m, err)
	}
	if _, err := ParseMethod("prophet"); err == nil {
		t.Error("Expected error for unknown method")
	}
}
