// Package dashboard assembles every section of the dashboard for one filter
// state. Build is pure; sections that cannot be computed carry an error
// instead of failing the view.
package dashboard

import (
	"fmt"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/analytics"
	"github.com/dvloznov/finance-dashboard/internal/anomaly"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/forecast"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
)

// Target is the series projected forward.
type Target string

const (
	TargetBalance Target = "balance"
	TargetFlow    Target = "flow"
	TargetExpense Target = "expense"
)

// ParseTarget accepts "balance", "flow" or "expense".
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetBalance, TargetFlow, TargetExpense:
		return Target(s), nil
	}
	return "", fmt.Errorf("unknown forecast target %q: must be balance, flow or expense", s)
}

// State is what the user has selected.
type State struct {
	Filter ledger.Filter
	Bucket domain.Bucket
	// ForecastHorizon is the number of periods to project. 0 disables the
	// projection section.
	ForecastHorizon int
	ForecastTarget  Target
	// TopN limits the category ranking. 0 keeps every category.
	TopN int
}

// DefaultState: whole ledger, monthly buckets, three-period balance forecast.
func DefaultState() State {
	return State{
		Bucket:          domain.BucketMonth,
		ForecastHorizon: 3,
		ForecastTarget:  TargetBalance,
		TopN:            10,
	}
}

// Config carries the tunables of the analytics components.
type Config struct {
	Detector         anomaly.Options
	OutlierThreshold float64
	Projection       forecast.Options
	Alerts           analytics.AlertOptions
	RecentLimit      int
}

// DefaultConfig returns the defaults of every component.
func DefaultConfig() Config {
	return Config{
		Detector:         anomaly.DefaultOptions(),
		OutlierThreshold: 2.0,
		Projection:       forecast.DefaultOptions(),
		Alerts:           analytics.DefaultAlertOptions(),
		RecentLimit:      50,
	}
}

// AnomalySection holds the period-level anomalies, or why there are none.
type AnomalySection struct {
	Items []anomaly.Anomaly
	Err   error
}

// ProjectionSection holds the projection of the selected target.
type ProjectionSection struct {
	Target     Target
	Projection *forecast.Projection
	Err        error
}

// View is everything the dashboard renders for one state.
type View struct {
	State      State
	Source     string
	LoadedAt   time.Time
	Categories []string

	KPIs             analytics.KPISet
	IncomeVariation  analytics.Variation
	ExpenseVariation analytics.Variation
	Trend            analytics.FlowTrend

	Aggregates []analytics.PeriodAggregate
	Series     []analytics.SeriesPoint
	Breakdown  []analytics.CategoryNode
	Ranking    []analytics.CategoryRank

	Anomalies  AnomalySection
	Outliers   []anomaly.Anomaly
	Projection ProjectionSection

	Alerts   []analytics.Alert
	Insights []analytics.Insight

	// Recent holds the newest transactions first.
	Recent []domain.Transaction
}

// Build computes the view of l under state s.
func Build(l *ledger.Ledger, s State, cfg Config) *View {
	if s.Bucket == "" {
		s.Bucket = domain.BucketMonth
	}
	if s.ForecastTarget == "" {
		s.ForecastTarget = TargetBalance
	}

	view := l.Filter(s.Filter)

	v := &View{
		State:      s,
		Source:     l.Source(),
		LoadedAt:   l.LoadedAt(),
		Categories: l.Categories(),

		KPIs:             analytics.KPIs(view),
		IncomeVariation:  analytics.VariationOf(view, domain.KindIncome),
		ExpenseVariation: analytics.VariationOf(view, domain.KindExpense),
		Trend:            analytics.FlowTrendOf(view),

		Aggregates: analytics.Aggregate(view, s.Bucket),
		Series:     analytics.Series(view, s.Bucket),
		Breakdown:  analytics.Breakdown(view),
		Ranking:    analytics.Ranking(view, s.TopN),

		Outliers: anomaly.DetectTransactions(view, cfg.OutlierThreshold),
	}

	v.Anomalies.Items, v.Anomalies.Err = anomaly.Detect(view, cfg.Detector)

	v.Projection.Target = s.ForecastTarget
	if s.ForecastHorizon > 0 {
		v.Projection.Projection, v.Projection.Err = forecast.Project(
			ForecastSeries(v.Series, s.ForecastTarget), s.ForecastHorizon, cfg.Projection)
	}

	v.Alerts = analytics.Alerts(v.KPIs, v.Ranking, len(v.Anomalies.Items)+len(v.Outliers), cfg.Alerts)
	v.Insights = analytics.Insights(v.KPIs, v.Ranking, v.Trend)
	v.Recent = recent(view, cfg.RecentLimit)

	return v
}

// ForecastSeries extracts the values of target from a time series.
func ForecastSeries(series []analytics.SeriesPoint, target Target) []forecast.Point {
	out := make([]forecast.Point, len(series))
	for i, p := range series {
		var val float64
		switch target {
		case TargetFlow:
			val = p.Flow.InexactFloat64()
		case TargetExpense:
			val = p.Expense.InexactFloat64()
		default:
			val = p.Cumulative.InexactFloat64()
		}
		out[i] = forecast.Point{Period: p.Period, Value: val}
	}
	return out
}

func recent(l *ledger.Ledger, limit int) []domain.Transaction {
	txs := l.Transactions()
	if limit <= 0 || limit > len(txs) {
		limit = len(txs)
	}
	out := make([]domain.Transaction, 0, limit)
	for i := len(txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, txs[i])
	}
	return out
}
