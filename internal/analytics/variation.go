package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
	"github.com/dvloznov/finance-dashboard/internal/stats"
)

// Trend labels a percentage change.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// trendThreshold is the percent change beyond which a variation is not stable.
const trendThreshold = 5.0

// TrendOf labels a percent change: above +5 is up, below -5 is down.
func TrendOf(percent float64) Trend {
	switch {
	case percent > trendThreshold:
		return TrendUp
	case percent < -trendThreshold:
		return TrendDown
	}
	return TrendStable
}

// Variation compares the second half of the view's date range against the
// first half for one kind of transaction. Amounts are magnitudes.
type Variation struct {
	Kind    domain.Kind
	First   decimal.Decimal
	Second  decimal.Decimal
	Change  decimal.Decimal
	Percent float64 // 0 when the first half is empty
	Trend   Trend
}

// VariationOf splits the view at the midpoint of its date range.
func VariationOf(l *ledger.Ledger, kind domain.Kind) Variation {
	v := Variation{Kind: kind, Trend: TrendStable}

	first, last, ok := l.DateRange()
	if !ok {
		return v
	}
	span := last.DaysSince(first)
	mid := first.AddDays((span + 1) / 2)

	for _, t := range l.Transactions() {
		if t.Kind != kind {
			continue
		}
		if t.Date.Before(mid) {
			v.First = v.First.Add(t.Magnitude())
		} else {
			v.Second = v.Second.Add(t.Magnitude())
		}
	}

	v.Change = v.Second.Sub(v.First)
	if v.First.IsPositive() {
		v.Percent = stats.Round(v.Change.Div(v.First).InexactFloat64()*100, 2)
	}
	v.Trend = TrendOf(v.Percent)

	return v
}

// Direction is the overall daily cash-flow trend.
type Direction string

const (
	DirectionStrongUp     Direction = "strong_up"
	DirectionUp           Direction = "up"
	DirectionDown         Direction = "down"
	DirectionStrongDown   Direction = "strong_down"
	DirectionInsufficient Direction = "insufficient"
)

// FlowTrend is the slope of a linear fit over the daily flow series.
type FlowTrend struct {
	Direction   Direction
	Slope       float64 // change in daily flow per day
	Next30Delta float64 // slope projected over 30 days
}

// strongSlope separates strong from mild trends, in currency units per day.
const strongSlope = 10.0

// FlowTrendOf fits the daily flow series of the view.
func FlowTrendOf(l *ledger.Ledger) FlowTrend {
	series := Series(l, domain.BucketDay)
	if len(series) < 2 {
		return FlowTrend{Direction: DirectionInsufficient}
	}

	flows := make([]float64, len(series))
	for i, p := range series {
		flows[i] = p.Flow.InexactFloat64()
	}
	slope, _ := stats.LinearFit(flows)

	var dir Direction
	switch {
	case slope > strongSlope:
		dir = DirectionStrongUp
	case slope > 0:
		dir = DirectionUp
	case slope > -strongSlope:
		dir = DirectionDown
	default:
		dir = DirectionStrongDown
	}

	return FlowTrend{Direction: dir, Slope: slope, Next30Delta: slope * 30}
}
