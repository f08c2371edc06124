package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
	"github.com/dvloznov/finance-dashboard/internal/stats"
)

// SeriesPoint is one period of the cash-flow time series.
type SeriesPoint struct {
	Period     domain.Period
	Income     decimal.Decimal
	Expense    decimal.Decimal // magnitude
	Debt       decimal.Decimal // magnitude
	Flow       decimal.Decimal // signed sum of all amounts
	Cumulative decimal.Decimal // running sum of Flow within the view
	Count      int
	MA7        float64 // trailing 7-period mean of Flow
	MA30       float64 // trailing 30-period mean of Flow
}

// Series builds a gap-free time series from the first to the last period in
// the view. Periods without transactions have zero flow.
func Series(l *ledger.Ledger, bucket domain.Bucket) []SeriesPoint {
	first, last, ok := l.DateRange()
	if !ok {
		return nil
	}

	start := domain.PeriodOf(bucket, first)
	end := domain.PeriodOf(bucket, last)

	index := make(map[domain.Period]int)
	var out []SeriesPoint
	for p := start; !end.Before(p); p = p.Next() {
		index[p] = len(out)
		out = append(out, SeriesPoint{Period: p})
	}

	for _, t := range l.Transactions() {
		pt := &out[index[domain.PeriodOf(bucket, t.Date)]]
		switch t.Kind {
		case domain.KindIncome:
			pt.Income = pt.Income.Add(t.Amount)
		case domain.KindExpense:
			pt.Expense = pt.Expense.Add(t.Magnitude())
		case domain.KindDebt:
			pt.Debt = pt.Debt.Add(t.Magnitude())
		}
		pt.Flow = pt.Flow.Add(t.Amount)
		pt.Count++
	}

	flows := make([]float64, len(out))
	running := decimal.Zero
	for i := range out {
		running = running.Add(out[i].Flow)
		out[i].Cumulative = running
		flows[i] = out[i].Flow.InexactFloat64()
	}

	ma7 := stats.MovingAverage(flows, 7)
	ma30 := stats.MovingAverage(flows, 30)
	for i := range out {
		out[i].MA7 = ma7[i]
		out[i].MA30 = ma30[i]
	}

	return out
}
