// Package analytics turns a ledger view into the derived metrics that drive
// the dashboard: period aggregates, KPIs, category breakdowns, rankings,
// time series, variations, alerts and insights. Every function is pure and
// recomputes from the ledger it is given.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
)

// PeriodAggregate sums one category's activity within one period.
// Expense and Debt keep their negative sign; Fixed and Variable split the
// signed total by cost class.
type PeriodAggregate struct {
	Period   domain.Period
	Category string
	Income   decimal.Decimal
	Expense  decimal.Decimal
	Debt     decimal.Decimal
	Fixed    decimal.Decimal
	Variable decimal.Decimal
	Count    int
}

// Net is the signed sum of all activity.
func (a PeriodAggregate) Net() decimal.Decimal {
	return a.Income.Add(a.Expense).Add(a.Debt)
}

// Gross is the total magnitude moved, regardless of direction.
func (a PeriodAggregate) Gross() decimal.Decimal {
	return a.Income.Sub(a.Expense).Sub(a.Debt)
}

func (a *PeriodAggregate) add(t domain.Transaction) {
	switch t.Kind {
	case domain.KindIncome:
		a.Income = a.Income.Add(t.Amount)
	case domain.KindExpense:
		a.Expense = a.Expense.Add(t.Amount)
	case domain.KindDebt:
		a.Debt = a.Debt.Add(t.Amount)
	}
	if t.CostClass == domain.CostFixed {
		a.Fixed = a.Fixed.Add(t.Amount)
	} else {
		a.Variable = a.Variable.Add(t.Amount)
	}
	a.Count++
}

type aggregateKey struct {
	period   domain.Period
	category string
}

// Aggregate groups the ledger by (period, category). The result is sorted by
// period ascending, then category name ascending.
func Aggregate(l *ledger.Ledger, bucket domain.Bucket) []PeriodAggregate {
	groups := make(map[aggregateKey]*PeriodAggregate)
	for _, t := range l.Transactions() {
		key := aggregateKey{period: domain.PeriodOf(bucket, t.Date), category: t.Category}
		agg, ok := groups[key]
		if !ok {
			agg = &PeriodAggregate{Period: key.period, Category: key.category}
			groups[key] = agg
		}
		agg.add(t)
	}

	out := make([]PeriodAggregate, 0, len(groups))
	for _, agg := range groups {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period.Start != out[j].Period.Start {
			return out[i].Period.Before(out[j].Period)
		}
		return out[i].Category < out[j].Category
	})

	return out
}
