package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
	"github.com/dvloznov/finance-dashboard/internal/stats"
)

// CategoryNode is the first level of the treemap/sunburst hierarchy.
type CategoryNode struct {
	Category string
	Total    decimal.Decimal
	Children []CostClassNode
}

// CostClassNode is the second level, split by cost class.
type CostClassNode struct {
	CostClass domain.CostClass
	Total     decimal.Decimal
}

// Breakdown groups signed amounts by category and cost class. Categories
// whose activity nets to zero are omitted, as are empty cost-class children.
// Nodes are ordered by absolute total, largest first.
func Breakdown(l *ledger.Ledger) []CategoryNode {
	totals := make(map[string]map[domain.CostClass]decimal.Decimal)
	for _, t := range l.Transactions() {
		byClass, ok := totals[t.Category]
		if !ok {
			byClass = make(map[domain.CostClass]decimal.Decimal)
			totals[t.Category] = byClass
		}
		byClass[t.CostClass] = byClass[t.CostClass].Add(t.Amount)
	}

	var out []CategoryNode
	for cat, byClass := range totals {
		node := CategoryNode{Category: cat}
		for _, class := range []domain.CostClass{domain.CostFixed, domain.CostVariable} {
			v := byClass[class]
			if v.IsZero() {
				continue
			}
			node.Total = node.Total.Add(v)
			node.Children = append(node.Children, CostClassNode{CostClass: class, Total: v})
		}
		if node.Total.IsZero() {
			continue
		}
		out = append(out, node)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Abs().Cmp(out[j].Total.Abs()); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})

	return out
}

// CategoryRank is one row of the spending ranking.
type CategoryRank struct {
	Position int
	Category string
	Total    decimal.Decimal // magnitude
	Share    float64         // percent of all spending in the view
	Count    int
	Mean     decimal.Decimal
	StdDev   float64
}

// Ranking orders spending categories (expenses and debts) by magnitude and
// returns the first topN. topN <= 0 returns every category.
func Ranking(l *ledger.Ledger, topN int) []CategoryRank {
	type acc struct {
		total  decimal.Decimal
		values []float64
	}
	groups := make(map[string]*acc)
	grand := decimal.Zero

	for _, t := range l.Transactions() {
		if t.Kind == domain.KindIncome {
			continue
		}
		g, ok := groups[t.Category]
		if !ok {
			g = &acc{}
			groups[t.Category] = g
		}
		m := t.Magnitude()
		g.total = g.total.Add(m)
		g.values = append(g.values, m.InexactFloat64())
		grand = grand.Add(m)
	}

	out := make([]CategoryRank, 0, len(groups))
	for cat, g := range groups {
		r := CategoryRank{
			Category: cat,
			Total:    g.total,
			Count:    len(g.values),
			Mean:     g.total.DivRound(decimal.NewFromInt(int64(len(g.values))), 2),
			StdDev:   stats.StdDev(g.values),
		}
		if grand.IsPositive() {
			r.Share = stats.Round(g.total.Div(grand).InexactFloat64()*100, 2)
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	for i := range out {
		out[i].Position = i + 1
	}

	return out
}
