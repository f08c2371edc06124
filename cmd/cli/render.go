package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/analytics"
	"github.com/dvloznov/finance-dashboard/internal/anomaly"
	"github.com/dvloznov/finance-dashboard/internal/dashboard"
	"github.com/dvloznov/finance-dashboard/internal/domain"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", title)
}

func brl(d decimal.Decimal) string { return domain.FormatBRL(d) }

func brlFloat(f float64) string { return domain.FormatBRL(decimal.NewFromFloat(f)) }

func printKPIs(w io.Writer, k analytics.KPISet) {
	heading(w, "Summary")
	tw := newTable(w)
	if k.Transactions > 0 {
		fmt.Fprintf(tw, "Period\t%s to %s\n", k.From, k.To)
	}
	fmt.Fprintf(tw, "Transactions\t%d\n", k.Transactions)
	fmt.Fprintf(tw, "Total balance\t%s\n", brl(k.TotalBalance))
	fmt.Fprintf(tw, "Income\t%s\n", brl(k.TotalIncome))
	fmt.Fprintf(tw, "Expenses\t%s\n", brl(k.TotalExpense))
	fmt.Fprintf(tw, "Debt\t%s\n", brl(k.TotalDebt))
	fmt.Fprintf(tw, "Pending debt\t%s\n", brl(k.PendingDebt))
	fmt.Fprintf(tw, "Net\t%s\n", brl(k.NetBalance))
	fmt.Fprintf(tw, "Savings rate\t%s%%\n", k.SavingsRatePercent().StringFixed(2))
	tw.Flush()
}

func printVariations(w io.Writer, income, expense analytics.Variation, trend analytics.FlowTrend) {
	heading(w, "Variation (second half vs first half)")
	tw := newTable(w)
	fmt.Fprintln(tw, "KIND\tFIRST\tSECOND\tCHANGE\tTREND")
	for _, v := range []analytics.Variation{income, expense} {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+.2f%%\t%s\n", v.Kind.Label(), brl(v.First), brl(v.Second), v.Percent, v.Trend)
	}
	tw.Flush()
	if trend.Direction == analytics.DirectionInsufficient {
		fmt.Fprintln(w, "Cash-flow trend: not enough data")
		return
	}
	fmt.Fprintf(w, "Cash-flow trend: %s (%+.2f/day, %s over 30 days)\n",
		trend.Direction, trend.Slope, brlFloat(trend.Next30Delta))
}

func printAlerts(w io.Writer, alerts []analytics.Alert) {
	if len(alerts) == 0 {
		return
	}
	heading(w, "Alerts")
	for _, a := range alerts {
		fmt.Fprintf(w, "  [%s] %s: %s\n", a.Severity, a.Title, a.Message)
	}
}

func printInsights(w io.Writer, insights []analytics.Insight) {
	if len(insights) == 0 {
		return
	}
	heading(w, "Insights")
	for _, in := range insights {
		fmt.Fprintf(w, "  (%s) %s\n      %s\n", in.Priority, in.Title, in.Description)
		if in.Action != "" {
			fmt.Fprintf(w, "      -> %s\n", in.Action)
		}
	}
}

func printAggregates(w io.Writer, aggs []analytics.PeriodAggregate) {
	heading(w, "Aggregates")
	if len(aggs) == 0 {
		fmt.Fprintln(w, "  no transactions")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "PERIOD\tCATEGORY\tINCOME\tEXPENSE\tDEBT\tFIXED\tVARIABLE\tNET\tCOUNT")
	for _, a := range aggs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			a.Period, a.Category, brl(a.Income), brl(a.Expense), brl(a.Debt),
			brl(a.Fixed), brl(a.Variable), brl(a.Net()), a.Count)
	}
	tw.Flush()
}

func printBreakdown(w io.Writer, nodes []analytics.CategoryNode) {
	heading(w, "Breakdown")
	tw := newTable(w)
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t\t%s\n", n.Category, brl(n.Total))
		for _, c := range n.Children {
			fmt.Fprintf(tw, "\t%s\t%s\n", c.CostClass, brl(c.Total))
		}
	}
	tw.Flush()
}

func printRanking(w io.Writer, ranking []analytics.CategoryRank) {
	if len(ranking) == 0 {
		return
	}
	heading(w, "Top spending categories")
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tCATEGORY\tTOTAL\tSHARE\tCOUNT\tMEAN")
	for _, r := range ranking {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f%%\t%d\t%s\n", r.Position, r.Category, brl(r.Total), r.Share, r.Count, brl(r.Mean))
	}
	tw.Flush()
}

func printAnomalies(w io.Writer, s dashboard.AnomalySection) {
	heading(w, "Unusual spending")
	if s.Err != nil {
		fmt.Fprintf(w, "  unavailable: %v\n", s.Err)
		return
	}
	if len(s.Items) == 0 {
		fmt.Fprintln(w, "  nothing unusual")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "PERIOD\tCATEGORY\tOBSERVED\tMEAN\tSCORE")
	for _, a := range s.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n", a.Period, a.Category, brlFloat(a.Observed), brlFloat(a.Mean), a.Score)
	}
	tw.Flush()
}

func printOutliers(w io.Writer, outliers []anomaly.Anomaly) {
	if len(outliers) == 0 {
		return
	}
	heading(w, "Outlier transactions")
	for _, a := range outliers {
		fmt.Fprintf(w, "  %s\n", a.Explanation)
	}
}

func printSeries(w io.Writer, series []analytics.SeriesPoint) {
	heading(w, "Cash flow")
	tw := newTable(w)
	fmt.Fprintln(tw, "PERIOD\tINCOME\tEXPENSE\tDEBT\tFLOW\tBALANCE")
	for _, p := range series {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Period, brl(p.Income), brl(p.Expense), brl(p.Debt), brl(p.Flow), brl(p.Cumulative))
	}
	tw.Flush()
}

func printProjection(w io.Writer, s dashboard.ProjectionSection) {
	if s.Projection == nil && s.Err == nil {
		return
	}
	heading(w, fmt.Sprintf("Projection (%s)", s.Target))
	if s.Err != nil {
		fmt.Fprintf(w, "  unavailable: %v\n", s.Err)
		return
	}
	p := s.Projection
	fmt.Fprintf(w, "  method %s, %.0f%% band\n", p.Method, p.Confidence*100)
	tw := newTable(w)
	fmt.Fprintln(tw, "PERIOD\tVALUE\tLOWER\tUPPER")
	for _, pt := range p.Points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", pt.Period, brlFloat(pt.Value), brlFloat(pt.Lower), brlFloat(pt.Upper))
	}
	tw.Flush()
}

func printRecent(w io.Writer, txs []domain.Transaction, limit int) {
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	if len(txs) == 0 {
		return
	}
	heading(w, "Recent transactions")
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tCATEGORY\tKIND\tAMOUNT\tBALANCE\tPAID")
	for _, t := range txs {
		paid := "no"
		if t.Paid {
			paid = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Date, t.Description, t.Category, t.Kind.Label(), brl(t.Amount), brl(t.RunningBalance), paid)
	}
	tw.Flush()
}
