// Package chat turns the numeric state of a dashboard view into a bounded
// prompt, submits it to an inference backend and keeps per-session history.
package chat

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/analytics"
	"github.com/dvloznov/finance-dashboard/internal/anomaly"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/forecast"
)

var (
	// ErrBudgetExceeded means the KPI summary and the question alone do not
	// fit in the budget.
	ErrBudgetExceeded = errors.New("context budget exceeded")
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
)

// Budget bounds the size of the prompt.
type Budget struct {
	// MaxBytes is the maximum prompt length in bytes.
	MaxBytes int
	// MaxAnomalies caps the anomaly section before byte trimming. 0 means no cap.
	MaxAnomalies int
}

// DefaultBudget: 6000 bytes, 10 anomalies.
func DefaultBudget() Budget {
	return Budget{MaxBytes: 6000, MaxAnomalies: 10}
}

// ChatContext is the assembled prompt plus what was left out of it.
type ChatContext struct {
	Prompt   string
	Question string

	AnomaliesIncluded int
	AnomaliesDropped  int
	ProjectionDropped bool
}

const preamble = "You are a personal finance assistant. Answer the question using only the figures below. " +
	"Amounts are in Brazilian reais. Be concise and practical.\n"

// BuildContext serializes the KPIs, the anomalies and the projection into a
// deterministic digest followed by the question. When the prompt is over
// budget it first drops the lowest-scored anomalies, then the projection.
// The KPI section and the question are never dropped.
func BuildContext(k analytics.KPISet, anomalies []anomaly.Anomaly, proj *forecast.Projection, question string, b Budget) (*ChatContext, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	ranked := make([]anomaly.Anomaly, len(anomalies))
	copy(ranked, anomalies)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	keep := len(ranked)
	if b.MaxAnomalies > 0 && keep > b.MaxAnomalies {
		keep = b.MaxAnomalies
	}
	withProjection := proj != nil && len(proj.Points) > 0

	kpis := kpiSection(k)
	q := questionSection(question)

	build := func() string {
		var sb strings.Builder
		sb.WriteString(preamble)
		sb.WriteString(kpis)
		if keep > 0 {
			sb.WriteString(anomalySection(ranked[:keep]))
		}
		if withProjection {
			sb.WriteString(projectionSection(proj))
		}
		sb.WriteString(q)
		return sb.String()
	}

	prompt := build()
	for b.MaxBytes > 0 && len(prompt) > b.MaxBytes {
		switch {
		case keep > 0:
			keep--
		case withProjection:
			withProjection = false
		default:
			return nil, fmt.Errorf("BuildContext: %d bytes needed for KPIs and question, budget is %d: %w",
				len(prompt), b.MaxBytes, ErrBudgetExceeded)
		}
		prompt = build()
	}

	return &ChatContext{
		Prompt:            prompt,
		Question:          question,
		AnomaliesIncluded: keep,
		AnomaliesDropped:  len(ranked) - keep,
		ProjectionDropped: proj != nil && len(proj.Points) > 0 && !withProjection,
	}, nil
}

func kpiSection(k analytics.KPISet) string {
	var sb strings.Builder
	sb.WriteString("\n## Summary\n")
	if !k.From.IsZero() {
		fmt.Fprintf(&sb, "Period: %s to %s\n", k.From, k.To)
	}
	fmt.Fprintf(&sb, "Transactions: %d\n", k.Transactions)
	fmt.Fprintf(&sb, "Total balance: %s\n", domain.FormatBRL(k.TotalBalance))
	fmt.Fprintf(&sb, "Income: %s\n", domain.FormatBRL(k.TotalIncome))
	fmt.Fprintf(&sb, "Expenses: %s\n", domain.FormatBRL(k.TotalExpense))
	fmt.Fprintf(&sb, "Net balance: %s\n", domain.FormatBRL(k.NetBalance))
	fmt.Fprintf(&sb, "Debts: %s\n", domain.FormatBRL(k.TotalDebt))
	fmt.Fprintf(&sb, "Pending debts: %s\n", domain.FormatBRL(k.PendingDebt))
	fmt.Fprintf(&sb, "Savings rate: %s%%\n", k.SavingsRatePercent().StringFixed(1))
	return sb.String()
}

func anomalySection(as []anomaly.Anomaly) string {
	var sb strings.Builder
	sb.WriteString("\n## Unusual spending\n")
	for _, a := range as {
		label := a.Period.String()
		if a.Scope == anomaly.ScopeTransaction {
			label = a.Date.String()
		}
		fmt.Fprintf(&sb, "- %s %s: %s vs mean %s (score %.2f)\n",
			a.Category, label, money(a.Observed), money(a.Mean), a.Score)
	}
	return sb.String()
}

func projectionSection(p *forecast.Projection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n## Projection (%s, %.0f%% confidence)\n", p.Method, p.Confidence*100)
	for _, pt := range p.Points {
		fmt.Fprintf(&sb, "- %s: %s (%s to %s)\n",
			pt.Period, money(pt.Value), money(pt.Lower), money(pt.Upper))
	}
	return sb.String()
}

func questionSection(q string) string {
	return "\n## Question\n" + q + "\n"
}

func money(v float64) string {
	return domain.FormatBRL(decimal.NewFromFloat(v))
}
