package analytics

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// Priority orders alerts and insights; lower is more urgent.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Severity is how an alert should be styled.
type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Alert is a rule-based notice about the current view.
type Alert struct {
	Code     string
	Severity Severity
	Priority Priority
	Title    string
	Message  string
}

// AlertOptions holds the thresholds used by Alerts.
type AlertOptions struct {
	// SavingsTarget is the minimum healthy savings rate (ratio).
	SavingsTarget decimal.Decimal
	// CategoryShareLimit flags a spending category above this share (ratio).
	CategoryShareLimit float64
}

// DefaultAlertOptions: 20% savings target, 30% single-category share.
func DefaultAlertOptions() AlertOptions {
	return AlertOptions{
		SavingsTarget:      decimal.NewFromFloat(0.20),
		CategoryShareLimit: 0.30,
	}
}

// Alerts evaluates the alert rules. ranking is the spending ranking of the
// same view and anomalyCount the number of flagged anomalies. The result is
// ordered by priority, keeping rule order within a priority.
func Alerts(k KPISet, ranking []CategoryRank, anomalyCount int, opts AlertOptions) []Alert {
	var out []Alert

	if k.PendingDebt.IsNegative() {
		out = append(out, Alert{
			Code:     "pending_debt",
			Severity: SeverityWarning,
			Priority: PriorityHigh,
			Title:    "Pending debts",
			Message:  fmt.Sprintf("You have %s in unpaid debts.", domain.FormatBRL(k.PendingDebt.Abs())),
		})
	}

	if k.SavingsRate.LessThan(opts.SavingsTarget) {
		out = append(out, Alert{
			Code:     "low_savings",
			Severity: SeverityWarning,
			Priority: PriorityMedium,
			Title:    "Low savings rate",
			Message: fmt.Sprintf("Your savings rate is %s%%. The target is at least %s%%.",
				k.SavingsRatePercent().StringFixed(1), opts.SavingsTarget.Mul(decimal.NewFromInt(100)).StringFixed(0)),
		})
	}

	if k.TotalBalance.IsNegative() {
		out = append(out, Alert{
			Code:     "negative_balance",
			Severity: SeverityDanger,
			Priority: PriorityHigh,
			Title:    "Negative balance",
			Message:  fmt.Sprintf("Your balance is negative by %s.", domain.FormatBRL(k.TotalBalance.Abs())),
		})
	}

	if anomalyCount > 0 {
		out = append(out, Alert{
			Code:     "anomalies",
			Severity: SeverityInfo,
			Priority: PriorityLow,
			Title:    fmt.Sprintf("%d unusual transactions", anomalyCount),
			Message:  "Some spending is outside its usual pattern.",
		})
	}

	if len(ranking) > 0 && ranking[0].Share > opts.CategoryShareLimit*100 {
		top := ranking[0]
		out = append(out, Alert{
			Code:     "dominant_category",
			Severity: SeverityInfo,
			Priority: PriorityMedium,
			Title:    fmt.Sprintf("High spending on %s", top.Category),
			Message:  fmt.Sprintf("%s accounts for %.1f%% of spending.", top.Category, top.Share),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})

	return out
}
