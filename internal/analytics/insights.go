package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// Insight is a short rule-based recommendation.
type Insight struct {
	Title       string
	Description string
	Action      string
	Priority    Priority
}

const maxInsights = 4

var (
	criticalSavings  = decimal.NewFromFloat(0.10)
	excellentSavings = decimal.NewFromFloat(0.30)
)

var directionText = map[Direction]string{
	DirectionStrongUp:     "Cash flow is rising quickly",
	DirectionUp:           "Cash flow is rising slightly",
	DirectionDown:         "Spending is slightly outpacing income",
	DirectionStrongDown:   "Balance is trending down sharply",
	DirectionInsufficient: "Not enough data to estimate a trend",
}

// Insights derives up to four recommendations from the KPIs, the spending
// ranking and the flow trend of a view.
func Insights(k KPISet, ranking []CategoryRank, trend FlowTrend) []Insight {
	var out []Insight

	if len(ranking) > 0 {
		top := ranking[0]
		out = append(out, Insight{
			Title:       "Largest expense",
			Description: fmt.Sprintf("Your largest spending category is %s with %s (%.2f%% of the total).", top.Category, domain.FormatBRL(top.Total), top.Share),
			Action:      "Review these expenses",
			Priority:    PriorityHigh,
		})
	}

	switch {
	case k.SavingsRate.LessThan(criticalSavings):
		out = append(out, Insight{
			Title:       "Critical savings",
			Description: fmt.Sprintf("Your savings rate is very low (%s%%).", k.SavingsRatePercent().StringFixed(1)),
			Action:      "Cut discretionary spending",
			Priority:    PriorityHigh,
		})
	case k.SavingsRate.GreaterThan(excellentSavings):
		out = append(out, Insight{
			Title:       "Great savings",
			Description: fmt.Sprintf("You are saving %s%% of your income.", k.SavingsRatePercent().StringFixed(1)),
			Action:      "Invest the surplus",
			Priority:    PriorityLow,
		})
	}

	out = append(out, Insight{
		Title:       "Cash-flow trend",
		Description: directionText[trend.Direction],
		Action:      "Keep tracking daily",
		Priority:    PriorityMedium,
	})

	if k.PendingDebt.IsNegative() {
		out = append(out, Insight{
			Title:       "Open debts",
			Description: fmt.Sprintf("There are %s in unpaid bills.", domain.FormatBRL(k.PendingDebt.Abs())),
			Action:      "Prioritize paying them off",
			Priority:    PriorityHigh,
		})
	}

	if len(out) > maxInsights {
		out = out[:maxInsights]
	}
	return out
}
