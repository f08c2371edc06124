package notionsync

import (
	"fmt"
	"sort"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/analytics"
	"github.com/dvloznov/finance-dashboard/internal/anomaly"
	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// Property names of the summary database. "Month" is the title column.
const (
	PropMonth        = "Month"
	PropIncome       = "Income"
	PropExpense      = "Expense"
	PropDebt         = "Debt"
	PropNet          = "Net"
	PropTransactions = "Transactions"
	PropTopCategory  = "Top Category"
	PropAnomalies    = "Anomalies"
)

// MonthlySummary is one row of the summary database. Expense and Debt are
// magnitudes; Net is signed.
type MonthlySummary struct {
	Month        domain.Period
	Income       decimal.Decimal
	Expense      decimal.Decimal
	Debt         decimal.Decimal
	Net          decimal.Decimal
	Transactions int
	TopCategory  string
	Anomalies    int
}

// Summarize folds monthly aggregates into one summary per month, oldest
// first. Anomalies are counted against the month they were observed in.
func Summarize(aggs []analytics.PeriodAggregate, anomalies []anomaly.Anomaly) ([]MonthlySummary, error) {
	byMonth := make(map[domain.Period]*MonthlySummary)
	topSpend := make(map[domain.Period]decimal.Decimal)

	for _, a := range aggs {
		if a.Period.Bucket != domain.BucketMonth {
			return nil, fmt.Errorf("Summarize: aggregates must be monthly, got %s", a.Period.Bucket)
		}
		s, ok := byMonth[a.Period]
		if !ok {
			s = &MonthlySummary{Month: a.Period}
			byMonth[a.Period] = s
		}
		s.Income = s.Income.Add(a.Income)
		s.Expense = s.Expense.Add(a.Expense.Abs())
		s.Debt = s.Debt.Add(a.Debt.Abs())
		s.Net = s.Net.Add(a.Net())
		s.Transactions += a.Count

		// Aggregates arrive sorted by category, so ties keep the first name.
		spend := a.Expense.Add(a.Debt).Abs()
		if spend.GreaterThan(topSpend[a.Period]) {
			topSpend[a.Period] = spend
			s.TopCategory = a.Category
		}
	}

	for _, an := range anomalies {
		if an.Scope != anomaly.ScopeCategoryPeriod {
			continue
		}
		if s, ok := byMonth[an.Period]; ok {
			s.Anomalies++
		}
	}

	out := make([]MonthlySummary, 0, len(byMonth))
	for _, s := range byMonth {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.Before(out[j].Month)
	})
	return out, nil
}

// SummaryToNotionProperties converts a summary into database properties.
func SummaryToNotionProperties(s MonthlySummary) notionapi.Properties {
	props := notionapi.Properties{
		PropMonth: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: s.Month.String()},
				},
			},
		},
		PropIncome:       notionapi.NumberProperty{Number: s.Income.InexactFloat64()},
		PropExpense:      notionapi.NumberProperty{Number: s.Expense.InexactFloat64()},
		PropDebt:         notionapi.NumberProperty{Number: s.Debt.InexactFloat64()},
		PropNet:          notionapi.NumberProperty{Number: s.Net.InexactFloat64()},
		PropTransactions: notionapi.NumberProperty{Number: float64(s.Transactions)},
		PropAnomalies:    notionapi.NumberProperty{Number: float64(s.Anomalies)},
	}

	if s.TopCategory != "" {
		props[PropTopCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: s.TopCategory},
		}
	}

	return props
}

// pageTitle reads the "Month" title of a page returned by the API.
func pageTitle(page notionapi.Page) string {
	prop, ok := page.Properties[PropMonth]
	if !ok {
		return ""
	}

	var title []notionapi.RichText
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		title = p.Title
	case notionapi.TitleProperty:
		title = p.Title
	}
	if len(title) == 0 {
		return ""
	}
	if title[0].PlainText != "" {
		return title[0].PlainText
	}
	if title[0].Text != nil {
		return title[0].Text.Content
	}
	return ""
}
