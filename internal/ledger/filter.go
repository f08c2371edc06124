package ledger

import (
	"slices"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// Filter is a predicate set. Every non-empty field must match (logical AND);
// the zero Filter matches everything.
type Filter struct {
	// From and To bound the date range, inclusive. Zero dates are open.
	From civil.Date
	To   civil.Date

	Categories  []string
	Kinds       []domain.Kind
	CostClasses []domain.CostClass

	// Paid restricts to paid (true) or unpaid (false) transactions.
	Paid *bool

	// MinAmount and MaxAmount bound the transaction magnitude.
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal

	// Search is a case-insensitive substring of the description.
	Search string
}

// Match reports whether t satisfies every predicate in f.
func (f Filter) Match(t domain.Transaction) bool {
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, t.Category) {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, t.Kind) {
		return false
	}
	if len(f.CostClasses) > 0 && !slices.Contains(f.CostClasses, t.CostClass) {
		return false
	}
	if f.Paid != nil && t.Paid != *f.Paid {
		return false
	}
	if f.MinAmount != nil && t.Magnitude().LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.Magnitude().GreaterThan(*f.MaxAmount) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// IsZero reports whether f has no predicates.
func (f Filter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() &&
		len(f.Categories) == 0 && len(f.Kinds) == 0 && len(f.CostClasses) == 0 &&
		f.Paid == nil && f.MinAmount == nil && f.MaxAmount == nil && f.Search == ""
}
