package ledger

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

func categoriesOf(l *Ledger) []string {
	var ids []string
	for _, tx := range l.Transactions() {
		ids = append(ids, tx.Category)
	}
	return ids
}

func TestLedgerFilter(t *testing.T) {
	l := loadSample(t)
	paid := true
	unpaid := false
	min := decimal.NewFromInt(100)
	max := decimal.NewFromInt(300)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "zero filter keeps everything",
			filter: Filter{},
			want:   []string{"Gasolina", "Salário", "Pedágio", "Gasto Pessoal"},
		},
		{
			name:   "date range inclusive",
			filter: Filter{From: civil.Date{Year: 2024, Month: 3, Day: 5}, To: civil.Date{Year: 2024, Month: 3, Day: 7}},
			want:   []string{"Salário", "Pedágio"},
		},
		{
			name:   "category set",
			filter: Filter{Categories: []string{"Gasolina", "Pedágio"}},
			want:   []string{"Gasolina", "Pedágio"},
		},
		{
			name:   "kind set",
			filter: Filter{Kinds: []domain.Kind{domain.KindDebt, domain.KindIncome}},
			want:   []string{"Salário", "Gasto Pessoal"},
		},
		{
			name:   "paid only",
			filter: Filter{Paid: &paid},
			want:   []string{"Gasolina", "Salário", "Pedágio"},
		},
		{
			name:   "unpaid only",
			filter: Filter{Paid: &unpaid},
			want:   []string{"Gasto Pessoal"},
		},
		{
			name:   "cost class",
			filter: Filter{CostClasses: []domain.CostClass{domain.CostFixed}},
			want:   []string{"Salário"},
		},
		{
			name:   "amount range on magnitude",
			filter: Filter{MinAmount: &min, MaxAmount: &max},
			want:   []string{"Gasolina"},
		},
		{
			name:   "case insensitive search",
			filter: Filter{Search: "posto"},
			want:   []string{"Gasolina"},
		},
		{
			name:   "predicates compose with AND",
			filter: Filter{Kinds: []domain.Kind{domain.KindExpense}, Search: "BR"},
			want:   []string{"Pedágio"},
		},
		{
			name:   "no match",
			filter: Filter{Categories: []string{"Imposto"}},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Filter(tt.filter)
			if diff := cmp.Diff(tt.want, categoriesOf(got)); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}

			again := got.Filter(tt.filter)
			if diff := cmp.Diff(got.Transactions(), again.Transactions()); diff != "" {
				t.Errorf("Filter is not idempotent (-once +twice):\n%s", diff)
			}
		})
	}
}

func TestLedgerFilter_DoesNotMutateSource(t *testing.T) {
	l := loadSample(t)
	before := l.Transactions()

	_ = l.Filter(Filter{Categories: []string{"Gasolina"}})

	if diff := cmp.Diff(before, l.Transactions()); diff != "" {
		t.Errorf("Source ledger changed (-before +after):\n%s", diff)
	}
}

func TestFilterIsZero(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Error("Expected empty filter to be zero")
	}
	if (Filter{Search: "x"}).IsZero() {
		t.Error("Expected filter with search to be non-zero")
	}
}
