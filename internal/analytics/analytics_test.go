package analytics

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
)

func tx(date, category string, kind domain.Kind, amount string) domain.Transaction {
	d, err := civil.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return domain.Transaction{
		ID:          date + category + amount,
		Description: category,
		Date:        d,
		Category:    category,
		Kind:        kind,
		Paid:        true,
		CostClass:   domain.CostVariable,
		Amount:      domain.SignedAmount(kind, decimal.RequireFromString(amount)),
	}
}

func unpaid(t domain.Transaction) domain.Transaction {
	t.Paid = false
	return t
}

func fixed(t domain.Transaction) domain.Transaction {
	t.CostClass = domain.CostFixed
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleLedger() *ledger.Ledger {
	return ledger.New("test", []domain.Transaction{
		fixed(tx("2024-01-05", "Salário", domain.KindIncome, "3000")),
		tx("2024-01-06", "Gasolina", domain.KindExpense, "200"),
		tx("2024-01-20", "Gasolina", domain.KindExpense, "150"),
		fixed(tx("2024-01-10", "Aluguel", domain.KindExpense, "1000")),
		unpaid(tx("2024-01-25", "Cartão", domain.KindDebt, "400")),
		tx("2024-02-05", "Salário", domain.KindIncome, "3000"),
		tx("2024-02-07", "Gasolina", domain.KindExpense, "300"),
		tx("2024-02-15", "Cartão", domain.KindDebt, "100"),
	})
}

func TestKPIs(t *testing.T) {
	k := KPIs(sampleLedger())

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"TotalIncome", k.TotalIncome, "6000"},
		{"TotalExpense", k.TotalExpense, "-1650"},
		{"NetBalance", k.NetBalance, "4350"},
		{"TotalDebt", k.TotalDebt, "-500"},
		{"PendingDebt", k.PendingDebt, "-400"},
		{"TotalBalance", k.TotalBalance, "3850"},
		{"SavingsRate", k.SavingsRate, "0.725"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}

	if k.Transactions != 8 {
		t.Errorf("Transactions = %d, want 8", k.Transactions)
	}
	if k.From.String() != "2024-01-05" || k.To.String() != "2024-02-15" {
		t.Errorf("Range = %s..%s", k.From, k.To)
	}
}

func TestKPIs_Identity(t *testing.T) {
	views := []ledger.Filter{
		{},
		{Kinds: []domain.Kind{domain.KindExpense}},
		{Categories: []string{"Cartão"}},
		{From: civil.Date{Year: 2024, Month: 2, Day: 1}},
		{Search: "nothing matches"},
	}

	base := sampleLedger()
	for _, f := range views {
		view := base.Filter(f)
		k := KPIs(view)
		if !k.NetBalance.Equal(k.TotalIncome.Add(k.TotalExpense)) {
			t.Errorf("net %s != income %s + expense %s", k.NetBalance, k.TotalIncome, k.TotalExpense)
		}
		txs := view.Transactions()
		if f.IsZero() && !k.TotalBalance.Equal(txs[len(txs)-1].RunningBalance) {
			t.Errorf("TotalBalance %s != final running balance %s", k.TotalBalance, txs[len(txs)-1].RunningBalance)
		}
	}
}

func TestKPIs_NoIncomeSavingsRateIsZero(t *testing.T) {
	l := ledger.New("test", []domain.Transaction{
		tx("2024-01-06", "Gasolina", domain.KindExpense, "200"),
	})
	k := KPIs(l)
	if !k.SavingsRate.IsZero() {
		t.Errorf("SavingsRate = %s, want 0", k.SavingsRate)
	}

	empty := KPIs(ledger.New("empty", nil))
	if !empty.SavingsRate.IsZero() || !empty.TotalBalance.IsZero() {
		t.Errorf("Expected zero KPIs for empty ledger, got %+v", empty)
	}
}

func TestAggregate_OrderAndSums(t *testing.T) {
	aggs := Aggregate(sampleLedger(), domain.BucketMonth)

	type row struct {
		Period   string
		Category string
		Net      string
		Count    int
	}
	var got []row
	for _, a := range aggs {
		got = append(got, row{a.Period.String(), a.Category, a.Net().String(), a.Count})
	}

	want := []row{
		{"2024-01", "Aluguel", "-1000", 1},
		{"2024-01", "Cartão", "-400", 1},
		{"2024-01", "Gasolina", "-350", 2},
		{"2024-01", "Salário", "3000", 1},
		{"2024-02", "Cartão", "-100", 1},
		{"2024-02", "Gasolina", "-300", 1},
		{"2024-02", "Salário", "3000", 1},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
	}

	jan := aggs[0]
	if !jan.Fixed.Equal(dec("-1000")) || !jan.Variable.IsZero() {
		t.Errorf("Unexpected cost split for Aluguel: fixed=%s variable=%s", jan.Fixed, jan.Variable)
	}
}

func TestAggregate_MonthCoarsensDay(t *testing.T) {
	l := sampleLedger()
	days := Aggregate(l, domain.BucketDay)
	months := Aggregate(l, domain.BucketMonth)

	type key struct {
		month    string
		category string
	}
	summed := make(map[key]PeriodAggregate)
	for _, d := range days {
		k := key{domain.PeriodOf(domain.BucketMonth, d.Period.Start).String(), d.Category}
		s := summed[k]
		s.Income = s.Income.Add(d.Income)
		s.Expense = s.Expense.Add(d.Expense)
		s.Debt = s.Debt.Add(d.Debt)
		s.Fixed = s.Fixed.Add(d.Fixed)
		s.Variable = s.Variable.Add(d.Variable)
		s.Count += d.Count
		summed[k] = s
	}

	if len(summed) != len(months) {
		t.Fatalf("Got %d month groups from days, want %d", len(summed), len(months))
	}
	for _, m := range months {
		s := summed[key{m.Period.String(), m.Category}]
		if !s.Income.Equal(m.Income) || !s.Expense.Equal(m.Expense) || !s.Debt.Equal(m.Debt) ||
			!s.Fixed.Equal(m.Fixed) || !s.Variable.Equal(m.Variable) || s.Count != m.Count {
			t.Errorf("Day sums for %s/%s do not match month aggregate", m.Period, m.Category)
		}
	}
}

func TestBreakdown(t *testing.T) {
	l := ledger.New("test", []domain.Transaction{
		fixed(tx("2024-01-05", "Salário", domain.KindIncome, "3000")),
		tx("2024-01-06", "Gasolina", domain.KindExpense, "200"),
		fixed(tx("2024-01-07", "Gasolina", domain.KindExpense, "50")),
		// Refund nets the category to zero.
		tx("2024-01-08", "Loja", domain.KindExpense, "80"),
		tx("2024-01-09", "Loja", domain.KindIncome, "80"),
	})

	nodes := Breakdown(l)
	if len(nodes) != 2 {
		t.Fatalf("Expected 2 categories, got %d: %+v", len(nodes), nodes)
	}
	if nodes[0].Category != "Salário" || nodes[1].Category != "Gasolina" {
		t.Errorf("Unexpected order: %s, %s", nodes[0].Category, nodes[1].Category)
	}

	fuel := nodes[1]
	if !fuel.Total.Equal(dec("-250")) || len(fuel.Children) != 2 {
		t.Fatalf("Unexpected fuel node: %+v", fuel)
	}
	if fuel.Children[0].CostClass != domain.CostFixed || !fuel.Children[0].Total.Equal(dec("-50")) {
		t.Errorf("Unexpected fixed child: %+v", fuel.Children[0])
	}
}

func TestRanking(t *testing.T) {
	r := Ranking(sampleLedger(), 2)
	if len(r) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(r))
	}

	// Spending: Aluguel 1000, Gasolina 650, Cartão 500 -> total 2150
	if r[0].Category != "Aluguel" || r[0].Position != 1 {
		t.Errorf("Unexpected first row: %+v", r[0])
	}
	if r[1].Category != "Gasolina" || r[1].Count != 3 || !r[1].Total.Equal(dec("650")) {
		t.Errorf("Unexpected second row: %+v", r[1])
	}
	if r[1].Share != 30.23 {
		t.Errorf("Share = %v, want 30.23", r[1].Share)
	}
	if !r[1].Mean.Equal(dec("216.67")) {
		t.Errorf("Mean = %s, want 216.67", r[1].Mean)
	}

	if all := Ranking(sampleLedger(), 0); len(all) != 3 {
		t.Errorf("Expected every spending category, got %d", len(all))
	}
}

func TestSeries(t *testing.T) {
	l := ledger.New("test", []domain.Transaction{
		tx("2024-01-01", "Salário", domain.KindIncome, "100"),
		tx("2024-01-03", "Gasolina", domain.KindExpense, "40"),
	})

	s := Series(l, domain.BucketDay)
	if len(s) != 3 {
		t.Fatalf("Expected gap-filled series of 3 days, got %d", len(s))
	}
	if s[1].Count != 0 || !s[1].Flow.IsZero() {
		t.Errorf("Expected empty middle day, got %+v", s[1])
	}
	if !s[2].Cumulative.Equal(dec("60")) || !s[2].Expense.Equal(dec("40")) {
		t.Errorf("Unexpected last point: %+v", s[2])
	}
	if s[2].MA7 != 20 {
		t.Errorf("MA7 = %v, want 20", s[2].MA7)
	}

	if Series(ledger.New("empty", nil), domain.BucketDay) != nil {
		t.Error("Expected nil series for empty ledger")
	}
}

func TestVariationOf(t *testing.T) {
	l := ledger.New("test", []domain.Transaction{
		tx("2024-01-01", "Gasolina", domain.KindExpense, "100"),
		tx("2024-01-02", "Gasolina", domain.KindExpense, "100"),
		tx("2024-01-03", "Gasolina", domain.KindExpense, "150"),
		tx("2024-01-04", "Gasolina", domain.KindExpense, "150"),
	})

	v := VariationOf(l, domain.KindExpense)
	if !v.First.Equal(dec("200")) || !v.Second.Equal(dec("300")) {
		t.Fatalf("Unexpected halves: %s / %s", v.First, v.Second)
	}
	if v.Percent != 50 || v.Trend != TrendUp {
		t.Errorf("Percent = %v trend = %s, want 50 up", v.Percent, v.Trend)
	}

	income := VariationOf(l, domain.KindIncome)
	if income.Percent != 0 || income.Trend != TrendStable {
		t.Errorf("Expected stable zero variation without income, got %+v", income)
	}
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		pct  float64
		want Trend
	}{
		{10, TrendUp},
		{5, TrendStable},
		{-5, TrendStable},
		{-5.01, TrendDown},
	}
	for _, tt := range tests {
		if got := TrendOf(tt.pct); got != tt.want {
			t.Errorf("TrendOf(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestFlowTrendOf(t *testing.T) {
	single := ledger.New("test", []domain.Transaction{tx("2024-01-01", "Salário", domain.KindIncome, "100")})
	if got := FlowTrendOf(single).Direction; got != DirectionInsufficient {
		t.Errorf("Direction = %s, want insufficient", got)
	}

	rising := ledger.New("test", []domain.Transaction{
		tx("2024-01-01", "Salário", domain.KindIncome, "100"),
		tx("2024-01-02", "Salário", domain.KindIncome, "200"),
		tx("2024-01-03", "Salário", domain.KindIncome, "300"),
	})
	ft := FlowTrendOf(rising)
	if ft.Direction != DirectionStrongUp || ft.Slope != 100 {
		t.Errorf("Unexpected trend: %+v", ft)
	}
}

func TestAlerts(t *testing.T) {
	l := sampleLedger()
	k := KPIs(l)
	ranking := Ranking(l, 0)

	alerts := Alerts(k, ranking, 2, DefaultAlertOptions())

	var codes []string
	for _, a := range alerts {
		codes = append(codes, a.Code)
	}
	// Savings rate is 72.5%, balance is positive.
	want := []string{"pending_debt", "dominant_category", "anomalies"}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Errorf("Alerts() mismatch (-want +got):\n%s", diff)
	}

	broke := ledger.New("test", []domain.Transaction{
		tx("2024-01-01", "Gasolina", domain.KindExpense, "100"),
	})
	bk := KPIs(broke)
	codes = nil
	for _, a := range Alerts(bk, nil, 0, DefaultAlertOptions()) {
		codes = append(codes, a.Code)
	}
	want = []string{"negative_balance", "low_savings"}
	if diff := cmp.Diff(want, codes); diff != "" {
		t.Errorf("Alerts() mismatch (-want +got):\n%s", diff)
	}
}

func TestInsights(t *testing.T) {
	l := sampleLedger()
	got := Insights(KPIs(l), Ranking(l, 3), FlowTrendOf(l))

	var titles []string
	for _, i := range got {
		titles = append(titles, i.Title)
	}
	want := []string{"Largest expense", "Great savings", "Cash-flow trend", "Open debts"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("Insights() mismatch (-want +got):\n%s", diff)
	}
}
