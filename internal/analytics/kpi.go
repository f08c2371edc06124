package analytics

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
)

// KPISet is the scalar snapshot shown in the dashboard header.
//
// TotalExpense, TotalDebt and PendingDebt are signed (zero or negative).
// NetBalance is TotalIncome + TotalExpense; debts are tracked separately.
// TotalBalance is the sum of every signed amount in the view, which is the
// canonical balance: the stored Saldo column is never trusted for KPIs.
// SavingsRate is NetBalance / TotalIncome as a ratio, and exactly 0 when
// there is no income.
type KPISet struct {
	TotalBalance decimal.Decimal
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	NetBalance   decimal.Decimal
	TotalDebt    decimal.Decimal
	PendingDebt  decimal.Decimal
	SavingsRate  decimal.Decimal
	Transactions int
	From         civil.Date
	To           civil.Date
}

// SavingsRatePercent returns the savings rate scaled to percent.
func (k KPISet) SavingsRatePercent() decimal.Decimal {
	return k.SavingsRate.Mul(decimal.NewFromInt(100))
}

// KPIs computes the KPI snapshot for a ledger view.
func KPIs(l *ledger.Ledger) KPISet {
	var k KPISet
	for _, t := range l.Transactions() {
		k.TotalBalance = k.TotalBalance.Add(t.Amount)
		switch t.Kind {
		case domain.KindIncome:
			k.TotalIncome = k.TotalIncome.Add(t.Amount)
		case domain.KindExpense:
			k.TotalExpense = k.TotalExpense.Add(t.Amount)
		case domain.KindDebt:
			k.TotalDebt = k.TotalDebt.Add(t.Amount)
		}
		if t.IsPendingDebt() {
			k.PendingDebt = k.PendingDebt.Add(t.Amount)
		}
	}

	k.NetBalance = k.TotalIncome.Add(k.TotalExpense)
	if k.TotalIncome.IsPositive() {
		k.SavingsRate = k.NetBalance.DivRound(k.TotalIncome, 4)
	}

	k.Transactions = l.Len()
	k.From, k.To, _ = l.DateRange()

	return k
}
