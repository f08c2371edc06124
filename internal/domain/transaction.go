package domain

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Kind is the cash-flow direction of a transaction.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
	KindDebt    Kind = "debt"
)

// CostClass separates recurring (fixed) costs from variable ones.
type CostClass string

const (
	CostFixed    CostClass = "fixed"
	CostVariable CostClass = "variable"
)

// UnknownLabel is used for optional text fields missing from the source.
const UnknownLabel = "Não Informado"

// Transaction is one normalized ledger entry.
// Amount sign always follows Kind: income is positive, expense and debt are
// negative. RecordedBalance is the Saldo column exactly as stored in the source;
// RunningBalance is recomputed from the signed amounts in ledger order.
type Transaction struct {
	ID          string
	Code        int // Codigo
	Description string
	Date        civil.Date
	Category    string
	Kind        Kind
	Paid        bool
	CostClass   CostClass

	Amount          decimal.Decimal
	Profit          decimal.Decimal
	RecordedBalance decimal.Decimal
	RunningBalance  decimal.Decimal
}

// Magnitude returns the absolute value of the amount.
func (t Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

// IsPendingDebt reports whether the transaction is an unpaid debt.
func (t Transaction) IsPendingDebt() bool {
	return t.Kind == KindDebt && !t.Paid
}

// SignedAmount normalizes the sign of a raw amount for the given kind.
func SignedAmount(kind Kind, raw decimal.Decimal) decimal.Decimal {
	if kind == KindIncome {
		return raw.Abs()
	}
	return raw.Abs().Neg()
}

// ParseKind maps a Tipo cell to a Kind. Accents and case are ignored, so
// "Saída", "saida" and "SAIDA" all map to KindExpense.
func ParseKind(s string) (Kind, bool) {
	switch fold(s) {
	case "entrada", "income", "receita":
		return KindIncome, true
	case "saida", "expense", "despesa":
		return KindExpense, true
	case "divida", "divida parcial", "debt":
		return KindDebt, true
	}
	return "", false
}

// ParseCostClass maps a Custo_Fixo_x_Variavel cell to a CostClass.
// Anything that is not explicitly fixed is variable.
func ParseCostClass(s string) CostClass {
	switch fold(s) {
	case "fixo", "fixed", "fixa":
		return CostFixed
	}
	return CostVariable
}

// ParsePaid maps a Pago_ou_nao_pago cell to a paid flag.
func ParsePaid(s string) bool {
	switch fold(s) {
	case "pago", "paid", "sim", "true", "yes":
		return true
	}
	return false
}

// Label returns the Portuguese label used in the source files.
func (k Kind) Label() string {
	switch k {
	case KindIncome:
		return "Entrada"
	case KindExpense:
		return "Saída"
	case KindDebt:
		return "Dívida"
	}
	return string(k)
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = accentReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
