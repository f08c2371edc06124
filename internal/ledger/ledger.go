package ledger

import (
	"slices"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// Ledger is an immutable, date-ordered collection of transactions.
// Filtered views share the running balances computed for the full ledger.
type Ledger struct {
	source   string
	loadedAt time.Time
	txs      []domain.Transaction
}

// New builds a ledger from transactions in source order. Transactions are
// stably sorted by date and running balances are recomputed from the
// signed amounts.
func New(source string, txs []domain.Transaction) *Ledger {
	sorted := slices.Clone(txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	balance := decimal.Zero
	for i := range sorted {
		balance = balance.Add(sorted[i].Amount)
		sorted[i].RunningBalance = balance
	}

	return &Ledger{
		source:   source,
		loadedAt: time.Now(),
		txs:      sorted,
	}
}

// Source names where the ledger was loaded from.
func (l *Ledger) Source() string { return l.source }

// LoadedAt is when the underlying dataset was loaded.
func (l *Ledger) LoadedAt() time.Time { return l.loadedAt }

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.txs) }

// Transactions returns a copy of the transactions in ledger order.
func (l *Ledger) Transactions() []domain.Transaction {
	return slices.Clone(l.txs)
}

// Categories returns the distinct category labels, sorted.
func (l *Ledger) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range l.txs {
		if _, ok := seen[t.Category]; ok {
			continue
		}
		seen[t.Category] = struct{}{}
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out
}

// DateRange returns the first and last transaction dates.
func (l *Ledger) DateRange() (first, last civil.Date, ok bool) {
	if len(l.txs) == 0 {
		return civil.Date{}, civil.Date{}, false
	}
	return l.txs[0].Date, l.txs[len(l.txs)-1].Date, true
}

// Filter returns a new view containing the transactions matching f.
// The receiver is never modified.
func (l *Ledger) Filter(f Filter) *Ledger {
	out := make([]domain.Transaction, 0, len(l.txs))
	for _, t := range l.txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return &Ledger{
		source:   l.source,
		loadedAt: l.loadedAt,
		txs:      out,
	}
}
