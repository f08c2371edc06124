// Package anomaly flags spending that deviates from a category's own history.
package anomaly

import (
	"fmt"
	"math"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/analytics"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
	"github.com/dvloznov/finance-dashboard/internal/stats"
)

// Scope says what an anomaly refers to.
type Scope string

const (
	ScopeCategoryPeriod Scope = "category_period"
	ScopeTransaction    Scope = "transaction"
)

// Anomaly is one flagged observation. For ScopeCategoryPeriod, Period is
// set; for ScopeTransaction, TransactionID and Date are set.
type Anomaly struct {
	ID            string
	Scope         Scope
	Category      string
	Period        domain.Period
	TransactionID string
	Date          civil.Date
	Observed      float64
	Mean          float64
	StdDev        float64
	Score         float64
	Explanation   string
}

// Options configures Detect.
type Options struct {
	// Sensitivity is the number of standard deviations above the mean that
	// counts as anomalous.
	Sensitivity float64
	// MinHistory is the minimum number of earlier active periods a category
	// needs before it is evaluated.
	MinHistory int
	Bucket     domain.Bucket
}

// DefaultOptions: 2 standard deviations, 3 historical months.
func DefaultOptions() Options {
	return Options{Sensitivity: 2.0, MinHistory: 3, Bucket: domain.BucketMonth}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Sensitivity <= 0 {
		o.Sensitivity = d.Sensitivity
	}
	if o.MinHistory < 1 {
		o.MinHistory = d.MinHistory
	}
	if o.Bucket == "" {
		o.Bucket = d.Bucket
	}
	return o
}

var anomalyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("finance-dashboard/anomaly"))

// Detect evaluates the most recent period of the view for every category.
// A category is flagged when its spending magnitude in that period exceeds
// mean + Sensitivity*stddev of its earlier active periods. Only the most
// recent period is ever flagged. Results are ordered by score, highest first.
//
// It fails with *domain.InsufficientDataError when the view spans fewer than
// MinHistory+1 periods.
func Detect(l *ledger.Ledger, opts Options) ([]Anomaly, error) {
	opts = opts.withDefaults()
	aggs := analytics.Aggregate(l, opts.Bucket)

	distinct := make(map[domain.Period]struct{})
	var latest domain.Period
	for _, a := range aggs {
		distinct[a.Period] = struct{}{}
		if latest.Start.IsZero() || latest.Before(a.Period) {
			latest = a.Period
		}
	}
	if len(distinct) < opts.MinHistory+1 {
		return nil, &domain.InsufficientDataError{
			Operation: "anomaly detection",
			Need:      opts.MinHistory + 1,
			Have:      len(distinct),
		}
	}

	type series struct {
		history  []float64
		observed float64
		seen     bool
	}
	byCategory := make(map[string]*series)
	for _, a := range aggs {
		s, ok := byCategory[a.Category]
		if !ok {
			s = &series{}
			byCategory[a.Category] = s
		}
		v := a.Gross().InexactFloat64()
		if a.Period == latest {
			s.observed = v
			s.seen = true
		} else {
			s.history = append(s.history, v)
		}
	}

	var out []Anomaly
	for cat, s := range byCategory {
		if !s.seen || len(s.history) < opts.MinHistory {
			continue
		}
		mean := stats.Mean(s.history)
		sd := stats.StdDev(s.history)
		if s.observed <= mean+opts.Sensitivity*sd {
			continue
		}

		var score float64
		if sd > 0 {
			score = (s.observed - mean) / sd
		}
		out = append(out, Anomaly{
			ID:          uuid.NewSHA1(anomalyNamespace, []byte(cat+"|"+latest.String())).String(),
			Scope:       ScopeCategoryPeriod,
			Category:    cat,
			Period:      latest,
			Observed:    s.observed,
			Mean:        mean,
			StdDev:      sd,
			Score:       score,
			Explanation: explainPeriod(cat, latest, s.observed, mean, sd, score),
		})
	}

	sortAnomalies(out)
	return out, nil
}

// DetectTransactions flags individual transactions whose magnitude has a
// z-score above threshold within their own category. Categories need at least
// three transactions and a non-zero spread.
func DetectTransactions(l *ledger.Ledger, threshold float64) []Anomaly {
	if threshold <= 0 {
		threshold = DefaultOptions().Sensitivity
	}

	byCategory := make(map[string][]domain.Transaction)
	for _, t := range l.Transactions() {
		byCategory[t.Category] = append(byCategory[t.Category], t)
	}

	var out []Anomaly
	for cat, txs := range byCategory {
		if len(txs) < 3 {
			continue
		}
		values := make([]float64, len(txs))
		for i, t := range txs {
			values[i] = t.Magnitude().InexactFloat64()
		}
		mean := stats.Mean(values)
		sd := stats.StdDev(values)
		if sd == 0 {
			continue
		}

		for i, t := range txs {
			z := (values[i] - mean) / sd
			if math.Abs(z) <= threshold {
				continue
			}
			out = append(out, Anomaly{
				ID:            uuid.NewSHA1(anomalyNamespace, []byte(t.ID)).String(),
				Scope:         ScopeTransaction,
				Category:      cat,
				TransactionID: t.ID,
				Date:          t.Date,
				Observed:      values[i],
				Mean:          mean,
				StdDev:        sd,
				Score:         z,
				Explanation: fmt.Sprintf("%q on %s (%s) is %.1f standard deviations from the %s average of %s.",
					t.Description, t.Date, money(values[i]), z, cat, money(mean)),
			})
		}
	}

	sortAnomalies(out)
	return out
}

func sortAnomalies(out []Anomaly) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
}

func explainPeriod(category string, p domain.Period, observed, mean, sd, score float64) string {
	if sd == 0 {
		return fmt.Sprintf("%s in %s totalled %s, above its constant historical value of %s.",
			category, p, money(observed), money(mean))
	}
	return fmt.Sprintf("%s in %s totalled %s, %.1f standard deviations above the historical mean of %s.",
		category, p, money(observed), score, money(mean))
}

func money(v float64) string {
	return domain.FormatBRL(decimal.NewFromFloat(v))
}
