package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// dateLayouts are tried in order. Day-first layouts come first since that is
// what the spreadsheets export; ISO is accepted for warehouse rows.
var dateLayouts = []string{"2/1/2006", "2-1-2006", "2.1.2006", "2006-01-02"}

// FromTable validates a raw table and converts it into a Ledger.
// Either every row converts or no ledger is returned.
func FromTable(source string, t *Table) (*Ledger, error) {
	idx := t.columnIndex()

	for _, col := range MandatoryColumns {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return nil, &DataFormatError{Source: source, Column: col, Err: ErrMissingColumn}
		}
	}

	txs := make([]domain.Transaction, 0, len(t.Rows))
	for _, row := range t.Rows {
		tx, err := convertRow(source, idx, row)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return New(source, txs), nil
}

func convertRow(source string, idx map[string]int, row Row) (domain.Transaction, error) {
	get := func(col string) string {
		i, ok := idx[strings.ToLower(col)]
		if !ok || i >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[i])
	}
	fail := func(col, value string, err error) error {
		return &DataFormatError{Source: source, Row: row.Line, Column: col, Value: value, Err: err}
	}

	code := parseOptionalInt(get(ColCode))

	rawDate := get(ColDate)
	if rawDate == "" {
		return domain.Transaction{}, fail(ColDate, "", ErrEmptyValue)
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return domain.Transaction{}, fail(ColDate, rawDate, ErrInvalidDate)
	}

	category := get(ColCategory)
	if category == "" {
		if name, ok := domain.CategoryForCode(code); ok {
			category = name
		} else {
			return domain.Transaction{}, fail(ColCategory, "", ErrEmptyValue)
		}
	}

	rawKind := get(ColKind)
	if rawKind == "" {
		return domain.Transaction{}, fail(ColKind, "", ErrEmptyValue)
	}
	kind, ok := domain.ParseKind(rawKind)
	if !ok {
		return domain.Transaction{}, fail(ColKind, rawKind, ErrUnknownKind)
	}

	rawAmount := get(ColAmount)
	if rawAmount == "" {
		return domain.Transaction{}, fail(ColAmount, "", ErrEmptyValue)
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return domain.Transaction{}, fail(ColAmount, rawAmount, ErrInvalidAmount)
	}

	description := get(ColName)
	if description == "" {
		description = domain.UnknownLabel
	}

	return domain.Transaction{
		ID:              transactionID(source, row.Line),
		Code:            code,
		Description:     description,
		Date:            date,
		Category:        category,
		Kind:            kind,
		Paid:            domain.ParsePaid(get(ColPaid)),
		CostClass:       domain.ParseCostClass(get(ColCostClass)),
		Amount:          domain.SignedAmount(kind, amount),
		Profit:          parseOptionalAmount(get(ColProfit)),
		RecordedBalance: parseOptionalAmount(get(ColBalance)),
	}, nil
}

// transactionID is stable across reloads of the same source.
func transactionID(source string, line int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", source, line))).String()
}

func parseDate(s string) (civil.Date, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return civil.DateOf(t), nil
		}
		lastErr = err
	}
	return civil.Date{}, lastErr
}

// parseAmount accepts plain decimals ("1234.56"), Brazilian notation
// ("1.234,56") and an optional "R$" prefix.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	return decimal.NewFromString(s)
}

func parseOptionalAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := parseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseOptionalInt(s string) int {
	if s == "" {
		return 0
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	// Spreadsheets sometimes export integer codes as "8888.0".
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}
