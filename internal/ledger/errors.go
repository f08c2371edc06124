package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLedger is returned by Store.Current before the first successful load.
	ErrNoLedger = errors.New("no ledger loaded")

	ErrMissingColumn = errors.New("missing mandatory column")
	ErrEmptyValue    = errors.New("empty mandatory value")
	ErrInvalidDate   = errors.New("invalid date, expected dd/mm/yyyy")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnknownKind   = errors.New("unknown transaction type")
)

// DataFormatError describes malformed input data. Row is the 1-based line in
// the source (0 when the problem is in the header).
type DataFormatError struct {
	Source string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *DataFormatError) Error() string {
	switch {
	case e.Row == 0:
		return fmt.Sprintf("%s: column %q: %v", e.Source, e.Column, e.Err)
	case e.Value != "":
		return fmt.Sprintf("%s: row %d, column %q: %v (value %q)", e.Source, e.Row, e.Column, e.Err, e.Value)
	default:
		return fmt.Sprintf("%s: row %d, column %q: %v", e.Source, e.Row, e.Column, e.Err)
	}
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}
