package domain

import "fmt"

// InsufficientDataError reports that an analysis needs more data points than
// the current view provides. Callers render it as "not enough data".
type InsufficientDataError struct {
	Operation string
	Need      int
	Have      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need at least %d points, have %d", e.Operation, e.Need, e.Have)
}
