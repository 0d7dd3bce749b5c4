package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

var (
	ErrInvalidExpr  = errors.New("invalid cron expression")
	ErrNoOccurrence = errors.New("cron expression has no occurrence within a year")
)

// Validate checks that expr is a valid cron expression with exactly 5 fields
// (minute hour day-of-month month day-of-week).
func Validate(expr string) error {
	// gronx.IsValid also accepts 6 fields (with seconds)
	if len(strings.Fields(expr)) != 5 || !gronx.IsValid(expr) {
		return fmt.Errorf("%w %q, expected 5-field format (minute hour day-of-month month day-of-week)", ErrInvalidExpr, expr)
	}
	return nil
}

// NextOccurrence returns the next time expr fires strictly after from.
func NextOccurrence(expr string, from time.Time) (time.Time, error) {
	if err := Validate(expr); err != nil {
		return time.Time{}, err
	}
	return gronx.NextTickAfter(expr, from, false)
}

// hasOccurrenceWithinYear reports whether expr fires within one year of from.
// Invalid expressions never do.
func hasOccurrenceWithinYear(expr string, from time.Time) bool {
	next, err := gronx.NextTickAfter(expr, from, false)
	if err != nil {
		return false
	}
	return next.Before(from.Add(365 * 24 * time.Hour))
}
