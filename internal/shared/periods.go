package shared

import (
	"fmt"
	"regexp"
	"time"
)

var periodKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// PeriodKey formats a timestamp as the YYYY-MM accumulator key.
func PeriodKey(t time.Time) string {
	return t.Format("2006-01")
}

// CurrentPeriodKey returns the accumulator key for the current month.
func CurrentPeriodKey() string {
	return PeriodKey(time.Now())
}

// ValidatePeriodKey rejects keys that are not YYYY-MM.
func ValidatePeriodKey(key string) error {
	if !periodKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: period key %q must be YYYY-MM", ErrValidation, key)
	}
	return nil
}
