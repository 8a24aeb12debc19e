package utils

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDateBound parses a date filter. Dates without a time become the start
// of the day, or the start of the next day when endOfDay is set so that an
// exclusive upper bound still includes the whole day.
func ParseDateBound(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", value)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
