package vic

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DateTimezoneMarker ends the meaningful part of an idea's date text,
	// anything after it (comment counts, edit notes) is ignored.
	DateTimezoneMarker = "EST"
	DateLayout         = "January 2, 2006 - 3:04PM"
)

var ErrDateParse = errors.New("could not parse idea date")

// ParseDate parses the raw "posted" text of an idea, for example
// "March 3, 2021 - 2:15PM EST Comment". The timestamp is returned as-is in
// UTC, no timezone conversion is applied.
func ParseDate(raw string) (time.Time, error) {
	idx := strings.Index(raw, DateTimezoneMarker)
	if idx < 0 {
		return time.Time{}, fmt.Errorf("%w: no %s marker in %q", ErrDateParse, DateTimezoneMarker, raw)
	}
	value := strings.Join(strings.Fields(raw[:idx]), " ")
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrDateParse, err)
	}
	return t, nil
}
