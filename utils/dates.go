package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayouts lists the layouts accepted by ParseDate, tried in order.
//
// Day-first layouts come before ISO because quote tables exported from
// European desks write 05/03/2020 for 5 March.
var DateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"2006/01/02",
}

// ParseDate converts a calendar date string to a UTC midnight time.Time.
func ParseDate(strDate string) (time.Time, error) {
	s := strings.TrimSpace(strDate)
	if s == "" {
		return time.Time{}, fmt.Errorf("ParseDate: empty date")
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("ParseDate: unrecognised date %q", strDate)
}

// MustParseDate is ParseDate for literals in tests and examples.
func MustParseDate(strDate string) time.Time {
	t, err := ParseDate(strDate)
	if err != nil {
		panic(err)
	}
	return t
}

// Days returns the number of calendar days between two dates.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}
