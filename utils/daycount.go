package utils

import (
	"time"
)

// YearFraction computes year fraction between two dates using the specified day count convention.
// Supported conventions: ACT/360, ACT/365F, ACT/365.25
//
// Option maturities are measured in ACT/365F, matching the quote data sets
// the calibrator is fitted against.
func YearFraction(start, end time.Time, convention string) float64 {
	days := Days(start, end)
	switch convention {
	case "ACT/360":
		return days / 360.0
	case "ACT/365.25":
		return days / 365.25
	case "ACT/365F":
		return days / 365.0
	default:
		return days / 365.0
	}
}
