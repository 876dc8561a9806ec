package utils

import (
	"time"
)

// NewYorkLocation is the timezone for US equity options.
var NewYorkLocation *time.Location

func init() {
	var err error
	NewYorkLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to EST
		NewYorkLocation = time.FixedZone("EST", -5*60*60)
	}
}

// ThirdFriday returns the standard monthly expiration for the month of t.
func ThirdFriday(t time.Time) time.Time {
	current := time.Date(t.Year(), t.Month(), 1, 16, 0, 0, 0, NewYorkLocation)

	// Find first Friday
	for current.Weekday() != time.Friday {
		current = current.AddDate(0, 0, 1)
	}

	return current.AddDate(0, 0, 14)
}

// NextMonthlyExpirations returns the next n monthly expirations strictly after now.
func NextMonthlyExpirations(now time.Time, n int) []time.Time {
	now = now.In(NewYorkLocation)
	out := make([]time.Time, 0, n)

	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, NewYorkLocation)
	for len(out) < n {
		exp := ThirdFriday(month)
		if exp.After(now) {
			out = append(out, exp)
		}
		month = month.AddDate(0, 1, 0)
	}
	return out
}

// DaysToExpiry returns the whole days from now until expiry, never negative.
func DaysToExpiry(now, expiry time.Time) int {
	days := int(expiry.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
