package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThirdFriday(t *testing.T) {
	cases := map[string]string{
		"2025-01-05": "2025-01-17",
		"2025-02-01": "2025-02-21",
		"2025-03-31": "2025-03-21",
		"2026-10-17": "2026-10-16",
	}
	for in, want := range cases {
		d, err := time.Parse("2006-01-02", in)
		require.NoError(t, err)
		got := ThirdFriday(d)
		assert.Equal(t, want, got.Format("2006-01-02"), in)
		assert.Equal(t, time.Friday, got.Weekday())
	}
}

func TestNextMonthlyExpirations(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, NewYorkLocation)
	exps := NextMonthlyExpirations(now, 3)
	require.Len(t, exps, 3)
	assert.Equal(t, "2025-02-21", exps[0].Format("2006-01-02"))
	assert.Equal(t, "2025-03-21", exps[1].Format("2006-01-02"))
	assert.Equal(t, "2025-04-18", exps[2].Format("2006-01-02"))

	// Before this month's expiration it is included.
	now = time.Date(2025, 1, 10, 12, 0, 0, 0, NewYorkLocation)
	exps = NextMonthlyExpirations(now, 1)
	assert.Equal(t, "2025-01-17", exps[0].Format("2006-01-02"))
}

func TestDaysToExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 16, DaysToExpiry(now, now.AddDate(0, 0, 16)))
	assert.Equal(t, 0, DaysToExpiry(now, now.AddDate(0, 0, -3)))
}
