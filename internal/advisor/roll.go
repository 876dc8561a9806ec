package advisor

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"options-analyzer/internal/models"
	"options-analyzer/pkg/utils"
)

// RollConfig controls roll suggestion strikes and the credit/debit estimate.
type RollConfig struct {
	StrikeIncrement float64 // strikes are rounded to a multiple of this
	CreditFactor    float64 // estimated credit/debit per point of strike change
	Expirations     int     // number of upcoming expirations to list
}

// DefaultRollConfig returns the standard roll configuration.
func DefaultRollConfig() RollConfig {
	return RollConfig{
		StrikeIncrement: 5,
		CreditFactor:    0.1,
		Expirations:     3,
	}
}

const rollReason = "Strike adjustment based on current price movement"

// RollSuggestions proposes a new strike for every in-the-money leg: calls
// below price move to one increment above the rounded price, puts above
// price to one increment below. Legs needing no change are skipped.
func (a *Advisor) RollSuggestions(legs models.Position, price float64) []models.RollSuggestion {
	inc := a.roll.StrikeIncrement
	if inc <= 0 {
		inc = DefaultRollConfig().StrikeIncrement
	}
	// Ties go to the even multiple: 182.5 rounds to 180.
	atm := math.RoundToEven(price/inc) * inc

	var out []models.RollSuggestion
	for _, leg := range legs {
		newStrike := leg.Strike
		switch {
		case leg.IsCall() && price > leg.Strike:
			newStrike = atm + inc
		case leg.IsPut() && price < leg.Strike:
			newStrike = atm - inc
		}
		if newStrike == leg.Strike {
			continue
		}

		estimate := decimal.NewFromFloat(newStrike - leg.Strike).
			Mul(decimal.NewFromFloat(a.roll.CreditFactor)).
			Round(2).
			InexactFloat64()

		out = append(out, models.RollSuggestion{
			Leg:                  leg,
			NewStrike:            newStrike,
			Original:             leg.Label(),
			Suggested:            models.LegLabel(leg.Side, leg.Type, newStrike),
			Reason:               rollReason,
			EstimatedCreditDebit: estimate,
		})
	}
	return out
}

// RollReport builds the roll analysis of a saved strategy priced at price.
func (a *Advisor) RollReport(s *models.Strategy, price float64, now time.Time) *models.RollReport {
	n := a.roll.Expirations
	if n <= 0 {
		n = DefaultRollConfig().Expirations
	}

	expirations := utils.NextMonthlyExpirations(now, n)
	dates := make([]string, len(expirations))
	for i, e := range expirations {
		dates[i] = e.Format("2006-01-02")
	}

	return &models.RollReport{
		StrategyID:      s.ID,
		Ticker:          s.Ticker,
		CurrentPrice:    price,
		Suggestions:     a.RollSuggestions(s.Legs, price),
		NextExpirations: dates,
	}
}

// RollSuggestions proposes rolls with the default configuration.
func RollSuggestions(legs models.Position, price float64) []models.RollSuggestion {
	return NewDefault().RollSuggestions(legs, price)
}
