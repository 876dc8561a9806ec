// Package scenario runs what-if analysis on an options position: it shifts
// the underlying price, evaluates the payoff before and after, scans for the
// extremes and asks the advisor for adjustments.
package scenario

import (
	"math"

	"github.com/shopspring/decimal"

	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

// DefaultMove is the fractional price move used when a scenario gives no value.
const DefaultMove = 0.10

// Price maps a scenario onto a hypothetical spot price.
//
// volatility_increase and time_decay leave the price unchanged: the payoff
// model is intrinsic-value only, so neither has anything to act on.
func Price(current float64, kind models.ScenarioKind, value *float64) (float64, error) {
	return priceWithDefault(current, kind, value, DefaultMove)
}

func priceWithDefault(current float64, kind models.ScenarioKind, value *float64, def float64) (float64, error) {
	move := def
	if value != nil && *value != 0 {
		move = *value
	}

	// Decimal arithmetic keeps 100 * (1 + 0.1) at exactly 110.
	cur, mv := decimal.NewFromFloat(current), decimal.NewFromFloat(move)
	switch kind {
	case models.ScenarioPriceUp:
		return cur.Mul(decimal.NewFromInt(1).Add(mv)).InexactFloat64(), nil
	case models.ScenarioPriceDown:
		return cur.Mul(decimal.NewFromInt(1).Sub(mv)).InexactFloat64(), nil
	case models.ScenarioVolatilityIncrease, models.ScenarioTimeDecay:
		return current, nil
	}
	return 0, apperrors.InvalidScenario(string(kind))
}

func validatePrice(price float64) error {
	if !(price > 0) || math.IsInf(price, 0) {
		return apperrors.InvalidPosition("current_price", price, "must be a positive finite number")
	}
	return nil
}
