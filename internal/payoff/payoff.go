// Package payoff evaluates the expiration profit/loss of multi-leg option positions.
//
// The model is intrinsic-value only: time value and volatility are ignored,
// so results describe the position at expiration rather than a mark-to-market.
package payoff

import (
	"math"

	"options-analyzer/internal/models"
)

// Intrinsic returns the value of the leg if exercised at price.
func Intrinsic(price float64, leg models.OptionLeg) float64 {
	if leg.IsCall() {
		return math.Max(0, price-leg.Strike)
	}
	return math.Max(0, leg.Strike-price)
}

// LegPnL returns the profit/loss of a single leg at price, in currency units.
func LegPnL(price float64, leg models.OptionLeg) float64 {
	intrinsic := Intrinsic(price, leg)
	size := float64(leg.Quantity * models.ContractMultiplier)
	if leg.IsLong() {
		return (intrinsic - leg.Premium) * size
	}
	return (leg.Premium - intrinsic) * size
}

// Evaluate returns the total profit/loss of legs at price. An empty position is worth 0.
func Evaluate(price float64, legs []models.OptionLeg) float64 {
	var total float64
	for _, leg := range legs {
		total += LegPnL(price, leg)
	}
	return total
}

// NetPremium returns the premium received (positive) or paid (negative) to open legs.
func NetPremium(legs []models.OptionLeg) float64 {
	var net float64
	for _, leg := range legs {
		amount := leg.Premium * float64(leg.Quantity*models.ContractMultiplier)
		if leg.IsLong() {
			net -= amount
		} else {
			net += amount
		}
	}
	return net
}

// Point is one sample of a payoff curve.
type Point struct {
	Price float64 `json:"price"`
	PnL   float64 `json:"pnl"`
}

// Curve samples the payoff of legs at every price in prices.
func Curve(legs []models.OptionLeg, prices []float64) []Point {
	points := make([]Point, len(prices))
	for i, p := range prices {
		points[i] = Point{Price: p, PnL: Evaluate(p, legs)}
	}
	return points
}
