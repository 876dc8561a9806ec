package payoff

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

// Default scan bounds as fractions of the current price.
const (
	DefaultScanLow  = 0.5
	DefaultScanHigh = 1.5
)

// ScanRange is the half-open integer price range [Min, Max) swept by the scanner.
// Bounds are kept as float64 so very large prices do not overflow.
type ScanRange struct {
	Min float64
	Max float64
}

// NewScanRange returns [floor(low*price), ceil(high*price)).
func NewScanRange(price, low, high float64) ScanRange {
	return ScanRange{
		Min: math.Floor(low * price),
		Max: math.Ceil(high * price),
	}
}

// Empty reports whether the range has no candidate prices.
func (r ScanRange) Empty() bool {
	return !(r.Max > r.Min)
}

// Last returns the highest integer price in the range.
func (r ScanRange) Last() float64 {
	return math.Max(r.Min, r.Max-1)
}

// Candidates returns the integer prices of the range at which a piecewise
// linear payoff with kinks at the leg strikes can reach its extremes: both
// ends of the range and the whole prices on either side of every strike
// inside it. Sorted ascending without duplicates.
func (r ScanRange) Candidates(legs []models.OptionLeg) []float64 {
	if r.Empty() {
		return nil
	}
	lo, hi := r.Min, r.Last()

	out := make([]float64, 0, 2+2*len(legs))
	out = append(out, lo, hi)
	for _, leg := range legs {
		for _, p := range []float64{math.Floor(leg.Strike), math.Ceil(leg.Strike)} {
			if p > lo && p < hi {
				out = append(out, p)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Scanner finds the best and worst payoff of a position over a price range
// centred on the current price. The result is the extreme over every whole
// price in the range; only the candidate prices are evaluated.
type Scanner struct {
	Low  float64
	High float64
}

// NewScanner returns a scanner with the default 50%..150% window.
func NewScanner() Scanner {
	return Scanner{Low: DefaultScanLow, High: DefaultScanHigh}
}

// Range returns the scan range for price.
func (s Scanner) Range(price float64) ScanRange {
	return NewScanRange(price, s.Low, s.High)
}

// Extremes returns the maximum profit and maximum loss of legs over the scan range.
func (s Scanner) Extremes(legs []models.OptionLeg, price float64) (maxProfit, maxLoss float64, err error) {
	if !(price > 0) || math.IsInf(price, 0) {
		return 0, 0, apperrors.InvalidPosition("current_price", price, "must be a positive finite number")
	}

	r := s.Range(price)
	if r.Empty() {
		return 0, 0, apperrors.InvalidPosition("current_price", price, "scan range is empty")
	}

	prices := r.Candidates(legs)
	pnl := make([]float64, len(prices))
	for i, p := range prices {
		pnl[i] = Evaluate(p, legs)
	}

	return floats.Max(pnl), floats.Min(pnl), nil
}

// Extremes scans with the default window.
func Extremes(legs []models.OptionLeg, price float64) (maxProfit, maxLoss float64, err error) {
	return NewScanner().Extremes(legs, price)
}
