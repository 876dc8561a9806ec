package payoff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

// aaplCallSpread is a bear call spread opened for a 1.30 credit.
func aaplCallSpread() []models.OptionLeg {
	return []models.OptionLeg{
		{Type: models.OptionTypeCall, Side: models.OrderSideSell, Strike: 180, Premium: 7.50, Quantity: 1},
		{Type: models.OptionTypeCall, Side: models.OrderSideBuy, Strike: 185, Premium: 6.20, Quantity: 1},
	}
}

func TestIntrinsic(t *testing.T) {
	call := models.OptionLeg{Type: models.OptionTypeCall, Strike: 100}
	put := models.OptionLeg{Type: models.OptionTypePut, Strike: 100}

	assert.Equal(t, 10.0, Intrinsic(110, call))
	assert.Equal(t, 0.0, Intrinsic(90, call))
	assert.Equal(t, 10.0, Intrinsic(90, put))
	assert.Equal(t, 0.0, Intrinsic(110, put))
}

func TestLegPnL(t *testing.T) {
	long := models.OptionLeg{Type: models.OptionTypePut, Side: models.OrderSideBuy, Strike: 50, Premium: 2, Quantity: 3}
	assert.InDelta(t, (5-2)*300.0, LegPnL(45, long), 1e-9)
	assert.InDelta(t, -600.0, LegPnL(60, long), 1e-9)

	short := long
	short.Side = models.OrderSideSell
	assert.InDelta(t, -900.0, LegPnL(45, short), 1e-9)
}

func TestEvaluateCallSpread(t *testing.T) {
	legs := aaplCallSpread()

	assert.InDelta(t, 130, Evaluate(175, legs), 1e-6)
	assert.InDelta(t, 130, Evaluate(180, legs), 1e-6)
	assert.InDelta(t, -370, Evaluate(185, legs), 1e-6)
	assert.InDelta(t, -370, Evaluate(185.50, legs), 1e-6)
	assert.InDelta(t, -370, Evaluate(250, legs), 1e-6)
	assert.InDelta(t, 130, NetPremium(legs), 1e-6)
}

func TestExtremesCallSpread(t *testing.T) {
	legs := aaplCallSpread()

	maxProfit, maxLoss, err := Extremes(legs, 185.50)
	require.NoError(t, err)
	assert.InDelta(t, 130, maxProfit, 1e-6)
	assert.InDelta(t, -370, maxLoss, 1e-6)

	current := Evaluate(185.50, legs)
	assert.True(t, maxLoss <= current && current <= maxProfit)
	assert.True(t, current > -500 && current < 130)
}

func TestExtremesLongCallsOnly(t *testing.T) {
	legs := []models.OptionLeg{
		{Type: models.OptionTypeCall, Side: models.OrderSideBuy, Strike: 10, Premium: 1, Quantity: 1},
	}
	maxProfit, maxLoss, err := Extremes(legs, 100)
	require.NoError(t, err)
	assert.InDelta(t, (149-10-1)*100.0, maxProfit, 1e-6)
	assert.InDelta(t, (50-10-1)*100.0, maxLoss, 1e-6)
}

func TestExtremesRejectsNonPositivePrice(t *testing.T) {
	for _, price := range []float64{0, -10} {
		_, _, err := Extremes(aaplCallSpread(), price)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidPosition))
	}
}

func TestScanRange(t *testing.T) {
	r := NewScanRange(185.50, DefaultScanLow, DefaultScanHigh)
	assert.Equal(t, ScanRange{Min: 92, Max: 279}, r)
	assert.Equal(t, 278.0, r.Last())
	assert.False(t, r.Empty())

	r = NewScanRange(100, DefaultScanLow, DefaultScanHigh)
	assert.Equal(t, ScanRange{Min: 50, Max: 150}, r)

	assert.True(t, ScanRange{Min: 5, Max: 5}.Empty())
	assert.Nil(t, ScanRange{Min: 5, Max: 4}.Candidates(aaplCallSpread()))
}

func TestScanRangeCandidates(t *testing.T) {
	r := NewScanRange(185.50, DefaultScanLow, DefaultScanHigh)
	assert.Equal(t, []float64{92, 180, 185, 278}, r.Candidates(aaplCallSpread()))

	legs := []models.OptionLeg{
		{Type: models.OptionTypePut, Side: models.OrderSideSell, Strike: 97.5, Premium: 1, Quantity: 1},
		{Type: models.OptionTypeCall, Side: models.OrderSideBuy, Strike: 400, Premium: 1, Quantity: 1},
		{Type: models.OptionTypeCall, Side: models.OrderSideBuy, Strike: 50, Premium: 1, Quantity: 1},
	}
	// Strikes on or beyond the ends add nothing; a fractional strike adds both neighbours.
	assert.Equal(t, []float64{50, 97, 98, 149}, NewScanRange(100, DefaultScanLow, DefaultScanHigh).Candidates(legs))
}

func TestExtremesMatchFullGrid(t *testing.T) {
	legs := []models.OptionLeg{
		{Type: models.OptionTypePut, Side: models.OrderSideBuy, Strike: 92.5, Premium: 1.1, Quantity: 1},
		{Type: models.OptionTypePut, Side: models.OrderSideSell, Strike: 97.5, Premium: 2.4, Quantity: 1},
		{Type: models.OptionTypeCall, Side: models.OrderSideSell, Strike: 102.5, Premium: 2.2, Quantity: 1},
		{Type: models.OptionTypeCall, Side: models.OrderSideBuy, Strike: 107.5, Premium: 0.9, Quantity: 1},
	}

	for _, price := range []float64{3.7, 99.3, 100, 141.2} {
		r := NewScanRange(price, DefaultScanLow, DefaultScanHigh)
		best, worst := math.Inf(-1), math.Inf(1)
		for p := r.Min; p < r.Max; p++ {
			v := Evaluate(p, legs)
			best, worst = math.Max(best, v), math.Min(worst, v)
		}

		maxProfit, maxLoss, err := Extremes(legs, price)
		require.NoError(t, err)
		assert.InDelta(t, best, maxProfit, 1e-9, "price %v", price)
		assert.InDelta(t, worst, maxLoss, 1e-9, "price %v", price)
	}
}

func TestExtremesLargePrices(t *testing.T) {
	legs := []models.OptionLeg{
		{Type: models.OptionTypeCall, Side: models.OrderSideBuy, Strike: 100, Premium: 1, Quantity: 1},
	}

	maxProfit, maxLoss, err := Extremes(legs, 1e12)
	require.NoError(t, err)
	assert.InDelta(t, (1.5e12-1-100-1)*100, maxProfit, 1e-3)
	assert.InDelta(t, (5e11-100-1)*100, maxLoss, 1e-3)

	for _, price := range []float64{1e19, 1e300} {
		maxProfit, maxLoss, err := Extremes(legs, price)
		require.NoError(t, err, "price %v", price)
		assert.False(t, math.IsInf(maxProfit, 0) || math.IsNaN(maxProfit))
		assert.Greater(t, maxProfit, maxLoss)
		assert.Greater(t, maxLoss, 0.0)
	}
}

func TestCurve(t *testing.T) {
	points := Curve(aaplCallSpread(), []float64{170, 190})
	require.Len(t, points, 2)
	assert.Equal(t, 170.0, points[0].Price)
	assert.InDelta(t, 130, points[0].PnL, 1e-6)
	assert.InDelta(t, -370, points[1].PnL, 1e-6)
}
