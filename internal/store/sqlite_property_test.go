package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"options-analyzer/internal/models"
)

// Property: saving a strategy and reading it back yields the same legs.
func TestProperty_StrategyLegsRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "roundtrip.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	tickers := []string{"AAPL", "MSFT", "GOOGL", "NVDA", "TSLA", "SPY", "META", "AMZN"}

	properties.Property("Legs round-trip: save then get produces equivalent legs", prop.ForAll(
		func(tickerIdx, count int, baseStrike, premium float64, qty int, call, long bool) bool {
			ctx := context.Background()
			legs := generateTestLegs(count, baseStrike, premium, qty, call, long)

			st := &models.Strategy{
				Name:   "property",
				Ticker: tickers[tickerIdx%len(tickers)],
				Legs:   legs,
			}
			if err := store.SaveStrategy(ctx, st); err != nil {
				t.Logf("Failed to save strategy: %v", err)
				return false
			}

			got, err := store.GetStrategy(ctx, st.ID)
			if err != nil {
				t.Logf("Failed to get strategy: %v", err)
				return false
			}

			if len(got.Legs) != len(legs) {
				t.Logf("Count mismatch: expected %d, got %d", len(legs), len(got.Legs))
				return false
			}
			for i, orig := range legs {
				if !legsEqual(orig, got.Legs[i]) {
					t.Logf("Leg mismatch at index %d: original=%+v, retrieved=%+v", i, orig, got.Legs[i])
					return false
				}
			}
			return true
		},
		gen.IntRange(0, len(tickers)-1),
		gen.IntRange(1, 4),
		gen.Float64Range(10.0, 1000.0),
		gen.Float64Range(0.01, 50.0),
		gen.IntRange(1, 20),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// generateTestLegs creates valid legs with strikes stepping by 5.
func generateTestLegs(count int, baseStrike, premium float64, qty int, call, long bool) []models.OptionLeg {
	legs := make([]models.OptionLeg, count)
	expiry := time.Date(2025, 3, 21, 20, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		typ, side := models.OptionTypePut, models.OrderSideSell
		if call {
			typ = models.OptionTypeCall
		}
		if long != (i%2 == 0) {
			side = models.OrderSideBuy
		}
		leg := models.OptionLeg{
			Type:     typ,
			Side:     side,
			Strike:   roundToDecimal(baseStrike, 2) + float64(i*5),
			Premium:  roundToDecimal(premium, 2),
			Quantity: qty,
		}
		if i%2 == 1 {
			e := expiry
			leg.Expiration = &e
		}
		legs[i] = leg
	}

	return legs
}

// roundToDecimal rounds a float to specified decimal places
func roundToDecimal(val float64, places int) float64 {
	multiplier := math.Pow(10, float64(places))
	return math.Round(val*multiplier) / multiplier
}

func legsEqual(a, b models.OptionLeg) bool {
	if a.Type != b.Type || a.Side != b.Side || a.Quantity != b.Quantity {
		return false
	}
	if a.Strike != b.Strike || a.Premium != b.Premium || a.Volatility != b.Volatility {
		return false
	}
	if (a.Expiration == nil) != (b.Expiration == nil) {
		return false
	}
	return a.Expiration == nil || a.Expiration.Equal(*b.Expiration)
}
