package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-analyzer/internal/models"
)

func call(side models.OrderSide, strike, premium float64) models.OptionLeg {
	return models.OptionLeg{Type: models.OptionTypeCall, Side: side, Strike: strike, Premium: premium, Quantity: 1}
}

func put(side models.OrderSide, strike, premium float64) models.OptionLeg {
	return models.OptionLeg{Type: models.OptionTypePut, Side: side, Strike: strike, Premium: premium, Quantity: 1}
}

func ironCondor() models.Position {
	return models.Position{
		put(models.OrderSideBuy, 85, 0.5),
		put(models.OrderSideSell, 90, 1.2),
		call(models.OrderSideSell, 110, 1.1),
		call(models.OrderSideBuy, 115, 0.4),
	}
}

func kinds(recs []models.Recommendation) []models.RecommendationKind {
	out := make([]models.RecommendationKind, len(recs))
	for i, r := range recs {
		out[i] = r.Kind
	}
	return out
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ShapeCallSpread, Classify(models.Position{call(models.OrderSideSell, 100, 1), call(models.OrderSideBuy, 105, 1)}))
	assert.Equal(t, ShapePutSpread, Classify(models.Position{put(models.OrderSideSell, 100, 1), put(models.OrderSideBuy, 95, 1)}))
	assert.Equal(t, ShapeIronCondor, Classify(ironCondor()))
	assert.Equal(t, ShapeOther, Classify(models.Position{call(models.OrderSideBuy, 100, 1)}))
	assert.Equal(t, ShapeOther, Classify(nil))
}

func TestRecommendCloseOnDeepLoss(t *testing.T) {
	recs := Recommend(Inputs{CurrentPnL: -300, MaxProfit: 130, MaxLoss: -370, CurrentPrice: 150})
	require.Equal(t, []models.RecommendationKind{models.RecommendClose, models.RecommendInfo}, kinds(recs))
	assert.Equal(t, models.UrgencyHigh, recs[0].Urgency)
	assert.Contains(t, recs[0].Reason, "81.1% of max loss")
}

func TestRecommendRollOnModerateLoss(t *testing.T) {
	recs := Recommend(Inputs{CurrentPnL: -100, MaxProfit: 130, MaxLoss: -370, CurrentPrice: 150})
	require.Equal(t, []models.RecommendationKind{models.RecommendRoll, models.RecommendInfo}, kinds(recs))
	assert.Equal(t, models.UrgencyMedium, recs[0].Urgency)
	assert.Contains(t, recs[0].Reason, "27.0%")
}

func TestRecommendSmallLossOnlyInfo(t *testing.T) {
	recs := Recommend(Inputs{CurrentPnL: -50, MaxProfit: 130, MaxLoss: -370, CurrentPrice: 150})
	assert.Equal(t, []models.RecommendationKind{models.RecommendInfo}, kinds(recs))
}

func TestRecommendCallSpreadRollUp(t *testing.T) {
	legs := models.Position{call(models.OrderSideSell, 180, 7.5), call(models.OrderSideBuy, 185, 6.2)}
	recs := Recommend(Inputs{CurrentPnL: -370, MaxProfit: 130, MaxLoss: -370, CurrentPrice: 185.50, Legs: legs})

	require.Equal(t, []models.RecommendationKind{models.RecommendClose, models.RecommendAdjust, models.RecommendInfo}, kinds(recs))
	assert.Equal(t, "Roll to higher strikes: 186/191", recs[1].Action)
	assert.Equal(t, models.UrgencyMedium, recs[1].Urgency)
}

func TestRecommendCallSpreadRollUpLargePrice(t *testing.T) {
	legs := models.Position{call(models.OrderSideSell, 180, 7.5), call(models.OrderSideBuy, 185, 6.2)}
	recs := Recommend(Inputs{CurrentPnL: -370, MaxProfit: 130, MaxLoss: -370, CurrentPrice: 1e19, Legs: legs})

	require.Len(t, recs, 3)
	assert.Equal(t, "Roll to higher strikes: 10000000000000000000/10000000000000000000", recs[1].Action)
}

func TestRecommendCallSpreadInsideStrikesNoAdjust(t *testing.T) {
	legs := models.Position{call(models.OrderSideSell, 180, 7.5), call(models.OrderSideBuy, 185, 6.2)}
	recs := Recommend(Inputs{CurrentPnL: -200, MaxProfit: 130, MaxLoss: -370, CurrentPrice: 183, Legs: legs})
	assert.Equal(t, []models.RecommendationKind{models.RecommendClose, models.RecommendInfo}, kinds(recs))
}

func TestRecommendPutSpreadRollDown(t *testing.T) {
	legs := models.Position{put(models.OrderSideSell, 100, 3), put(models.OrderSideBuy, 95, 1)}
	recs := Recommend(Inputs{CurrentPnL: -300, MaxProfit: 200, MaxLoss: -300, CurrentPrice: 92.4, Legs: legs})

	require.Equal(t, []models.RecommendationKind{models.RecommendClose, models.RecommendAdjust, models.RecommendInfo}, kinds(recs))
	assert.Equal(t, "Roll to lower strikes: 87/92", recs[1].Action)
}

func TestRecommendIronCondorAlwaysAdjustsOnLoss(t *testing.T) {
	legs := ironCondor()
	for _, pnl := range []float64{-10, -150, -400} {
		recs := Recommend(Inputs{CurrentPnL: pnl, MaxProfit: 140, MaxLoss: -360, CurrentPrice: 112, Legs: legs})

		adjusts := 0
		for _, r := range recs {
			if r.Kind == models.RecommendAdjust {
				adjusts++
				assert.Contains(t, r.Reason, "tested side")
			}
		}
		assert.Equal(t, 1, adjusts, "pnl %v", pnl)
		assert.Equal(t, models.RecommendInfo, recs[len(recs)-1].Kind)
	}

	recs := Recommend(Inputs{CurrentPnL: -400, MaxProfit: 140, MaxLoss: -360, CurrentPrice: 112, Legs: legs})
	assert.Equal(t, []models.RecommendationKind{models.RecommendClose, models.RecommendAdjust, models.RecommendInfo}, kinds(recs))
}

func TestRecommendNoShapeRuleWhenProfitable(t *testing.T) {
	recs := Recommend(Inputs{CurrentPnL: 20, MaxProfit: 140, MaxLoss: -360, CurrentPrice: 100, Legs: ironCondor()})
	assert.Equal(t, []models.RecommendationKind{models.RecommendInfo}, kinds(recs))
}

func TestRecommendProfitRules(t *testing.T) {
	recs := Recommend(Inputs{CurrentPnL: 120, MaxProfit: 130, MaxLoss: -370})
	require.Equal(t, []models.RecommendationKind{models.RecommendTakeProfit, models.RecommendInfo}, kinds(recs))
	assert.Equal(t, "Position is at 92.3% of max profit.", recs[0].Reason)

	recs = Recommend(Inputs{CurrentPnL: 80, MaxProfit: 130, MaxLoss: -370})
	require.Equal(t, []models.RecommendationKind{models.RecommendPartialClose, models.RecommendInfo}, kinds(recs))
	assert.Equal(t, models.UrgencyLow, recs[0].Urgency)

	recs = Recommend(Inputs{CurrentPnL: 50, MaxProfit: 130, MaxLoss: -370})
	assert.Equal(t, []models.RecommendationKind{models.RecommendInfo}, kinds(recs))
}

func TestRecommendGuardsZeroDivisors(t *testing.T) {
	// maxLoss of 0 divides by 1: any loss above 0.5 closes.
	recs := Recommend(Inputs{CurrentPnL: -1, MaxProfit: 0, MaxLoss: 0})
	assert.Equal(t, []models.RecommendationKind{models.RecommendClose, models.RecommendInfo}, kinds(recs))

	// maxProfit not positive yields 0% profit.
	recs = Recommend(Inputs{CurrentPnL: 10, MaxProfit: 0, MaxLoss: 0})
	assert.Equal(t, []models.RecommendationKind{models.RecommendInfo}, kinds(recs))
	recs = Recommend(Inputs{CurrentPnL: 10, MaxProfit: -5, MaxLoss: -20})
	assert.Equal(t, []models.RecommendationKind{models.RecommendInfo}, kinds(recs))

	assert.Equal(t, 700.0, LossPercent(-7, 0))
	assert.Equal(t, 0.0, ProfitPercent(5, 0))
}

func TestRecommendTimeDecayAlwaysLast(t *testing.T) {
	for _, pnl := range []float64{-500, -1, 0, 1, 500} {
		recs := Recommend(Inputs{CurrentPnL: pnl, MaxProfit: 600, MaxLoss: -600, CurrentPrice: 100, Legs: ironCondor()})
		require.NotEmpty(t, recs)
		last := recs[len(recs)-1]
		assert.Equal(t, models.RecommendInfo, last.Kind)
		assert.Equal(t, models.UrgencyLow, last.Urgency)
	}
}

func TestRecommendDeterministic(t *testing.T) {
	in := Inputs{CurrentPnL: -250, MaxProfit: 140, MaxLoss: -360, CurrentPrice: 112, Legs: ironCondor()}
	first := Recommend(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Recommend(in))
	}
}

func TestCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.RollLossPercent = 5
	th.StrikeWidth = 10
	a := New(th, DefaultRollConfig())

	recs := a.Recommend(Inputs{CurrentPnL: -30, MaxLoss: -370, CurrentPrice: 150})
	assert.Equal(t, models.RecommendRoll, recs[0].Kind)

	legs := models.Position{call(models.OrderSideSell, 100, 2), call(models.OrderSideBuy, 105, 1)}
	recs = a.Recommend(Inputs{CurrentPnL: -400, MaxLoss: -400, CurrentPrice: 110, Legs: legs})
	assert.Equal(t, "Roll to higher strikes: 110/120", recs[1].Action)
}
