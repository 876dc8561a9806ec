package advisor

import (
	"fmt"
	"math"

	"options-analyzer/internal/models"
)

// Shape is the structural classification of a position by its leg counts.
type Shape string

const (
	ShapeCallSpread Shape = "call_spread"
	ShapePutSpread  Shape = "put_spread"
	ShapeIronCondor Shape = "iron_condor"
	ShapeOther      Shape = "other"
)

type legCount struct {
	calls int
	puts  int
}

// shapesByCount maps exact call/put counts to a shape. Butterflies and
// calendars would need strike/expiry information and are not classified.
var shapesByCount = map[legCount]Shape{
	{calls: 2, puts: 0}: ShapeCallSpread,
	{calls: 0, puts: 2}: ShapePutSpread,
	{calls: 2, puts: 2}: ShapeIronCondor,
}

// Classify returns the shape of legs.
func Classify(legs models.Position) Shape {
	key := legCount{calls: len(legs.Calls()), puts: len(legs.Puts())}
	if s, ok := shapesByCount[key]; ok {
		return s
	}
	return ShapeOther
}

// shapeRule inspects a losing position of a known shape and may emit one adjustment.
type shapeRule func(price float64, legs models.Position, th Thresholds) (models.Recommendation, bool)

var shapeRules = map[Shape]shapeRule{
	ShapeCallSpread: rollUpCallSpread,
	ShapePutSpread:  rollDownPutSpread,
	ShapeIronCondor: adjustTestedSide,
}

func rollUpCallSpread(price float64, legs models.Position, th Thresholds) (models.Recommendation, bool) {
	highest := math.Inf(-1)
	for _, leg := range legs.Calls() {
		highest = math.Max(highest, leg.Strike)
	}
	if price <= highest {
		return models.Recommendation{}, false
	}
	base := math.Round(price)
	return models.Recommendation{
		Kind:    models.RecommendAdjust,
		Urgency: models.UrgencyMedium,
		Reason:  "Price moved above spread. Consider rolling up.",
		Action:  fmt.Sprintf("Roll to higher strikes: %.0f/%.0f", base, base+float64(th.StrikeWidth)),
	}, true
}

func rollDownPutSpread(price float64, legs models.Position, th Thresholds) (models.Recommendation, bool) {
	lowest := math.Inf(1)
	for _, leg := range legs.Puts() {
		lowest = math.Min(lowest, leg.Strike)
	}
	if price >= lowest {
		return models.Recommendation{}, false
	}
	base := math.Round(price)
	return models.Recommendation{
		Kind:    models.RecommendAdjust,
		Urgency: models.UrgencyMedium,
		Reason:  "Price moved below spread. Consider rolling down.",
		Action:  fmt.Sprintf("Roll to lower strikes: %.0f/%.0f", base-float64(th.StrikeWidth), base),
	}, true
}

func adjustTestedSide(float64, models.Position, Thresholds) (models.Recommendation, bool) {
	return models.Recommendation{
		Kind:    models.RecommendAdjust,
		Urgency: models.UrgencyMedium,
		Reason:  "Consider adjusting the tested side of the iron condor.",
		Action:  "Roll the threatened side further OTM or close that side",
	}, true
}
