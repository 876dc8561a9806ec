// Package advisor turns a position's P&L figures into ordered adjustment
// recommendations and proposes strike rolls for saved strategies.
package advisor

import (
	"fmt"
	"math"

	"options-analyzer/internal/models"
)

// Thresholds holds the percentages at which each rule fires.
type Thresholds struct {
	CloseLossPercent    float64 // loss as % of max loss above which to close
	RollLossPercent     float64 // loss as % of max loss above which to roll
	TakeProfitPercent   float64 // profit as % of max profit above which to take profit
	PartialClosePercent float64 // profit as % of max profit above which to close half
	StrikeWidth         int     // width of suggested spread strikes
}

// DefaultThresholds returns the standard rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CloseLossPercent:    50,
		RollLossPercent:     25,
		TakeProfitPercent:   75,
		PartialClosePercent: 50,
		StrikeWidth:         5,
	}
}

// Inputs are the figures the rule engine classifies.
type Inputs struct {
	CurrentPnL   float64
	MaxProfit    float64
	MaxLoss      float64
	CurrentPrice float64
	Legs         models.Position
}

// Advisor evaluates the recommendation rules. It holds no state between calls.
type Advisor struct {
	thresholds Thresholds
	roll       RollConfig
}

// New creates an advisor.
func New(th Thresholds, roll RollConfig) *Advisor {
	return &Advisor{thresholds: th, roll: roll}
}

// NewDefault creates an advisor with the default thresholds.
func NewDefault() *Advisor {
	return New(DefaultThresholds(), DefaultRollConfig())
}

// Thresholds returns the configured thresholds.
func (a *Advisor) Thresholds() Thresholds {
	return a.thresholds
}

// Recommend applies the rules in order: loss level, shape adjustment, profit
// level, then the time-decay reminder which is always last.
func (a *Advisor) Recommend(in Inputs) []models.Recommendation {
	var recs []models.Recommendation

	if in.CurrentPnL < 0 {
		if r, ok := a.lossRule(in); ok {
			recs = append(recs, r)
		}
		if rule, ok := shapeRules[Classify(in.Legs)]; ok {
			if r, ok := rule(in.CurrentPrice, in.Legs, a.thresholds); ok {
				recs = append(recs, r)
			}
		}
	}

	if in.CurrentPnL > 0 {
		if r, ok := a.profitRule(in); ok {
			recs = append(recs, r)
		}
	}

	return append(recs, timeDecayReminder())
}

// LossPercent is |pnl| as a percentage of |maxLoss|, dividing by 1 when maxLoss is 0.
func LossPercent(pnl, maxLoss float64) float64 {
	divisor := math.Abs(maxLoss)
	if maxLoss == 0 {
		divisor = 1
	}
	return math.Abs(pnl) / divisor * 100
}

// ProfitPercent is pnl as a percentage of maxProfit, or 0 when maxProfit is not positive.
func ProfitPercent(pnl, maxProfit float64) float64 {
	if maxProfit <= 0 {
		return 0
	}
	return pnl / maxProfit * 100
}

func (a *Advisor) lossRule(in Inputs) (models.Recommendation, bool) {
	pct := LossPercent(in.CurrentPnL, in.MaxLoss)
	switch {
	case pct > a.thresholds.CloseLossPercent:
		return models.Recommendation{
			Kind:    models.RecommendClose,
			Urgency: models.UrgencyHigh,
			Reason:  fmt.Sprintf("Position is at %.1f%% of max loss. Consider closing to limit further losses.", pct),
			Action:  "Close entire position",
		}, true
	case pct > a.thresholds.RollLossPercent:
		return models.Recommendation{
			Kind:    models.RecommendRoll,
			Urgency: models.UrgencyMedium,
			Reason:  fmt.Sprintf("Position is at %.1f%% of max loss. Rolling can reduce risk.", pct),
			Action:  "Roll to further expiration or different strikes",
		}, true
	}
	return models.Recommendation{}, false
}

func (a *Advisor) profitRule(in Inputs) (models.Recommendation, bool) {
	pct := ProfitPercent(in.CurrentPnL, in.MaxProfit)
	switch {
	case pct > a.thresholds.TakeProfitPercent:
		return models.Recommendation{
			Kind:    models.RecommendTakeProfit,
			Urgency: models.UrgencyLow,
			Reason:  fmt.Sprintf("Position is at %.1f%% of max profit.", pct),
			Action:  "Consider closing to lock in profits",
		}, true
	case pct > a.thresholds.PartialClosePercent:
		return models.Recommendation{
			Kind:    models.RecommendPartialClose,
			Urgency: models.UrgencyLow,
			Reason:  fmt.Sprintf("Position is at %.1f%% of max profit.", pct),
			Action:  "Consider closing half the position",
		}, true
	}
	return models.Recommendation{}, false
}

func timeDecayReminder() models.Recommendation {
	return models.Recommendation{
		Kind:    models.RecommendInfo,
		Urgency: models.UrgencyLow,
		Reason:  "Time decay accelerates in final 2 weeks before expiration.",
		Action:  "Monitor theta and consider rolling if holding through expiration",
	}
}

// Recommend evaluates the rules with the default thresholds.
func Recommend(in Inputs) []models.Recommendation {
	return NewDefault().Recommend(in)
}
