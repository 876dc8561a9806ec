package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "options-analyzer/internal/errors"
)

// DefaultVolatility is the implied volatility assumed for a leg that does not carry one.
const DefaultVolatility = 0.20

// OptionLeg represents a leg of an option strategy.
type OptionLeg struct {
	Type       OptionType `json:"type"`
	Side       OrderSide  `json:"action"`
	Strike     float64    `json:"strike"`
	Premium    float64    `json:"premium"`
	Quantity   int        `json:"quantity"`
	Expiration *time.Time `json:"expiration,omitempty"`
	Volatility float64    `json:"volatility"`
}

// IsCall reports whether the leg is a call.
func (l OptionLeg) IsCall() bool { return l.Type == OptionTypeCall }

// IsPut reports whether the leg is a put.
func (l OptionLeg) IsPut() bool { return l.Type == OptionTypePut }

// IsLong reports whether the leg was bought.
func (l OptionLeg) IsLong() bool { return l.Side == OrderSideBuy }

// Label renders the leg as e.g. "SELL CALL $180".
func (l OptionLeg) Label() string {
	return LegLabel(l.Side, l.Type, l.Strike)
}

// LegLabel renders side, type and strike the way roll suggestions display them.
func LegLabel(side OrderSide, typ OptionType, strike float64) string {
	return fmt.Sprintf("%s %s $%s", side, typ, strconv.FormatFloat(strike, 'f', -1, 64))
}

// Validate checks the leg invariants.
func (l OptionLeg) Validate() error {
	if l.Type != OptionTypeCall && l.Type != OptionTypePut {
		return apperrors.InvalidPosition("type", l.Type, "must be CALL or PUT")
	}
	if l.Side != OrderSideBuy && l.Side != OrderSideSell {
		return apperrors.InvalidPosition("action", l.Side, "must be BUY or SELL")
	}
	if !(l.Strike > 0) || math.IsInf(l.Strike, 0) {
		return apperrors.InvalidPosition("strike", l.Strike, "must be positive")
	}
	if l.Premium < 0 || math.IsNaN(l.Premium) || math.IsInf(l.Premium, 0) {
		return apperrors.InvalidPosition("premium", l.Premium, "must be non-negative")
	}
	if l.Quantity < 1 {
		return apperrors.InvalidPosition("quantity", l.Quantity, "must be at least 1")
	}
	return nil
}

// Position is an ordered collection of option legs.
type Position []OptionLeg

// Validate checks every leg.
func (p Position) Validate() error {
	for i, leg := range p {
		if err := leg.Validate(); err != nil {
			return apperrors.Wrapf(err, "leg %d", i+1)
		}
	}
	return nil
}

// Calls returns the call legs.
func (p Position) Calls() []OptionLeg {
	return p.filter(OptionTypeCall)
}

// Puts returns the put legs.
func (p Position) Puts() []OptionLeg {
	return p.filter(OptionTypePut)
}

func (p Position) filter(t OptionType) []OptionLeg {
	var out []OptionLeg
	for _, leg := range p {
		if leg.Type == t {
			out = append(out, leg)
		}
	}
	return out
}

// ParseOptionType accepts call/put in any case, plus CE/PE.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C", "CE":
		return OptionTypeCall, nil
	case "PUT", "P", "PE":
		return OptionTypePut, nil
	}
	return "", apperrors.InvalidPosition("type", s, "must be call or put")
}

// ParseOrderSide accepts buy/sell in any case.
func ParseOrderSide(s string) (OrderSide, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B", "LONG":
		return OrderSideBuy, nil
	case "SELL", "S", "SHORT":
		return OrderSideSell, nil
	}
	return "", apperrors.InvalidPosition("action", s, "must be buy or sell")
}

// ParseLeg parses "side:type:strike:premium:quantity[:expiration[:volatility]]",
// e.g. "sell:call:180:3.20:1:2025-01-17".
func ParseLeg(spec string) (OptionLeg, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 5 || len(parts) > 7 {
		return OptionLeg{}, apperrors.NewValidationError("leg", spec, "expected side:type:strike:premium:quantity[:expiration[:volatility]]")
	}

	side, err := ParseOrderSide(parts[0])
	if err != nil {
		return OptionLeg{}, err
	}
	typ, err := ParseOptionType(parts[1])
	if err != nil {
		return OptionLeg{}, err
	}
	strike, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return OptionLeg{}, apperrors.InvalidPosition("strike", parts[2], "not a number")
	}
	premium, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return OptionLeg{}, apperrors.InvalidPosition("premium", parts[3], "not a number")
	}
	qty, err := strconv.Atoi(parts[4])
	if err != nil {
		return OptionLeg{}, apperrors.InvalidPosition("quantity", parts[4], "not an integer")
	}

	leg := OptionLeg{
		Type:       typ,
		Side:       side,
		Strike:     strike,
		Premium:    premium,
		Quantity:   qty,
		Volatility: DefaultVolatility,
	}

	if len(parts) >= 6 && parts[5] != "" {
		exp, err := time.Parse("2006-01-02", parts[5])
		if err != nil {
			return OptionLeg{}, apperrors.NewValidationError("expiration", parts[5], "use YYYY-MM-DD")
		}
		leg.Expiration = &exp
	}
	if len(parts) == 7 {
		vol, err := strconv.ParseFloat(parts[6], 64)
		if err != nil {
			return OptionLeg{}, apperrors.NewValidationError("volatility", parts[6], "not a number")
		}
		leg.Volatility = vol
	}

	return leg, leg.Validate()
}

// ScenarioKind is the kind of hypothetical shift applied to a position.
type ScenarioKind string

const (
	ScenarioPriceUp            ScenarioKind = "price_up"
	ScenarioPriceDown          ScenarioKind = "price_down"
	ScenarioVolatilityIncrease ScenarioKind = "volatility_increase"
	ScenarioTimeDecay          ScenarioKind = "time_decay"
)

// ScenarioKinds lists the recognised scenario kinds.
var ScenarioKinds = []ScenarioKind{
	ScenarioPriceUp,
	ScenarioPriceDown,
	ScenarioVolatilityIncrease,
	ScenarioTimeDecay,
}

// ParseScenarioKind validates a scenario kind.
func ParseScenarioKind(s string) (ScenarioKind, error) {
	k := ScenarioKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ScenarioKinds {
		if k == known {
			return k, nil
		}
	}
	return "", apperrors.InvalidScenario(s)
}

// ScenarioRequest is the input of a what-if analysis.
type ScenarioRequest struct {
	Ticker       string       `json:"ticker"`
	CurrentPrice float64      `json:"current_price"`
	Legs         Position     `json:"options"`
	Kind         ScenarioKind `json:"scenario_type"`
	Value        *float64     `json:"scenario_value,omitempty"`
}

// ScenarioResult is the what-if report.
type ScenarioResult struct {
	CurrentPrice    float64          `json:"current_price"`
	ScenarioPrice   float64          `json:"scenario_price"`
	CurrentPnL      float64          `json:"current_pnl"`
	ScenarioPnL     float64          `json:"scenario_pnl"`
	PnLChange       float64          `json:"pnl_change"`
	MaxProfit       float64          `json:"max_profit"`
	MaxLoss         float64          `json:"max_loss"`
	Recommendations []Recommendation `json:"recommendations"`
}

// RecommendationKind classifies an adjustment suggestion.
type RecommendationKind string

const (
	RecommendClose        RecommendationKind = "close"
	RecommendRoll         RecommendationKind = "roll"
	RecommendAdjust       RecommendationKind = "adjust"
	RecommendTakeProfit   RecommendationKind = "take_profit"
	RecommendPartialClose RecommendationKind = "partial_close"
	RecommendInfo         RecommendationKind = "info"
)

// Urgency of a recommendation.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Recommendation is one adjustment suggestion.
type Recommendation struct {
	Kind    RecommendationKind `json:"type"`
	Urgency Urgency            `json:"urgency"`
	Reason  string             `json:"reason"`
	Action  string             `json:"action"`
}

// RollSuggestion proposes moving one leg to a new strike.
type RollSuggestion struct {
	Leg                  OptionLeg `json:"-"`
	NewStrike            float64   `json:"new_strike"`
	Original             string    `json:"original"`
	Suggested            string    `json:"suggested"`
	Reason               string    `json:"reason"`
	EstimatedCreditDebit float64   `json:"estimated_credit_debit"`
}

// RollReport is the roll analysis of a saved strategy.
type RollReport struct {
	StrategyID      string           `json:"strategy_id"`
	Ticker          string           `json:"ticker"`
	CurrentPrice    float64          `json:"current_price"`
	Suggestions     []RollSuggestion `json:"roll_suggestions"`
	NextExpirations []string         `json:"next_expirations"`
}
