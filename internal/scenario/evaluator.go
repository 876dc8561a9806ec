package scenario

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"options-analyzer/internal/advisor"
	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
	"options-analyzer/internal/payoff"
)

// Config holds evaluator settings.
type Config struct {
	DefaultMove float64 // fractional move for price scenarios without a value
	ScanLow     float64 // lower scan bound as a fraction of the current price
	ScanHigh    float64 // upper scan bound as a fraction of the current price
}

// DefaultConfig returns the standard evaluator settings.
func DefaultConfig() Config {
	return Config{
		DefaultMove: DefaultMove,
		ScanLow:     payoff.DefaultScanLow,
		ScanHigh:    payoff.DefaultScanHigh,
	}
}

// Evaluator produces scenario reports. It is safe for concurrent use:
// every call works only on its own request.
type Evaluator struct {
	cfg     Config
	scanner payoff.Scanner
	advisor *advisor.Advisor
	logger  zerolog.Logger
}

// NewEvaluator creates an evaluator. A nil advisor uses the default thresholds.
func NewEvaluator(cfg Config, adv *advisor.Advisor, logger zerolog.Logger) *Evaluator {
	if cfg.DefaultMove == 0 {
		cfg.DefaultMove = DefaultMove
	}
	if cfg.ScanLow == 0 && cfg.ScanHigh == 0 {
		cfg.ScanLow, cfg.ScanHigh = payoff.DefaultScanLow, payoff.DefaultScanHigh
	}
	if adv == nil {
		adv = advisor.NewDefault()
	}
	return &Evaluator{
		cfg:     cfg,
		scanner: payoff.Scanner{Low: cfg.ScanLow, High: cfg.ScanHigh},
		advisor: adv,
		logger:  logger,
	}
}

// Evaluate runs the what-if analysis for req.
func (e *Evaluator) Evaluate(req models.ScenarioRequest) (*models.ScenarioResult, error) {
	if err := validatePrice(req.CurrentPrice); err != nil {
		return nil, err
	}
	if err := req.Legs.Validate(); err != nil {
		return nil, err
	}

	scenarioPrice, err := priceWithDefault(req.CurrentPrice, req.Kind, req.Value, e.cfg.DefaultMove)
	if err != nil {
		return nil, err
	}

	currentPnL := payoff.Evaluate(req.CurrentPrice, req.Legs)
	scenarioPnL := payoff.Evaluate(scenarioPrice, req.Legs)

	maxProfit, maxLoss, err := e.scanner.Extremes(req.Legs, req.CurrentPrice)
	if err != nil {
		return nil, apperrors.Wrap(err, "scanning extremes")
	}

	recs := e.advisor.Recommend(advisor.Inputs{
		CurrentPnL:   currentPnL,
		MaxProfit:    maxProfit,
		MaxLoss:      maxLoss,
		CurrentPrice: req.CurrentPrice,
		Legs:         req.Legs,
	})

	result := &models.ScenarioResult{
		CurrentPrice:    req.CurrentPrice,
		ScenarioPrice:   scenarioPrice,
		CurrentPnL:      round2(currentPnL),
		ScenarioPnL:     round2(scenarioPnL),
		PnLChange:       round2(scenarioPnL - currentPnL),
		MaxProfit:       round2(maxProfit),
		MaxLoss:         round2(maxLoss),
		Recommendations: recs,
	}

	logging.LogScenario(e.logger, req.Ticker, string(req.Kind), result)
	return result, nil
}

// ScanRange returns the price window Evaluate scans for price.
func (e *Evaluator) ScanRange(price float64) payoff.ScanRange {
	return e.scanner.Range(price)
}

// Extremes returns the rounded max profit and max loss over the scan window.
func (e *Evaluator) Extremes(legs models.Position, price float64) (maxProfit, maxLoss float64, err error) {
	if err := validatePrice(price); err != nil {
		return 0, 0, err
	}
	maxProfit, maxLoss, err = e.scanner.Extremes(legs, price)
	if err != nil {
		return 0, 0, err
	}
	return round2(maxProfit), round2(maxLoss), nil
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Evaluate runs the analysis with default settings and no logging.
func Evaluate(req models.ScenarioRequest) (*models.ScenarioResult, error) {
	return NewEvaluator(DefaultConfig(), nil, zerolog.Nop()).Evaluate(req)
}
