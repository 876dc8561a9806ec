// Package quotes resolves current prices for underlyings from a chain of
// providers, ending in a fixed fallback price.
package quotes

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
	"options-analyzer/internal/resilience"
	"options-analyzer/pkg/utils"
)

// Source provides quotes for underlying symbols.
type Source interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// DefaultFallbackPrice is used when every provider fails.
const DefaultFallbackPrice = 150.0

// SourceFallback names quotes produced by the fallback price.
const SourceFallback = "fallback"

// FallbackSource tries each source in order and returns the fallback price
// when none of them produces a usable quote.
type FallbackSource struct {
	sources       []Source
	fallbackPrice float64
	retry         utils.RetryConfig
	breakers      map[string]*resilience.CircuitBreaker
	logger        zerolog.Logger
	now           func() time.Time
}

// NewFallbackSource creates a chain over sources.
func NewFallbackSource(sources []Source, fallbackPrice float64, retry utils.RetryConfig, logger zerolog.Logger) *FallbackSource {
	if fallbackPrice <= 0 {
		fallbackPrice = DefaultFallbackPrice
	}
	if retry.Retryable == nil {
		retry.Retryable = IsRetryable
	}
	return &FallbackSource{
		sources:       sources,
		fallbackPrice: fallbackPrice,
		retry:         retry,
		logger:        logger,
		now:           time.Now,
	}
}

// WithBreakers guards every source with its own circuit breaker, so a
// provider that keeps failing is skipped for the rest of a batch lookup.
func (f *FallbackSource) WithBreakers(cfg resilience.BreakerConfig) *FallbackSource {
	f.breakers = make(map[string]*resilience.CircuitBreaker, len(f.sources))
	for _, s := range f.sources {
		f.breakers[s.Name()] = resilience.NewCircuitBreaker(s.Name(), cfg)
	}
	return f
}

// BreakerStats reports the breaker state of each guarded source.
func (f *FallbackSource) BreakerStats() []resilience.BreakerStats {
	stats := make([]resilience.BreakerStats, 0, len(f.breakers))
	for _, s := range f.sources {
		if cb, ok := f.breakers[s.Name()]; ok {
			stats = append(stats, cb.Stats())
		}
	}
	return stats
}

// Name implements Source.
func (f *FallbackSource) Name() string {
	names := make([]string, 0, len(f.sources)+1)
	for _, s := range f.sources {
		names = append(names, s.Name())
	}
	return strings.Join(append(names, SourceFallback), ">")
}

// Quote implements Source. It never fails for a non-empty symbol.
func (f *FallbackSource) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, apperrors.NewValidationError("symbol", symbol, "symbol is required")
	}

	for _, src := range f.sources {
		q, err := f.fetch(ctx, src, symbol)
		if err == nil {
			err = validateQuote(q)
		}
		if err != nil {
			f.logger.Warn().
				Err(err).
				Str("source", src.Name()).
				Str("symbol", symbol).
				Msg("Quote source failed, trying next")
			continue
		}
		logging.LogQuote(f.logger, q)
		return q, nil
	}

	q := &models.Quote{
		Symbol:    symbol,
		Price:     f.fallbackPrice,
		Source:    SourceFallback,
		Timestamp: f.now(),
	}
	logging.LogQuote(f.logger, q)
	return q, nil
}

func (f *FallbackSource) fetch(ctx context.Context, src Source, symbol string) (*models.Quote, error) {
	call := func() (*models.Quote, error) {
		return utils.RetryWithResult(ctx, f.retry, func() (*models.Quote, error) {
			return src.Quote(ctx, symbol)
		})
	}
	cb, ok := f.breakers[src.Name()]
	if !ok {
		return call()
	}
	return resilience.ExecuteWithResult(cb, countsAgainstProvider, call)
}

// countsAgainstProvider reports whether err says the provider itself is unhealthy.
func countsAgainstProvider(err error) bool {
	return !apperrors.Is(err, apperrors.ErrSymbolNotFound) &&
		!apperrors.Is(err, context.Canceled)
}

// Price returns only the resolved price for symbol.
func (f *FallbackSource) Price(ctx context.Context, symbol string) (float64, error) {
	q, err := f.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// IsRetryable reports whether a provider error may succeed on retry.
// Unknown symbols, missing credentials and rate limits do not.
func IsRetryable(err error) bool {
	switch {
	case apperrors.Is(err, apperrors.ErrSymbolNotFound),
		apperrors.Is(err, apperrors.ErrNotAuthenticated),
		apperrors.Is(err, apperrors.ErrRateLimited),
		apperrors.Is(err, context.Canceled),
		apperrors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func validateQuote(q *models.Quote) error {
	if q == nil {
		return apperrors.ErrDataNotFound
	}
	if !(q.Price > 0) || math.IsInf(q.Price, 0) {
		return apperrors.NewDataError("quote", q.Symbol, "provider returned an unusable price", apperrors.ErrDataNotFound)
	}
	return nil
}
