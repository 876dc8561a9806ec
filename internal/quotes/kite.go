package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
)

// SourceKite names quotes from Zerodha Kite Connect.
const SourceKite = "kite"

// KiteConfig holds configuration for the Kite source.
type KiteConfig struct {
	APIKey      string
	AccessToken string
	Exchange    string // instrument prefix, e.g. NSE
	Timeout     time.Duration
}

// KiteSource fetches quotes from Kite Connect.
type KiteSource struct {
	client        *kiteconnect.Client
	exchange      string
	authenticated bool
	logger        zerolog.Logger
}

// NewKiteSource creates a new Kite source.
func NewKiteSource(cfg KiteConfig, logger zerolog.Logger) *KiteSource {
	client := kiteconnect.New(cfg.APIKey)
	if cfg.AccessToken != "" {
		client.SetAccessToken(cfg.AccessToken)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "NSE"
	}

	return &KiteSource{
		client:        client,
		exchange:      strings.ToUpper(exchange),
		authenticated: cfg.APIKey != "" && cfg.AccessToken != "",
		logger:        logger,
	}
}

// WithBaseURI points the client at a different API root.
func (k *KiteSource) WithBaseURI(uri string) *KiteSource {
	k.client.SetBaseURI(uri)
	return k
}

// Name implements Source.
func (k *KiteSource) Name() string { return SourceKite }

// Instrument returns the exchange-qualified instrument for symbol.
func (k *KiteSource) Instrument(symbol string) string {
	if strings.Contains(symbol, ":") {
		return symbol
	}
	return fmt.Sprintf("%s:%s", k.exchange, symbol)
}

// Quote implements Source.
func (k *KiteSource) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	if !k.authenticated {
		return nil, apperrors.NewQuoteError(SourceKite, symbol, apperrors.ErrNotAuthenticated)
	}

	instrument := k.Instrument(symbol)
	start := time.Now()
	quotes, err := k.client.GetQuote(instrument)
	logging.LogAPICall(k.logger, "GET", "/quote", time.Since(start), err)
	if err != nil {
		return nil, apperrors.NewQuoteError(SourceKite, symbol, fmt.Errorf("%w: %v", apperrors.ErrConnectionFailed, err))
	}

	q, ok := quotes[instrument]
	if !ok {
		return nil, apperrors.NewQuoteError(SourceKite, symbol, apperrors.ErrSymbolNotFound)
	}

	var pct float64
	if q.OHLC.Close != 0 {
		pct = (q.NetChange / q.OHLC.Close) * 100
	}

	ts := q.LastTradeTime.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         q.LastPrice,
		Change:        q.NetChange,
		ChangePercent: pct,
		Volume:        int64(q.Volume),
		PreviousClose: q.OHLC.Close,
		Source:        SourceKite,
		Timestamp:     ts,
	}, nil
}
