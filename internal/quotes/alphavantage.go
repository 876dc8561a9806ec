package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
	"options-analyzer/internal/resilience"
)

// SourceAlphaVantage names quotes from the Alpha Vantage GLOBAL_QUOTE endpoint.
const SourceAlphaVantage = "alphavantage"

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageSource fetches quotes over HTTP.
type AlphaVantageSource struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *resilience.RateLimiter
	logger  zerolog.Logger
}

// NewAlphaVantageSource creates a new Alpha Vantage source.
func NewAlphaVantageSource(apiKey string, timeout time.Duration, logger zerolog.Logger) *AlphaVantageSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AlphaVantageSource{
		apiKey:  apiKey,
		baseURL: alphaVantageBaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// WithBaseURL points the source at a different endpoint.
func (a *AlphaVantageSource) WithBaseURL(u string) *AlphaVantageSource {
	a.baseURL = u
	return a
}

// WithRateLimit caps requests per minute. Calls over the cap fail with
// ErrRateLimited instead of spending the daily quota.
func (a *AlphaVantageSource) WithRateLimit(perMinute int) *AlphaVantageSource {
	if perMinute > 0 {
		a.limiter = resilience.PerMinute(perMinute)
	}
	return a
}

// Name implements Source.
func (a *AlphaVantageSource) Name() string { return SourceAlphaVantage }

type globalQuoteResponse struct {
	GlobalQuote map[string]string `json:"Global Quote"`
	Note        string            `json:"Note"`
	Information string            `json:"Information"`
	Error       string            `json:"Error Message"`
}

// Quote implements Source.
func (a *AlphaVantageSource) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if a.apiKey == "" {
		return nil, apperrors.NewQuoteError(SourceAlphaVantage, symbol, apperrors.ErrNotAuthenticated)
	}
	if a.limiter != nil && !a.limiter.Allow() {
		return nil, apperrors.NewQuoteError(SourceAlphaVantage, symbol, apperrors.ErrRateLimited)
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apperrors.NewQuoteError(SourceAlphaVantage, symbol, err)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		// Transport errors embed the request URL, api key included.
		err = fmt.Errorf("%w: %s", apperrors.ErrConnectionFailed, logging.Redact(err.Error()))
	}
	logging.LogAPICall(a.logger, http.MethodGet, "GLOBAL_QUOTE", time.Since(start), err)
	if err != nil {
		return nil, apperrors.NewQuoteError(SourceAlphaVantage, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewQuoteError(SourceAlphaVantage, symbol, apperrors.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewQuoteError(SourceAlphaVantage, symbol,
			fmt.Errorf("%w: status %d", apperrors.ErrConnectionFailed, resp.StatusCode))
	}

	var body globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.NewQuoteError(SourceAlphaVantage, symbol, fmt.Errorf("decoding response: %w", err))
	}

	switch {
	case body.Note != "" || body.Information != "":
		return nil, apperrors.NewQuoteError(SourceAlphaVantage, symbol, apperrors.ErrRateLimited)
	case body.Error != "", len(body.GlobalQuote) == 0:
		return nil, apperrors.NewQuoteError(SourceAlphaVantage, symbol, apperrors.ErrSymbolNotFound)
	}

	return parseGlobalQuote(symbol, body.GlobalQuote)
}

func parseGlobalQuote(symbol string, gq map[string]string) (*models.Quote, error) {
	price, err := strconv.ParseFloat(gq["05. price"], 64)
	if err != nil {
		return nil, apperrors.NewQuoteError(SourceAlphaVantage, symbol, fmt.Errorf("parsing price: %w", err))
	}

	q := &models.Quote{
		Symbol:    symbol,
		Price:     price,
		Source:    SourceAlphaVantage,
		Timestamp: time.Now(),
	}
	if s, ok := gq["01. symbol"]; ok && s != "" {
		q.Symbol = s
	}
	// Optional fields are best effort.
	q.Change, _ = strconv.ParseFloat(gq["09. change"], 64)
	q.ChangePercent, _ = strconv.ParseFloat(strings.TrimSuffix(gq["10. change percent"], "%"), 64)
	q.PreviousClose, _ = strconv.ParseFloat(gq["08. previous close"], 64)
	q.Volume, _ = strconv.ParseInt(gq["06. volume"], 10, 64)
	if day, err := time.Parse("2006-01-02", gq["07. latest trading day"]); err == nil {
		q.Timestamp = day
	}

	return q, nil
}
