package quotes

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/models"
)

// SourceMock names quotes from the built-in table.
const SourceMock = "mock"

// MockQuote is one row of the built-in quote table.
type MockQuote struct {
	Price  float64
	Change float64
	Volume int64
}

// DefaultMockQuotes is the built-in quote table.
var DefaultMockQuotes = map[string]MockQuote{
	"AAPL":  {Price: 185.50, Change: 2.35, Volume: 45_000_000},
	"MSFT":  {Price: 378.90, Change: -1.20, Volume: 25_000_000},
	"GOOGL": {Price: 141.80, Change: 1.50, Volume: 20_000_000},
	"NVDA":  {Price: 495.20, Change: 12.80, Volume: 35_000_000},
	"TSLA":  {Price: 248.50, Change: -5.40, Volume: 55_000_000},
	"SPY":   {Price: 475.30, Change: 3.20, Volume: 80_000_000},
	"META":  {Price: 385.60, Change: 4.20, Volume: 18_000_000},
	"AMZN":  {Price: 178.25, Change: 2.10, Volume: 30_000_000},
}

// MockSource serves deterministic quotes from a fixed table.
type MockSource struct {
	table map[string]MockQuote
	now   func() time.Time
}

// NewMockSource creates a mock source over table, or the default table when nil.
func NewMockSource(table map[string]MockQuote) *MockSource {
	if table == nil {
		table = DefaultMockQuotes
	}
	return &MockSource{table: table, now: time.Now}
}

// Name implements Source.
func (m *MockSource) Name() string { return SourceMock }

// Quote implements Source.
func (m *MockSource) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	symbol = NormalizeSymbol(symbol)
	row, ok := m.table[symbol]
	if !ok {
		return nil, apperrors.NewQuoteError(SourceMock, symbol, apperrors.ErrSymbolNotFound)
	}

	price := decimal.NewFromFloat(row.Price)
	change := decimal.NewFromFloat(row.Change)
	prev := price.Sub(change)
	pct := decimal.Zero
	if !prev.IsZero() {
		pct = change.Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         row.Price,
		Change:        row.Change,
		ChangePercent: pct.InexactFloat64(),
		Volume:        row.Volume,
		PreviousClose: prev.InexactFloat64(),
		Source:        SourceMock,
		Timestamp:     m.now(),
	}, nil
}

// Symbols lists the tickers the mock table knows about.
func (m *MockSource) Symbols() []string {
	out := make([]string, 0, len(m.table))
	for s := range m.table {
		out = append(out, s)
	}
	return out
}
