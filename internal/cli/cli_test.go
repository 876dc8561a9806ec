package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-analyzer/internal/config"
	"options-analyzer/internal/models"
	"options-analyzer/internal/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("OPTIONS_ANALYZER_DB", filepath.Join(dir, "test.db"))
	t.Setenv("ALPHA_VANTAGE_KEY", "")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	cfg.Quotes.Providers = []string{config.ProviderMock}
	cfg.Logging.File = false

	app := NewApp(cfg, dir, zerolog.Nop())
	require.NotNil(t, app.Store)
	t.Cleanup(func() { app.Close() })
	return app
}

func run(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScenarioCommandJSON(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "scenario", "AAPL", "--json", "--price", "185.50",
		"--leg", "sell:call:180:7.50:1", "--leg", "buy:call:185:6.20:1",
		"--scenario", "price_down")
	require.NoError(t, err)

	var res models.ScenarioResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, -370.0, res.CurrentPnL)
	assert.Equal(t, 130.0, res.ScenarioPnL)
	assert.Equal(t, 130.0, res.MaxProfit)
	assert.Equal(t, -370.0, res.MaxLoss)
	require.Len(t, res.Recommendations, 3)
	assert.Equal(t, models.RecommendInfo, res.Recommendations[2].Kind)
}

func TestScenarioCommandUsesQuote(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "scenario", "spy", "--json", "--scenario", "time_decay")
	require.NoError(t, err)

	var res models.ScenarioResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 475.30, res.CurrentPrice)
	assert.Equal(t, res.CurrentPrice, res.ScenarioPrice)
}

func TestScenarioCommandRejectsBadInput(t *testing.T) {
	app := newTestApp(t)

	_, err := run(t, app, "scenario", "AAPL", "--price", "100", "--scenario", "sideways")
	assert.Error(t, err)

	_, err = run(t, app, "scenario", "AAPL", "--price", "-1")
	assert.Error(t, err)

	_, err = run(t, app, "scenario", "AAPL", "--price", "100", "--leg", "sell:call:abc:1:1")
	assert.Error(t, err)
}

func TestStrategyLifecycleAndRoll(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "strategy", "add", "AAPL bear call", "AAPL", "--json",
		"--leg", "sell:call:180:7.50:1", "--leg", "buy:call:185:6.20:1", "--target", "100")
	require.NoError(t, err)

	var st models.Strategy
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	require.NotEmpty(t, st.ID)
	assert.Equal(t, models.StrategyActive, st.Status)

	out, err = run(t, app, "strategy", "list", "--json")
	require.NoError(t, err)
	var list []models.Strategy
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list, 1)

	// Priced from the mock quote at 185.50: both calls are below price and roll to 190.
	out, err = run(t, app, "roll", st.ID, "--json")
	require.NoError(t, err)
	var report models.RollReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 185.50, report.CurrentPrice)
	require.Len(t, report.Suggestions, 2)
	assert.Equal(t, "SELL CALL $190", report.Suggestions[0].Suggested)
	assert.Equal(t, 1.0, report.Suggestions[0].EstimatedCreditDebit)
	assert.Equal(t, "BUY CALL $190", report.Suggestions[1].Suggested)
	assert.Equal(t, 0.5, report.Suggestions[1].EstimatedCreditDebit)
	assert.Len(t, report.NextExpirations, 3)

	out, err = run(t, app, "scenario", "--strategy", st.ID, "--price", "170", "--json")
	require.NoError(t, err)
	var res models.ScenarioResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 130.0, res.CurrentPnL)

	_, err = run(t, app, "strategy", "update", st.ID, "--status", "closed")
	require.NoError(t, err)
	out, err = run(t, app, "strategy", "list", "--status", "active", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	_, err = run(t, app, "strategy", "delete", st.ID)
	require.NoError(t, err)
	_, err = run(t, app, "strategy", "show", st.ID)
	assert.Error(t, err)
}

func TestPayoffCommand(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "payoff", "AAPL", "--json", "--price", "185.50",
		"--from", "170", "--to", "195", "--step", "5",
		"--leg", "sell:call:180:7.50:1", "--leg", "buy:call:185:6.20:1")
	require.NoError(t, err)

	var body struct {
		MaxProfit  float64 `json:"max_profit"`
		MaxLoss    float64 `json:"max_loss"`
		NetPremium float64 `json:"net_premium"`
		Points     []struct {
			Price float64 `json:"price"`
			PnL   float64 `json:"pnl"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Len(t, body.Points, 6)
	assert.Equal(t, 170.0, body.Points[0].Price)
	assert.InDelta(t, 130.0, body.Points[0].PnL, 1e-9)
	assert.InDelta(t, -370.0, body.Points[5].PnL, 1e-9)
	assert.InDelta(t, 130.0, body.NetPremium, 1e-9)
	assert.Equal(t, 130.0, body.MaxProfit)
	assert.Equal(t, -370.0, body.MaxLoss)
}

func TestWatchlistAndQuoteCommands(t *testing.T) {
	app := newTestApp(t)

	_, err := run(t, app, "watchlist", "add", "nvda", "tsla")
	require.NoError(t, err)
	_, err = run(t, app, "watchlist", "add", "NVDA")
	assert.Error(t, err)

	out, err := run(t, app, "watchlist", "list", "--json")
	require.NoError(t, err)
	var entries []store.WatchlistEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "NVDA", entries[0].Symbol)

	out, err = run(t, app, "watchlist", "list", "--quotes", "--json")
	require.NoError(t, err)
	var quotes []models.Quote
	require.NoError(t, json.Unmarshal([]byte(out), &quotes))
	require.Len(t, quotes, 2)
	assert.Equal(t, 495.20, quotes[0].Price)

	_, err = run(t, app, "watchlist", "remove", "TSLA")
	require.NoError(t, err)
	_, err = run(t, app, "watchlist", "remove", "TSLA")
	assert.Error(t, err)

	// Unknown symbols resolve to the fallback price.
	out, err = run(t, app, "quote", "ZZZZ", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &quotes))
	require.Len(t, quotes, 1)
	assert.Equal(t, 150.0, quotes[0].Price)
	assert.Equal(t, "fallback", quotes[0].Source)
}

func TestCoreCommands(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, Version)

	out, err = run(t, app, "config", "validate", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid": true}`, out)

	out, err = run(t, app, "config", "show", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"alphavantage": false`)

	out, err = run(t, app, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "config.toml")
}

func TestHumanOutputHasNoColorWhenDisabled(t *testing.T) {
	app := newTestApp(t)

	out, err := run(t, app, "scenario", "AAPL", "--no-color", "--price", "185.50",
		"--leg", "sell:call:180:7.50:1", "--leg", "buy:call:185:6.20:1")
	require.NoError(t, err)
	assert.Contains(t, out, "SELL CALL $180")
	assert.Contains(t, out, "-$370.00")
	assert.Contains(t, out, "Time decay accelerates")
	assert.NotContains(t, out, "\x1b[")
}
