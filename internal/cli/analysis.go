package cli

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"options-analyzer/internal/logging"
	"options-analyzer/internal/models"
	"options-analyzer/internal/payoff"
)

// addAnalysisCommands adds scenario, payoff and roll commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newScenarioCmd(app))
	rootCmd.AddCommand(newPayoffCmd(app))
	rootCmd.AddCommand(newRollCmd(app))
}

// addPositionFlags registers the flags shared by commands that take a position.
func addPositionFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("leg", "l", nil, "Option leg side:type:strike:premium:qty[:YYYY-MM-DD[:vol]] (repeatable)")
	cmd.Flags().StringP("strategy", "s", "", "Use the legs of a saved strategy")
	cmd.Flags().Float64P("price", "p", 0, "Current underlying price (default: quote lookup)")
}

// resolvePosition reads the ticker and legs from a saved strategy or from --leg flags.
func resolvePosition(cmd *cobra.Command, app *App, args []string) (string, models.Position, error) {
	strategyID, _ := cmd.Flags().GetString("strategy")
	specs, _ := cmd.Flags().GetStringArray("leg")

	if strategyID != "" {
		if len(specs) > 0 {
			return "", nil, fmt.Errorf("--strategy and --leg are mutually exclusive")
		}
		st, err := loadStrategy(cmd, app, strategyID)
		if err != nil {
			return "", nil, err
		}
		return st.Ticker, st.Legs, nil
	}

	if len(args) == 0 {
		return "", nil, fmt.Errorf("ticker is required when --strategy is not given")
	}

	legs := make(models.Position, 0, len(specs))
	for _, spec := range specs {
		leg, err := models.ParseLeg(spec)
		if err != nil {
			return "", nil, err
		}
		legs = append(legs, leg)
	}
	return strings.ToUpper(args[0]), legs, nil
}

// resolvePrice returns --price when set, otherwise looks the ticker up.
func resolvePrice(cmd *cobra.Command, app *App, ticker string) (float64, string, error) {
	price, _ := cmd.Flags().GetFloat64("price")
	if cmd.Flags().Changed("price") {
		if !(price > 0) || math.IsInf(price, 0) {
			return 0, "", fmt.Errorf("--price must be a positive number")
		}
		return price, "flag", nil
	}

	ctx, cancel := app.quoteContext()
	defer cancel()

	q, err := app.Quotes.Quote(ctx, ticker)
	if err != nil {
		return 0, "", fmt.Errorf("looking up %s: %w", ticker, err)
	}
	return q.Price, q.Source, nil
}

func newScenarioCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [ticker]",
		Short: "Run a what-if scenario on a position",
		Long: `Evaluate a position's P&L at expiration now and under a scenario.

Scenarios: price_up, price_down, volatility_increase, time_decay.
price_up and price_down move the underlying by --value (default from config).
volatility_increase and time_decay leave the price unchanged.`,
		Example: `  options-analyzer scenario AAPL --price 185.50 \
      --leg sell:call:180:7.50:1 --leg buy:call:185:6.20:1 --scenario price_down
  options-analyzer scenario --strategy 3f2a9c1e --scenario price_up --value 0.05`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ticker, legs, err := resolvePosition(cmd, app, args)
			if err != nil {
				return err
			}

			kindStr, _ := cmd.Flags().GetString("scenario")
			kind, err := models.ParseScenarioKind(kindStr)
			if err != nil {
				return err
			}

			price, source, err := resolvePrice(cmd, app, ticker)
			if err != nil {
				return err
			}

			req := models.ScenarioRequest{
				Ticker:       ticker,
				CurrentPrice: price,
				Legs:         legs,
				Kind:         kind,
			}
			if cmd.Flags().Changed("value") {
				v, _ := cmd.Flags().GetFloat64("value")
				req.Value = &v
			}

			res, err := app.Evaluator.Evaluate(req)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(res)
			}

			displayScenario(output, ticker, source, kind, legs, res)
			return nil
		},
	}

	addPositionFlags(cmd)
	cmd.Flags().String("scenario", string(models.ScenarioPriceUp), "Scenario type")
	cmd.Flags().Float64("value", 0, "Scenario magnitude as a fraction (0.10 = 10%)")

	return cmd
}

func displayScenario(output *Output, ticker, source string, kind models.ScenarioKind, legs models.Position, res *models.ScenarioResult) {
	output.Bold("Scenario Analysis - %s (%s)", ticker, kind)
	output.Printf("  Current Price:   %s %s\n", FormatPrice(res.CurrentPrice), output.DimText("["+source+"]"))
	output.Printf("  Scenario Price:  %s\n", FormatPrice(res.ScenarioPrice))
	output.Println()

	if len(legs) > 0 {
		table := NewTable(output, "LEG", "PREMIUM", "QTY", "EXPIRY")
		for _, leg := range legs {
			expiry := "-"
			if leg.Expiration != nil {
				expiry = FormatDate(*leg.Expiration)
			}
			table.AddRow(leg.Label(), FormatPrice(leg.Premium), fmt.Sprintf("%d", leg.Quantity), expiry)
		}
		table.Render()
		output.Println()
	}

	output.Printf("  Current P&L:     %s\n", output.FormatPnL(res.CurrentPnL))
	output.Printf("  Scenario P&L:    %s\n", output.FormatPnL(res.ScenarioPnL))
	output.Printf("  Change:          %s\n", output.FormatPnL(res.PnLChange))
	output.Printf("  Max Profit:      %s\n", output.FormatPnL(res.MaxProfit))
	output.Printf("  Max Loss:        %s\n", output.FormatPnL(res.MaxLoss))
	output.Println()

	output.Bold("Recommendations")
	output.Recommendations(res.Recommendations)
}

// payoffRow is one line of the payoff table.
type payoffRow struct {
	Price float64 `json:"price"`
	PnL   float64 `json:"pnl"`
}

func newPayoffCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payoff [ticker]",
		Short: "Show the P&L at expiration across a price grid",
		Example: `  options-analyzer payoff SPY --price 475.30 --step 10 \
      --leg buy:put:460:3.10:1 --leg sell:put:465:4.20:1 \
      --leg sell:call:485:3.90:1 --leg buy:call:490:2.80:1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ticker, legs, err := resolvePosition(cmd, app, args)
			if err != nil {
				return err
			}
			if err := legs.Validate(); err != nil {
				return err
			}

			price, _, err := resolvePrice(cmd, app, ticker)
			if err != nil {
				return err
			}

			step, _ := cmd.Flags().GetFloat64("step")
			from, _ := cmd.Flags().GetFloat64("from")
			to, _ := cmd.Flags().GetFloat64("to")

			rng := app.Evaluator.ScanRange(price)
			if !cmd.Flags().Changed("from") {
				from = rng.Min
			}
			if !cmd.Flags().Changed("to") {
				to = rng.Max
			}
			if step <= 0 {
				step = math.Max(1, math.Round((to-from)/20))
			}
			if to < from {
				return fmt.Errorf("--to must not be below --from")
			}

			var prices []float64
			for p := from; p <= to+1e-9; p += step {
				prices = append(prices, p)
			}
			points := payoff.Curve(legs, prices)

			maxProfit, maxLoss, err := app.Evaluator.Extremes(legs, price)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				rows := make([]payoffRow, len(points))
				for i, pt := range points {
					rows[i] = payoffRow{Price: pt.Price, PnL: pt.PnL}
				}
				return output.JSON(map[string]interface{}{
					"ticker":        ticker,
					"current_price": price,
					"current_pnl":   payoff.Evaluate(price, legs),
					"max_profit":    maxProfit,
					"max_loss":      maxLoss,
					"net_premium":   payoff.NetPremium(legs),
					"points":        rows,
				})
			}

			output.Bold("Payoff at Expiration - %s", ticker)
			output.Printf("  Current Price: %s   Net Premium: %s\n\n",
				FormatPrice(price), output.FormatPnL(payoff.NetPremium(legs)))

			table := NewTable(output, "PRICE", "P&L")
			for _, pt := range points {
				label := FormatPrice(pt.Price)
				if math.Abs(pt.Price-price) < step/2 {
					label = output.BoldText(label + " *")
				}
				table.AddRow(label, output.FormatPnL(pt.PnL))
			}
			table.Render()
			output.Println()
			output.Printf("  Max Profit: %s   Max Loss: %s\n", output.FormatPnL(maxProfit), output.FormatPnL(maxLoss))
			return nil
		},
	}

	addPositionFlags(cmd)
	cmd.Flags().Float64("from", 0, "Lowest price in the grid (default: scan range low)")
	cmd.Flags().Float64("to", 0, "Highest price in the grid (default: scan range high)")
	cmd.Flags().Float64("step", 0, "Grid step (default: about 20 rows)")

	return cmd
}

func newRollCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roll <strategy-id>",
		Short: "Suggest strike rolls for a saved strategy",
		Long: `Suggest new strikes for the short-side legs of a saved strategy.

Calls below the current price roll up and puts above it roll down, to the
nearest strike increment. Credits are rough estimates.`,
		Example: `  options-analyzer roll 3f2a9c1e
  options-analyzer roll 3f2a9c1e --price 192.10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, err := loadStrategy(cmd, app, args[0])
			if err != nil {
				return err
			}

			price, source, err := resolvePrice(cmd, app, st.Ticker)
			if err != nil {
				return err
			}

			report := app.Advisor.RollReport(st, price, time.Now())
			logging.LogRoll(logging.WithStrategy(app.Logger, st.ID), report)

			if output.IsJSON() {
				return output.JSON(report)
			}

			output.Bold("Roll Analysis - %s (%s)", st.Name, st.Ticker)
			output.Printf("  Current Price: %s %s\n\n", FormatPrice(price), output.DimText("["+source+"]"))

			if len(report.Suggestions) == 0 {
				output.Info("No legs need rolling at this price.")
			} else {
				table := NewTable(output, "ORIGINAL", "SUGGESTED", "EST. CREDIT/DEBIT")
				for _, s := range report.Suggestions {
					table.AddRow(s.Original, s.Suggested, output.FormatPnL(s.EstimatedCreditDebit))
				}
				table.Render()
				output.Dim("  %s", report.Suggestions[0].Reason)
			}

			output.Println()
			output.Printf("  Next expirations: %s\n", strings.Join(report.NextExpirations, ", "))
			return nil
		},
	}

	cmd.Flags().Float64P("price", "p", 0, "Current underlying price (default: quote lookup)")

	return cmd
}
