package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"options-analyzer/internal/models"
	"options-analyzer/internal/payoff"
	"options-analyzer/internal/store"
)

const storeTimeout = 10 * time.Second

// addStrategyCommands adds saved strategy management commands.
func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "strategy",
		Aliases: []string{"strategies"},
		Short:   "Manage saved strategies",
		Long:    "Save, list, inspect, update and delete multi-leg option strategies.",
	}

	cmd.AddCommand(newStrategyAddCmd(app))
	cmd.AddCommand(newStrategyListCmd(app))
	cmd.AddCommand(newStrategyShowCmd(app))
	cmd.AddCommand(newStrategyUpdateCmd(app))
	cmd.AddCommand(newStrategyDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func loadStrategy(cmd *cobra.Command, app *App, id string) (*models.Strategy, error) {
	st, err := app.requireStore()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
	defer cancel()
	return st.GetStrategy(ctx, id)
}

func optionalFloat(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

func newStrategyAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <ticker>",
		Short: "Save a new strategy",
		Example: `  options-analyzer strategy add "AAPL bear call" AAPL \
      --leg sell:call:180:7.50:1:2025-02-21 --leg buy:call:185:6.20:1:2025-02-21`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			db, err := app.requireStore()
			if err != nil {
				return err
			}

			specs, _ := cmd.Flags().GetStringArray("leg")
			if len(specs) == 0 {
				return fmt.Errorf("at least one --leg is required")
			}
			legs := make([]models.OptionLeg, 0, len(specs))
			for _, spec := range specs {
				leg, err := models.ParseLeg(spec)
				if err != nil {
					return err
				}
				legs = append(legs, leg)
			}

			notes, _ := cmd.Flags().GetString("notes")
			st := &models.Strategy{
				Name:         args[0],
				Ticker:       args[1],
				Legs:         legs,
				Notes:        notes,
				EntryPrice:   optionalFloat(cmd, "entry-price"),
				TargetProfit: optionalFloat(cmd, "target"),
				StopLoss:     optionalFloat(cmd, "stop"),
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
			defer cancel()
			if err := db.SaveStrategy(ctx, st); err != nil {
				return err
			}
			app.Logger.Info().Str("strategy_id", st.ID).Str("symbol", st.Ticker).Int("legs", len(legs)).Msg("Strategy saved")

			if output.IsJSON() {
				return output.JSON(st)
			}
			output.Success("✓ Saved strategy %s (%s)", st.Name, st.ID)
			return nil
		},
	}

	cmd.Flags().StringArrayP("leg", "l", nil, "Option leg side:type:strike:premium:qty[:YYYY-MM-DD[:vol]] (repeatable)")
	cmd.Flags().String("notes", "", "Free-form notes")
	cmd.Flags().Float64("entry-price", 0, "Underlying price at entry")
	cmd.Flags().Float64("target", 0, "Target profit")
	cmd.Flags().Float64("stop", 0, "Stop loss")

	return cmd
}

func newStrategyListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			db, err := app.requireStore()
			if err != nil {
				return err
			}

			status, _ := cmd.Flags().GetString("status")
			ticker, _ := cmd.Flags().GetString("ticker")
			limit, _ := cmd.Flags().GetInt("limit")

			filter := store.StrategyFilter{Status: models.StrategyStatus(status), Ticker: ticker, Limit: limit}
			ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
			defer cancel()

			list, err := db.ListStrategies(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if list == nil {
					list = []models.Strategy{}
				}
				return output.JSON(list)
			}

			if len(list) == 0 {
				output.Info("No strategies found.")
				return nil
			}

			table := NewTable(output, "ID", "NAME", "TICKER", "LEGS", "NET PREMIUM", "STATUS", "CREATED")
			for _, st := range list {
				table.AddRow(
					ShortID(st.ID),
					TruncateString(st.Name, 28),
					st.Ticker,
					fmt.Sprintf("%d", len(st.Legs)),
					output.FormatPnL(payoff.NetPremium(st.Legs)),
					string(st.Status),
					FormatDateTime(st.CreatedAt),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("status", "", "Filter by status (active, closed)")
	cmd.Flags().String("ticker", "", "Filter by ticker")
	cmd.Flags().Int("limit", 0, "Maximum number of strategies")

	return cmd
}

func newStrategyShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := loadStrategy(cmd, app, args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(st)
			}

			output.Bold("%s - %s", st.Name, st.Ticker)
			output.Printf("  ID:       %s\n", st.ID)
			output.Printf("  Status:   %s\n", st.Status)
			if st.EntryPrice != nil {
				output.Printf("  Entry:    %s\n", FormatPrice(*st.EntryPrice))
			}
			if st.TargetProfit != nil {
				output.Printf("  Target:   %s\n", FormatCurrency(*st.TargetProfit))
			}
			if st.StopLoss != nil {
				output.Printf("  Stop:     %s\n", FormatCurrency(*st.StopLoss))
			}
			output.Printf("  Created:  %s\n", FormatDateTime(st.CreatedAt))
			output.Printf("  Updated:  %s\n", FormatDateTime(st.UpdatedAt))
			if st.Notes != "" {
				output.Printf("  Notes:    %s\n", st.Notes)
			}
			output.Println()

			table := NewTable(output, "LEG", "PREMIUM", "QTY", "EXPIRY")
			for _, leg := range st.Legs {
				expiry := "-"
				if leg.Expiration != nil {
					expiry = FormatDate(*leg.Expiration)
				}
				table.AddRow(leg.Label(), FormatPrice(leg.Premium), fmt.Sprintf("%d", leg.Quantity), expiry)
			}
			table.Render()
			output.Println()
			output.Printf("  Net premium: %s\n", output.FormatPnL(payoff.NetPremium(st.Legs)))
			return nil
		},
	}
}

func newStrategyUpdateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Update a saved strategy",
		Example: `  options-analyzer strategy update 3f2a9c1e --status closed --notes "closed for 60% profit"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			db, err := app.requireStore()
			if err != nil {
				return err
			}

			var update models.StrategyUpdate
			if cmd.Flags().Changed("name") {
				v, _ := cmd.Flags().GetString("name")
				update.Name = &v
			}
			if cmd.Flags().Changed("notes") {
				v, _ := cmd.Flags().GetString("notes")
				update.Notes = &v
			}
			if cmd.Flags().Changed("status") {
				v, _ := cmd.Flags().GetString("status")
				status := models.StrategyStatus(strings.ToLower(v))
				update.Status = &status
			}
			update.TargetProfit = optionalFloat(cmd, "target")
			update.StopLoss = optionalFloat(cmd, "stop")

			ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
			defer cancel()

			st, err := db.UpdateStrategy(ctx, args[0], update)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(st)
			}
			output.Success("✓ Updated strategy %s", st.ID)
			return nil
		},
	}

	cmd.Flags().String("name", "", "New name")
	cmd.Flags().String("notes", "", "New notes")
	cmd.Flags().String("status", "", "New status (active, closed)")
	cmd.Flags().Float64("target", 0, "Target profit")
	cmd.Flags().Float64("stop", 0, "Stop loss")

	return cmd
}

func newStrategyDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved strategy",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			db, err := app.requireStore()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
			defer cancel()
			if err := db.DeleteStrategy(ctx, args[0]); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Deleted strategy %s", args[0])
			return nil
		},
	}
}
