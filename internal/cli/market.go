package cli

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"options-analyzer/internal/models"
	"options-analyzer/internal/store"
)

// addMarketCommands adds quote and watchlist commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "quote <symbol>...",
		Short:   "Show current quotes",
		Example: `  options-analyzer quote AAPL MSFT`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			list := fetchQuotes(app, args)
			if output.IsJSON() {
				return output.JSON(list)
			}

			renderQuotes(output, list)
			return nil
		},
	}
}

// fetchQuotes resolves symbols concurrently, preserving input order.
func fetchQuotes(app *App, symbols []string) []*models.Quote {
	ctx, cancel := app.quoteContext()
	defer cancel()

	out := make([]*models.Quote, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			q, err := app.Quotes.Quote(ctx, sym)
			if err != nil {
				app.Logger.Warn().Err(err).Str("symbol", sym).Msg("Quote lookup failed")
				return
			}
			out[i] = q
		}(i, sym)
	}
	wg.Wait()

	for _, st := range app.Quotes.BreakerStats() {
		if st.TotalFailures > 0 || st.TotalRejected > 0 {
			app.Logger.Debug().
				Str("provider", st.Name).
				Str("state", string(st.State)).
				Int64("failures", st.TotalFailures).
				Int64("rejected", st.TotalRejected).
				Msg("Quote provider health")
		}
	}

	filtered := out[:0]
	for _, q := range out {
		if q != nil {
			filtered = append(filtered, q)
		}
	}
	return filtered
}

func renderQuotes(output *Output, list []*models.Quote) {
	table := NewTable(output, "SYMBOL", "PRICE", "CHANGE", "VOLUME", "SOURCE")
	for _, q := range list {
		change := FormatChange(q.Change, q.ChangePercent)
		switch {
		case q.Change > 0:
			change = output.Green(change)
		case q.Change < 0:
			change = output.Red(change)
		}
		table.AddRow(q.Symbol, FormatPrice(q.Price), change, FormatVolume(q.Volume), output.DimText(q.Source))
	}
	table.Render()
}

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Manage the watchlist",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <symbol>...",
		Short: "Add symbols to the watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			db, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
			defer cancel()

			for _, sym := range args {
				if err := db.AddToWatchlist(ctx, sym); err != nil {
					return err
				}
				if !output.IsJSON() {
					output.Success("✓ Added %s", sym)
				}
			}
			if output.IsJSON() {
				return output.JSON(map[string][]string{"added": args})
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <symbol>",
		Aliases: []string{"rm"},
		Short:   "Remove a symbol from the watchlist",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			db, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
			defer cancel()

			if err := db.RemoveFromWatchlist(ctx, args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"removed": args[0]})
			}
			output.Success("✓ Removed %s", args[0])
			return nil
		},
	})

	list := &cobra.Command{
		Use:   "list",
		Short: "List watched symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			db, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), storeTimeout)
			defer cancel()

			entries, err := db.GetWatchlist(ctx)
			if err != nil {
				return err
			}

			withQuotes, _ := cmd.Flags().GetBool("quotes")
			if withQuotes && len(entries) > 0 {
				list := fetchQuotes(app, watchlistSymbols(entries))
				if output.IsJSON() {
					return output.JSON(list)
				}
				renderQuotes(output, list)
				return nil
			}

			if output.IsJSON() {
				if entries == nil {
					entries = []store.WatchlistEntry{}
				}
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Info("Watchlist is empty.")
				return nil
			}
			table := NewTable(output, "SYMBOL", "ADDED")
			for _, e := range entries {
				table.AddRow(e.Symbol, e.AddedAt)
			}
			table.Render()
			return nil
		},
	}
	list.Flags().Bool("quotes", false, "Include current quotes")
	cmd.AddCommand(list)

	return cmd
}

func watchlistSymbols(entries []store.WatchlistEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Symbol
	}
	return out
}
