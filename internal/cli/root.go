// Package cli provides the command-line interface for the options analyzer.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"options-analyzer/internal/advisor"
	"options-analyzer/internal/config"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/quotes"
	"options-analyzer/internal/resilience"
	"options-analyzer/internal/scenario"
	"options-analyzer/internal/store"
	"options-analyzer/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-01-15"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Quotes    *quotes.FallbackSource
	Store     store.StrategyStore
	Advisor   *advisor.Advisor
	Evaluator *scenario.Evaluator
}

// NewApp wires the application from configuration.
func NewApp(cfg *config.Config, configDir string, logger zerolog.Logger) *App {
	adv := advisor.New(cfg.Thresholds(), cfg.Roll())
	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		Logger:    logger,
		Advisor:   adv,
		Evaluator: scenario.NewEvaluator(cfg.Scenario(), adv, logger),
		Quotes:    newQuoteChain(cfg, logger),
	}

	dataStore, err := openStore(cfg.Store)
	if err != nil {
		logger.Warn().
			Str("driver", cfg.Store.Driver).
			Str("error", logging.Redact(err.Error())).
			Msg("Failed to initialize store, strategy commands unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("driver", cfg.Store.Driver).Msg("Strategy store initialized")
	}

	return app
}

func openStore(cfg config.StoreConfig) (store.StrategyStore, error) {
	if cfg.Driver == config.StorePostgres {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		pg, err := store.NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := store.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

func newQuoteChain(cfg *config.Config, logger zerolog.Logger) *quotes.FallbackSource {
	var sources []quotes.Source
	for _, name := range cfg.Quotes.Providers {
		switch name {
		case config.ProviderAlphaVantage:
			if cfg.Credentials.AlphaVantage.APIKey == "" {
				logger.Debug().Msg("Alpha Vantage key not set, skipping provider")
				continue
			}
			sources = append(sources, quotes.NewAlphaVantageSource(
				cfg.Credentials.AlphaVantage.APIKey, cfg.Quotes.Timeout, logger).
				WithRateLimit(cfg.Quotes.AlphaVantagePerMinute))
		case config.ProviderKite:
			if cfg.Credentials.Kite.AccessToken == "" {
				logger.Debug().Msg("Kite access token not set, skipping provider")
				continue
			}
			sources = append(sources, quotes.NewKiteSource(quotes.KiteConfig{
				APIKey:      cfg.Credentials.Kite.APIKey,
				AccessToken: cfg.Credentials.Kite.AccessToken,
				Exchange:    cfg.Quotes.KiteExchange,
				Timeout:     cfg.Quotes.Timeout,
			}, logger))
		case config.ProviderMock:
			sources = append(sources, quotes.NewMockSource(nil))
		}
	}

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Quotes.RetryAttempts
	return quotes.NewFallbackSource(sources, cfg.Quotes.FallbackPrice, retry, logger).
		WithBreakers(resilience.BreakerConfig{
			FailureThreshold: cfg.Quotes.BreakerThreshold,
			Cooldown:         cfg.Quotes.BreakerCooldown,
		})
}

// Close releases resources held by the app.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// requireStore returns the store or an error explaining why it is missing.
func (a *App) requireStore() (store.StrategyStore, error) {
	if a.Store == nil {
		return nil, fmt.Errorf("strategy store unavailable (check [store] in %s)", config.ConfigPath(a.ConfigDir))
	}
	return a.Store, nil
}

// quoteContext bounds a quote lookup by the configured timeout plus retry slack.
func (a *App) quoteContext() (context.Context, context.CancelFunc) {
	timeout := a.Config.Quotes.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := a.Config.Quotes.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout*time.Duration(attempts+1))
	return logging.WithLogger(ctx, a.Logger), cancel
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "options-analyzer",
		Short: "Options position analyzer",
		Long: `Options Analyzer evaluates multi-leg option positions at expiration.

It computes P&L under what-if scenarios, scans for max profit and max loss,
recommends adjustments and suggests strike rolls for saved strategies.

Use 'options-analyzer <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/options-analyzer)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", !app.Config.UI.ColorEnabled, "disable colored output")

	addCoreCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addStrategyCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Options Analyzer v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(configView(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.ConfigPath(app.ConfigDir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

// configView is the printable configuration; credentials are reduced to
// presence flags and the DSN password is masked.
func configView(cfg *config.Config) map[string]interface{} {
	st := cfg.Store
	st.DSN = logging.Redact(st.DSN)
	return map[string]interface{}{
		"analysis": cfg.Analysis,
		"quotes":   cfg.Quotes,
		"store":    st,
		"logging":  cfg.Logging,
		"ui":       cfg.UI,
		"credentials": map[string]bool{
			"alphavantage": cfg.Credentials.AlphaVantage.APIKey != "",
			"kite":         cfg.Credentials.Kite.AccessToken != "",
		},
	}
}

func showConfig(output *Output, cfg *config.Config) {
	a := cfg.Analysis
	output.Bold("Analysis")
	output.Printf("  Default Move:     %.2f%%\n", a.DefaultMove*100)
	output.Printf("  Scan Range:       %.2fx - %.2fx\n", a.ScanLow, a.ScanHigh)
	output.Printf("  Close / Roll:     %.0f%% / %.0f%% of max loss\n", a.CloseLossPercent, a.RollLossPercent)
	output.Printf("  Take / Partial:   %.0f%% / %.0f%% of max profit\n", a.TakeProfitPercent, a.PartialClosePercent)
	output.Printf("  Strike Width:     %d\n", a.StrikeWidth)
	output.Printf("  Roll Increment:   %s\n", FormatStrike(a.RollIncrement))
	output.Println()

	output.Bold("Quotes")
	output.Printf("  Providers:        %v\n", cfg.Quotes.Providers)
	output.Printf("  Fallback Price:   %s\n", FormatCurrency(cfg.Quotes.FallbackPrice))
	output.Printf("  Timeout:          %s\n", cfg.Quotes.Timeout)
	output.Printf("  Circuit Breaker:  %d failures, %s cooldown\n", cfg.Quotes.BreakerThreshold, cfg.Quotes.BreakerCooldown)
	output.Printf("  Alpha Vantage:    %v\n", cfg.Credentials.AlphaVantage.APIKey != "")
	output.Printf("  Kite:             %v\n", cfg.Credentials.Kite.AccessToken != "")
	output.Println()

	output.Bold("Storage")
	output.Printf("  Driver:           %s\n", cfg.Store.Driver)
	if cfg.Store.Driver == config.StorePostgres {
		output.Printf("  DSN:              %s\n", logging.Redact(cfg.Store.DSN))
	} else {
		output.Printf("  Database:         %s\n", cfg.Store.Path)
	}
	output.Printf("  Log File:         %s\n", cfg.Logging.FilePath)
}
