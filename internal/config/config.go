// Package config provides configuration management for the options analyzer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"options-analyzer/internal/advisor"
	apperrors "options-analyzer/internal/errors"
	"options-analyzer/internal/logging"
	"options-analyzer/internal/scenario"
)

// Config holds all application configuration.
type Config struct {
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
	Quotes      QuotesConfig      `mapstructure:"quotes"`
	Store       StoreConfig       `mapstructure:"store"`
	Logging     logging.LogConfig `mapstructure:"logging"`
	UI          UIConfig          `mapstructure:"ui"`
	Credentials Credentials       `mapstructure:"-"` // Loaded separately
}

// AnalysisConfig holds scenario and recommendation settings.
type AnalysisConfig struct {
	DefaultMove         float64 `mapstructure:"default_move"`
	ScanLow             float64 `mapstructure:"scan_low"`
	ScanHigh            float64 `mapstructure:"scan_high"`
	CloseLossPercent    float64 `mapstructure:"close_loss_percent"`
	RollLossPercent     float64 `mapstructure:"roll_loss_percent"`
	TakeProfitPercent   float64 `mapstructure:"take_profit_percent"`
	PartialClosePercent float64 `mapstructure:"partial_close_percent"`
	StrikeWidth         int     `mapstructure:"strike_width"`
	RollIncrement       float64 `mapstructure:"roll_increment"`
	RollCreditFactor    float64 `mapstructure:"roll_credit_factor"`
	RollExpirations     int     `mapstructure:"roll_expirations"`
}

// QuotesConfig holds quote provider configuration.
type QuotesConfig struct {
	Providers     []string      `mapstructure:"providers"` // tried in order: alphavantage, kite, mock
	FallbackPrice float64       `mapstructure:"fallback_price"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	KiteExchange  string        `mapstructure:"kite_exchange"`

	// A provider failing BreakerThreshold times in a row is skipped for BreakerCooldown.
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`

	// AlphaVantagePerMinute caps Alpha Vantage requests; 0 disables the cap.
	AlphaVantagePerMinute int `mapstructure:"alphavantage_per_minute"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	Currency     string `mapstructure:"currency"`
}

// Credentials holds API credentials.
type Credentials struct {
	AlphaVantage AlphaVantageCredentials `mapstructure:"alphavantage"`
	Kite         KiteCredentials         `mapstructure:"kite"`
}

// AlphaVantageCredentials holds Alpha Vantage API credentials.
type AlphaVantageCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// KiteCredentials holds Zerodha Kite Connect credentials.
type KiteCredentials struct {
	APIKey      string `mapstructure:"api_key"`
	AccessToken string `mapstructure:"access_token"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/options-analyzer"
	}
	return filepath.Join(home, ".config", "options-analyzer")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "analyzer.db")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	th := advisor.DefaultThresholds()
	roll := advisor.DefaultRollConfig()
	sc := scenario.DefaultConfig()
	lg := logging.DefaultLogConfig()

	v.SetDefault("analysis.default_move", sc.DefaultMove)
	v.SetDefault("analysis.scan_low", sc.ScanLow)
	v.SetDefault("analysis.scan_high", sc.ScanHigh)
	v.SetDefault("analysis.close_loss_percent", th.CloseLossPercent)
	v.SetDefault("analysis.roll_loss_percent", th.RollLossPercent)
	v.SetDefault("analysis.take_profit_percent", th.TakeProfitPercent)
	v.SetDefault("analysis.partial_close_percent", th.PartialClosePercent)
	v.SetDefault("analysis.strike_width", th.StrikeWidth)
	v.SetDefault("analysis.roll_increment", roll.StrikeIncrement)
	v.SetDefault("analysis.roll_credit_factor", roll.CreditFactor)
	v.SetDefault("analysis.roll_expirations", roll.Expirations)

	v.SetDefault("quotes.providers", []string{"alphavantage", "mock"})
	v.SetDefault("quotes.fallback_price", 150.0)
	v.SetDefault("quotes.timeout", 10*time.Second)
	v.SetDefault("quotes.retry_attempts", 2)
	v.SetDefault("quotes.kite_exchange", "NSE")
	v.SetDefault("quotes.breaker_threshold", 3)
	v.SetDefault("quotes.breaker_cooldown", 30*time.Second)
	v.SetDefault("quotes.alphavantage_per_minute", 5)
	v.SetDefault("store.driver", StoreSQLite)

	v.SetDefault("logging.level", lg.Level)
	v.SetDefault("logging.console", lg.Console)
	v.SetDefault("logging.file", lg.File)
	v.SetDefault("logging.file_path", lg.FilePath)
	v.SetDefault("logging.max_size", lg.MaxSize)
	v.SetDefault("logging.max_backups", lg.MaxBackups)
	v.SetDefault("logging.max_age", lg.MaxAge)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.currency", "$")
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Config file not found, write the template and continue on defaults
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPHA_VANTAGE_KEY"); v != "" {
		cfg.Credentials.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Credentials.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		cfg.Credentials.Kite.AccessToken = v
	}
	if v := os.Getenv("OPTIONS_ANALYZER_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("OPTIONS_ANALYZER_DSN"); v != "" {
		cfg.Store.DSN = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.DefaultMove <= 0 || a.DefaultMove >= 1 {
		return fmt.Errorf("default_move must be between 0 and 1")
	}
	if a.ScanLow <= 0 || a.ScanHigh <= a.ScanLow {
		return fmt.Errorf("scan_low must be positive and below scan_high")
	}
	for name, pct := range map[string]float64{
		"close_loss_percent":    a.CloseLossPercent,
		"roll_loss_percent":     a.RollLossPercent,
		"take_profit_percent":   a.TakeProfitPercent,
		"partial_close_percent": a.PartialClosePercent,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}
	if a.RollLossPercent > a.CloseLossPercent {
		return fmt.Errorf("roll_loss_percent must not exceed close_loss_percent")
	}
	if a.PartialClosePercent > a.TakeProfitPercent {
		return fmt.Errorf("partial_close_percent must not exceed take_profit_percent")
	}
	if a.StrikeWidth <= 0 || a.RollIncrement <= 0 {
		return fmt.Errorf("strike_width and roll_increment must be positive")
	}

	if c.Quotes.FallbackPrice <= 0 {
		return fmt.Errorf("fallback_price must be positive")
	}
	if c.Quotes.BreakerThreshold < 1 {
		return fmt.Errorf("breaker_threshold must be at least 1")
	}
	if c.Quotes.AlphaVantagePerMinute < 0 {
		return fmt.Errorf("alphavantage_per_minute must not be negative")
	}
	switch c.Store.Driver {
	case StoreSQLite:
	case StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver postgres needs a dsn")
		}
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}

	for _, p := range c.Quotes.Providers {
		switch p {
		case ProviderAlphaVantage, ProviderKite, ProviderMock:
		default:
			return fmt.Errorf("unknown quote provider: %s", p)
		}
	}

	return nil
}

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Quote provider names.
const (
	ProviderAlphaVantage = "alphavantage"
	ProviderKite         = "kite"
	ProviderMock         = "mock"
)

// Thresholds returns the advisor thresholds.
func (c *Config) Thresholds() advisor.Thresholds {
	return advisor.Thresholds{
		CloseLossPercent:    c.Analysis.CloseLossPercent,
		RollLossPercent:     c.Analysis.RollLossPercent,
		TakeProfitPercent:   c.Analysis.TakeProfitPercent,
		PartialClosePercent: c.Analysis.PartialClosePercent,
		StrikeWidth:         c.Analysis.StrikeWidth,
	}
}

// Roll returns the roll suggestion configuration.
func (c *Config) Roll() advisor.RollConfig {
	return advisor.RollConfig{
		StrikeIncrement: c.Analysis.RollIncrement,
		CreditFactor:    c.Analysis.RollCreditFactor,
		Expirations:     c.Analysis.RollExpirations,
	}
}

// Scenario returns the evaluator configuration.
func (c *Config) Scenario() scenario.Config {
	return scenario.Config{
		DefaultMove: c.Analysis.DefaultMove,
		ScanLow:     c.Analysis.ScanLow,
		ScanHigh:    c.Analysis.ScanHigh,
	}
}
