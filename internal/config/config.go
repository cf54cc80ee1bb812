// Package config provides configuration management for the fee calculator.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	apperrors "nse-fees/internal/errors"
	"nse-fees/internal/fees"
	"nse-fees/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. NSEFEES_FEES_VAT_RATE.
const EnvPrefix = "NSEFEES"

// Data source kinds.
const (
	SourceEmbedded = "embedded"
	SourceFiles    = "files"
	SourceSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Fees     FeesConfig     `mapstructure:"fees"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Verdict  VerdictConfig  `mapstructure:"verdict"`
	Data     DataConfig     `mapstructure:"data"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	UI       UIConfig       `mapstructure:"ui"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// Path is the file the configuration was read from.
	Path string `mapstructure:"-"`
}

// FeesConfig holds the statutory fee schedule.
type FeesConfig struct {
	VATRate     float64         `mapstructure:"vat_rate"`
	NSELevyRate float64         `mapstructure:"nse_levy_rate"`
	CMALevyRate float64         `mapstructure:"cma_levy_rate"`
	CDSCFeeRate float64         `mapstructure:"cdsc_fee_rate"`
	ICFLevyRate float64         `mapstructure:"icf_levy_rate"`
	StampDuty   StampDutyConfig `mapstructure:"stamp_duty"`
}

// StampDutyConfig holds the buy-side stamp duty rule.
type StampDutyConfig struct {
	Fixed   float64 `mapstructure:"fixed"`
	Rate    float64 `mapstructure:"rate"`
	Minimum float64 `mapstructure:"minimum"`
}

// AnalysisConfig holds sweet-spot and alert settings.
type AnalysisConfig struct {
	SweetSpotThresholdPct float64 `mapstructure:"sweet_spot_threshold_pct"`
	MaxSweetSpotQuantity  int64   `mapstructure:"max_sweet_spot_quantity"`
	IntermediateFraction  float64 `mapstructure:"intermediate_fraction"`
	StampDutyAlertPct     float64 `mapstructure:"stamp_duty_alert_pct"`
	StaleAfterDays        int     `mapstructure:"stale_after_days"`
}

// VerdictConfig optionally overrides the verdict tier table.
type VerdictConfig struct {
	Tiers []TierConfig `mapstructure:"tiers"`
}

// TierConfig is one verdict tier.
type TierConfig struct {
	Name      string  `mapstructure:"name"`
	MaxFeePct float64 `mapstructure:"max_fee_pct"`
	Emoji     string  `mapstructure:"emoji"`
	Title     string  `mapstructure:"title"`
	Message   string  `mapstructure:"message"`
}

// DataConfig selects where reference data comes from.
type DataConfig struct {
	Source        string `mapstructure:"source"` // embedded, files, sqlite
	Dir           string `mapstructure:"dir"`
	DBPath        string `mapstructure:"db_path"`
	DefaultBroker string `mapstructure:"default_broker"`
}

// RefreshConfig configures the price feed.
type RefreshConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	Account string        `mapstructure:"account"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	ShareBaseURL string `mapstructure:"share_base_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/nse-fees"
	}
	return filepath.Join(home, ".config", "nse-fees")
}

// DefaultConfigPath returns the default configuration file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// LoadDotEnv loads .env files into the environment. Missing files are
// ignored and variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", filepath.Join(DefaultConfigDir(), ".env")}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from path. If path is empty the default path is
// used. A missing file is created from the template and defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	v := newViper()
	v.SetConfigFile(path)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createTemplateConfig(path); err != nil {
			return nil, err
		}
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrConfigInvalid, path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", apperrors.ErrConfigInvalid, path, err)
	}
	cfg.Path = path

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied, without touching the filesystem.
func Default() *Config {
	cfg := &Config{}
	// Unmarshal of defaults alone cannot fail.
	_ = newViper().Unmarshal(cfg)
	applyEnvOverrides(cfg)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	dir := DefaultConfigDir()
	sched := fees.DefaultSchedule()
	def := fees.DefaultConfig()

	v.SetDefault("fees.vat_rate", sched.VATRate.InexactFloat64())
	v.SetDefault("fees.nse_levy_rate", sched.NSELevyRate.InexactFloat64())
	v.SetDefault("fees.cma_levy_rate", sched.CMALevyRate.InexactFloat64())
	v.SetDefault("fees.cdsc_fee_rate", sched.CDSCFeeRate.InexactFloat64())
	v.SetDefault("fees.icf_levy_rate", sched.ICFLevyRate.InexactFloat64())
	v.SetDefault("fees.stamp_duty.fixed", sched.StampDuty.Fixed.InexactFloat64())
	v.SetDefault("fees.stamp_duty.rate", sched.StampDuty.Rate.InexactFloat64())
	v.SetDefault("fees.stamp_duty.minimum", sched.StampDuty.Minimum.InexactFloat64())

	v.SetDefault("analysis.sweet_spot_threshold_pct", def.SweetSpotThresholdPct.InexactFloat64())
	v.SetDefault("analysis.max_sweet_spot_quantity", def.MaxSweetSpotQuantity)
	v.SetDefault("analysis.intermediate_fraction", def.IntermediateFraction.InexactFloat64())
	v.SetDefault("analysis.stamp_duty_alert_pct", def.StampDutyAlertPct.InexactFloat64())
	v.SetDefault("analysis.stale_after_days", 7)

	v.SetDefault("data.source", SourceEmbedded)
	v.SetDefault("data.dir", filepath.Join(dir, "data"))
	v.SetDefault("data.db_path", filepath.Join(dir, "nsefees.db"))
	v.SetDefault("data.default_broker", "")

	v.SetDefault("refresh.api_url", "https://deveintapps.com/nseticker/api/v1/ticker")
	v.SetDefault("refresh.account", "KE3000009674")
	v.SetDefault("refresh.timeout", "30s")
	v.SetDefault("refresh.retries", 3)

	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.share_base_url", "https://nsefees.co.ke/")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(dir, "logs", "nsefees.log"))
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 30)
}

func applyEnvOverrides(cfg *Config) {
	// https://no-color.org
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		cfg.UI.ColorEnabled = false
	}
	cfg.Data.Dir = expandHome(cfg.Data.Dir)
	cfg.Data.DBPath = expandHome(cfg.Data.DBPath)
	cfg.Logging.FilePath = expandHome(cfg.Logging.FilePath)
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.FeesConfig().Validate(); err != nil {
		return err
	}

	switch c.Data.Source {
	case SourceEmbedded, SourceFiles, SourceSQLite:
	default:
		return fmt.Errorf("%w: invalid data source: %s (must be 'embedded', 'files' or 'sqlite')", apperrors.ErrConfigInvalid, c.Data.Source)
	}
	if c.Data.Source == SourceFiles && c.Data.Dir == "" {
		return fmt.Errorf("%w: data.dir is required for the files source", apperrors.ErrConfigInvalid)
	}
	if c.Data.Source == SourceSQLite && c.Data.DBPath == "" {
		return fmt.Errorf("%w: data.db_path is required for the sqlite source", apperrors.ErrConfigInvalid)
	}

	if c.Analysis.StaleAfterDays < 0 {
		return fmt.Errorf("%w: stale_after_days must be non-negative", apperrors.ErrConfigInvalid)
	}
	if c.Refresh.Retries < 0 {
		return fmt.Errorf("%w: refresh.retries must be non-negative", apperrors.ErrConfigInvalid)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: invalid log level: %s", apperrors.ErrConfigInvalid, c.Logging.Level)
	}
	return nil
}

// FeesConfig converts the configuration into an engine configuration.
func (c *Config) FeesConfig() fees.Config {
	cfg := fees.Config{
		Schedule: fees.Schedule{
			VATRate:     decimal.NewFromFloat(c.Fees.VATRate),
			NSELevyRate: decimal.NewFromFloat(c.Fees.NSELevyRate),
			CMALevyRate: decimal.NewFromFloat(c.Fees.CMALevyRate),
			CDSCFeeRate: decimal.NewFromFloat(c.Fees.CDSCFeeRate),
			ICFLevyRate: decimal.NewFromFloat(c.Fees.ICFLevyRate),
			StampDuty: fees.StampDutyRule{
				Fixed:   decimal.NewFromFloat(c.Fees.StampDuty.Fixed),
				Rate:    decimal.NewFromFloat(c.Fees.StampDuty.Rate),
				Minimum: decimal.NewFromFloat(c.Fees.StampDuty.Minimum),
			},
		},
		Tiers:                 fees.DefaultTiers(),
		SweetSpotThresholdPct: decimal.NewFromFloat(c.Analysis.SweetSpotThresholdPct),
		MaxSweetSpotQuantity:  c.Analysis.MaxSweetSpotQuantity,
		IntermediateFraction:  decimal.NewFromFloat(c.Analysis.IntermediateFraction),
		StampDutyAlertPct:     decimal.NewFromFloat(c.Analysis.StampDutyAlertPct),
	}

	if len(c.Verdict.Tiers) > 0 {
		cfg.Tiers = make([]fees.Tier, len(c.Verdict.Tiers))
		for i, t := range c.Verdict.Tiers {
			cfg.Tiers[i] = fees.Tier{
				Name:      t.Name,
				MaxFeePct: decimal.NewFromFloat(t.MaxFeePct),
				Emoji:     t.Emoji,
				Class:     t.Name,
				Title:     t.Title,
				Message:   t.Message,
			}
		}
	}
	return cfg
}

// LogConfig converts the logging section into a logger configuration.
func (c *Config) LogConfig(debug bool) logging.LogConfig {
	lc := logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    true,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAgeDays,
	}
	if debug {
		lc.Level = "debug"
	}
	return lc
}

// StaleAfter returns the price staleness window.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Analysis.StaleAfterDays) * 24 * time.Hour
}
