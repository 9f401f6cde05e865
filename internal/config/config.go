// Package config defines all configuration for the grid market-making bot.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// the identity key overridable via the GRID_IDENTITY_KEY environment
// variable, keeping the signing secret out of the checked-in file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"gridmm/internal/signer"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	API       APIConfig       `mapstructure:"api"`
	Market    MarketConfig    `mapstructure:"market"`
	Strategy  GridConfig      `mapstructure:"strategy"`
	Regime    RegimeConfig    `mapstructure:"regime"`
	Indicator IndicatorConfig `mapstructure:"indicator"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// IdentityConfig holds the signing key used for ensure_session and the
// session lifetime/renewal attributes of the session state machine.
type IdentityConfig struct {
	IdentityKeyBase58         string `mapstructure:"identity_key"`
	SessionLifetimeSeconds    int    `mapstructure:"session_lifetime_seconds"`
	SessionRenewBeforeSeconds int    `mapstructure:"session_renew_before_seconds"`
}

// APIConfig holds the venue's REST base URL and optional WS push feed URL.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	WSURL   string `mapstructure:"ws_url"`
}

// MarketConfig binds the bot to one instrument.
type MarketConfig struct {
	Symbol   string `mapstructure:"symbol"`
	MarketID string `mapstructure:"market_id"`
}

// GridConfig tunes the grid/ladder controller.
type GridConfig struct {
	TotalOrders          int             `mapstructure:"total_orders"`
	WindowPercent        float64         `mapstructure:"window_percent"`
	GridSpacing          decimal.Decimal `mapstructure:"grid_spacing"`
	SafeGap              decimal.Decimal `mapstructure:"safe_gap"`
	OrderSize            decimal.Decimal `mapstructure:"order_size"`
	MaxMultiplier        float64         `mapstructure:"max_multiplier"`
	TickSize             decimal.Decimal `mapstructure:"tick_size"`
	CycleIntervalSeconds int             `mapstructure:"cycle_interval_seconds"`
}

// RegimeConfig tunes the risk/regime gate.
type RegimeConfig struct {
	RSIMin            float64 `mapstructure:"rsi_min"`
	RSIMax            float64 `mapstructure:"rsi_max"`
	ADXTrendThreshold float64 `mapstructure:"adx_trend_threshold"`
	ADXStrongTrend    float64 `mapstructure:"adx_strong_trend"`
	CooldownMinutes   int     `mapstructure:"cooldown_minutes"`
}

// IndicatorConfig binds the indicator engine to a candle feed. BaseURL
// falls back to api.base_url when empty — the venue is assumed to serve
// candles unless a distinct data provider is configured.
type IndicatorConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Symbol    string `mapstructure:"symbol"`
	Timeframe string `mapstructure:"timeframe"`
	Period    int    `mapstructure:"period"`
}

// RiskConfig tunes the supervisor's network timeouts, back-off, and
// shutdown flattening behavior.
type RiskConfig struct {
	FlattenOnShutdown     bool `mapstructure:"flatten_on_shutdown"`
	RequestTimeoutSeconds int  `mapstructure:"request_timeout_seconds"`
	BackoffSeconds        int  `mapstructure:"backoff_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with an env var override for the
// identity key.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("GRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("GRID_IDENTITY_KEY"); key != "" {
		cfg.Identity.IdentityKeyBase58 = key
	}
	if os.Getenv("GRID_DRY_RUN") == "true" || os.Getenv("GRID_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("identity.session_lifetime_seconds", 3600)
	v.SetDefault("identity.session_renew_before_seconds", 120)
	v.SetDefault("regime.adx_trend_threshold", 25.0)
	v.SetDefault("regime.adx_strong_trend", 30.0)
	v.SetDefault("regime.cooldown_minutes", 15)
	v.SetDefault("indicator.period", 14)
	v.SetDefault("strategy.cycle_interval_seconds", 5)
	v.SetDefault("risk.request_timeout_seconds", 10)
	v.SetDefault("risk.backoff_seconds", 60)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Identity.IdentityKeyBase58 == "" {
		return fmt.Errorf("identity.identity_key is required (set GRID_IDENTITY_KEY)")
	}
	if _, err := signer.FromBase58(c.Identity.IdentityKeyBase58); err != nil {
		return fmt.Errorf("identity.identity_key must be a base58-encoded secp256k1 key: %w", err)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Strategy.TotalOrders <= 0 {
		return fmt.Errorf("strategy.total_orders must be > 0")
	}
	if c.Strategy.OrderSize.IsZero() || c.Strategy.OrderSize.IsNegative() {
		return fmt.Errorf("strategy.order_size must be > 0")
	}
	if c.Strategy.MaxMultiplier <= 0 {
		return fmt.Errorf("strategy.max_multiplier must be > 0")
	}
	if c.Strategy.WindowPercent <= 0 || c.Strategy.WindowPercent >= 1 {
		return fmt.Errorf("strategy.window_percent must be in (0, 1)")
	}
	if c.Regime.RSIMin >= c.Regime.RSIMax {
		return fmt.Errorf("regime.rsi_min must be < regime.rsi_max")
	}
	if c.Regime.ADXTrendThreshold >= c.Regime.ADXStrongTrend {
		return fmt.Errorf("regime.adx_trend_threshold must be < regime.adx_strong_trend")
	}
	return nil
}

// RequestTimeout returns the configured per-call network deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Risk.RequestTimeoutSeconds) * time.Second
}

// Backoff returns the configured supervisor back-off interval.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.Risk.BackoffSeconds) * time.Second
}

// CycleInterval returns the configured tick period.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Strategy.CycleIntervalSeconds) * time.Second
}

// SessionLifetime returns the configured session lifetime.
func (c *Config) SessionLifetime() time.Duration {
	return time.Duration(c.Identity.SessionLifetimeSeconds) * time.Second
}

// SessionRenewBefore returns the configured renewal lead time.
func (c *Config) SessionRenewBefore() time.Duration {
	return time.Duration(c.Identity.SessionRenewBeforeSeconds) * time.Second
}

// CooldownDuration returns the configured regime cool-down length.
func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.Regime.CooldownMinutes) * time.Minute
}
