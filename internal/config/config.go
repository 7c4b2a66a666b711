// Package config loads and validates the engine's layered configuration and
// initializes the global structured logger.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration tree (§6 of the design
// spec: DetectionParameters, ArbitrageParameters, RiskParameters).
type Config struct {
	App        AppConfig           `mapstructure:"app"`
	Feed       FeedConfig          `mapstructure:"feed"`
	Detection  DetectionParameters `mapstructure:"detection"`
	Arbitrage  ArbitrageParameters `mapstructure:"arbitrage"`
	Risk       RiskParameters      `mapstructure:"risk"`
	Monitoring MonitoringConfig    `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// FeedConfig contains market-data ingest settings (§4.1, §6).
type FeedConfig struct {
	StalenessBudget time.Duration     `mapstructure:"staleness_budget"`
	TickInterval    time.Duration     `mapstructure:"tick_interval"`
	Exchanges       []string          `mapstructure:"exchanges"`
	NATSURL         string            `mapstructure:"nats_url"`
	RateLimitPerSec map[string]string `mapstructure:"rate_limit_per_sec"`
}

// DetectionParameters are the shared mispricing-detector thresholds (§4.3).
type DetectionParameters struct {
	MinDeviationThreshold float64       `mapstructure:"min_deviation_threshold"`
	MinZScore             float64       `mapstructure:"min_z_score"`
	MinConfidenceLevel    float64       `mapstructure:"min_confidence_level"`
	MaxSpreadRatio        float64       `mapstructure:"max_spread_ratio"`
	MinObservationWindow  int           `mapstructure:"min_observation_window"`
	VolatilityThreshold   float64       `mapstructure:"volatility_threshold"`
	LiquidityThreshold    float64       `mapstructure:"liquidity_threshold"`
	MaxOpportunityTTL     time.Duration `mapstructure:"max_opportunity_duration"`
}

// DefaultDetectionParameters returns the defaults named in §4.3.
func DefaultDetectionParameters() DetectionParameters {
	return DetectionParameters{
		MinDeviationThreshold: 0.005,
		MinZScore:             2.0,
		MinConfidenceLevel:    0.8,
		MaxSpreadRatio:        0.02,
		MinObservationWindow:  50,
		VolatilityThreshold:   0.15,
		LiquidityThreshold:    1000,
		MaxOpportunityTTL:     30 * time.Minute,
	}
}

// ArbitrageParameters gate opportunity construction and validation (§4.5, §6).
type ArbitrageParameters struct {
	MinProfitThreshold     float64       `mapstructure:"min_profit_threshold"`
	MaxRiskPerTrade        float64       `mapstructure:"max_risk_per_trade"`
	MaxCorrelationRisk     float64       `mapstructure:"max_correlation_risk"`
	MaxMarketImpact        float64       `mapstructure:"max_market_impact"`
	MaxSlippage            float64       `mapstructure:"max_slippage"`
	MaxPositionSize        float64       `mapstructure:"max_position_size"`
	MaxHoldingPeriod       time.Duration `mapstructure:"max_holding_period"`
	MinLiquidityRequirement float64      `mapstructure:"min_liquidity_requirement"`
	ConfidenceThreshold    float64       `mapstructure:"confidence_threshold"`
	ExecutionHeadroom      time.Duration `mapstructure:"execution_headroom"`
}

// DefaultArbitrageParameters returns conservative defaults.
func DefaultArbitrageParameters() ArbitrageParameters {
	return ArbitrageParameters{
		MinProfitThreshold:      0.001,
		MaxRiskPerTrade:         0.02,
		MaxCorrelationRisk:      0.3,
		MaxMarketImpact:         0.002,
		MaxSlippage:             0.003,
		MaxPositionSize:         1_000_000,
		MaxHoldingPeriod:        30 * time.Minute,
		MinLiquidityRequirement: 1000,
		ConfidenceThreshold:     0.8,
		ExecutionHeadroom:       5 * time.Minute,
	}
}

// RiskParameters bound portfolio-level exposure (§6).
type RiskParameters struct {
	MaxPositionSizePercentage float64 `mapstructure:"max_position_size_percentage"`
	MaxPortfolioVaR           float64 `mapstructure:"max_portfolio_var"`
	MaxIndividualVaR          float64 `mapstructure:"max_individual_var"`
	MaxCorrelationRisk        float64 `mapstructure:"max_correlation_risk"`
	MaxLeverage               float64 `mapstructure:"max_leverage"`
	MarginRequirementMultiple float64 `mapstructure:"margin_requirement_multiplier"`
	StopLossPercentage        float64 `mapstructure:"stop_loss_percentage"`
	TakeProfitPercentage      float64 `mapstructure:"take_profit_percentage"`
	MaxDrawdownThreshold      float64 `mapstructure:"max_drawdown_threshold"`
	LiquidityRequirement      float64 `mapstructure:"liquidity_requirement"`
}

// DefaultRiskParameters returns the defaults named in §6.
func DefaultRiskParameters() RiskParameters {
	return RiskParameters{
		MaxPositionSizePercentage: 0.05,
		MaxPortfolioVaR:           0.02,
		MaxIndividualVaR:          0.01,
		MaxCorrelationRisk:        0.3,
		MaxLeverage:               3.0,
		MarginRequirementMultiple: 1.2,
		StopLossPercentage:        0.05,
		TakeProfitPercentage:      0.15,
		MaxDrawdownThreshold:      0.1,
		LiquidityRequirement:      0.8,
	}
}

// MonitoringConfig contains metrics server settings.
type MonitoringConfig struct {
	MetricsPort int `mapstructure:"metrics_port"`
}

// Default returns a fully-populated Config using the spec's defaults,
// suitable as a base before layering file/env overrides on top.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:        "synthalpha",
			Environment: "development",
			LogLevel:    "info",
			LogFormat:   "json",
		},
		Feed: FeedConfig{
			StalenessBudget: 500 * time.Millisecond,
			TickInterval:    100 * time.Millisecond,
			Exchanges:       []string{"binance"},
			NATSURL:         "nats://127.0.0.1:4222",
		},
		Detection: DefaultDetectionParameters(),
		Arbitrage: DefaultArbitrageParameters(),
		Risk:      DefaultRiskParameters(),
		Monitoring: MonitoringConfig{
			MetricsPort: 9090,
		},
	}
}

// Load reads configuration from the given file path (if non-empty), layered
// on top of Default(). An empty path skips the file; a path that cannot be
// read is an error. Environment variables prefixed with SYNTHALPHA_ are
// looked up through viper's AutomaticEnv with no key replacer, so they are
// consulted only for keys the file itself sets, and only under their dotted
// names (e.g. SYNTHALPHA_FEED.TICK_INTERVAL); with no file, no environment
// variable is applied.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("SYNTHALPHA")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate rejects configuration that would make the pipeline meaningless.
// Startup-time configuration errors are the only fatal error class (§7).
func (c Config) Validate() error {
	if c.Detection.MinObservationWindow < 2 {
		return fmt.Errorf("config: detection.min_observation_window must be >= 2")
	}
	if c.Detection.MinZScore <= 0 {
		return fmt.Errorf("config: detection.min_z_score must be > 0")
	}
	if c.Arbitrage.MaxPositionSize <= 0 {
		return fmt.Errorf("config: arbitrage.max_position_size must be > 0")
	}
	if c.Risk.MaxLeverage <= 0 {
		return fmt.Errorf("config: risk.max_leverage must be > 0")
	}
	if c.Feed.StalenessBudget <= 0 {
		return fmt.Errorf("config: feed.staleness_budget must be > 0")
	}
	return nil
}
