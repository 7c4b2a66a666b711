package strategy

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError describes a single invalid field in a parameter bundle.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every ValidationError found during Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// ErrInvalidSchema is returned when a bundle carries an unsupported schema version.
var ErrInvalidSchema = errors.New("strategy: invalid or unsupported schema version")

// ErrMissingRequiredField is returned when a required field is absent.
var ErrMissingRequiredField = errors.New("strategy: missing required field")

// SupportedSchemaVersions lists the schema versions Validate accepts.
var SupportedSchemaVersions = []string{"1.0"}

// Validate performs full validation of a parameter bundle, returning every
// issue found rather than stopping at the first.
func (b *ParameterBundle) Validate() error {
	var errs ValidationErrors
	errs = append(errs, b.validateMetadata()...)
	errs = append(errs, b.validateDetection()...)
	errs = append(errs, b.validateArbitrage()...)
	errs = append(errs, b.validateRisk()...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateQuick performs the minimal checks needed before accepting an
// imported bundle, without the cross-field cost of Validate.
func (b *ParameterBundle) ValidateQuick() error {
	if b.Metadata.SchemaVersion == "" {
		return fmt.Errorf("%w: metadata.schema_version", ErrMissingRequiredField)
	}
	if !isVersionSupported(b.Metadata.SchemaVersion) {
		return ErrInvalidSchema
	}
	if b.Metadata.Name == "" {
		return fmt.Errorf("%w: metadata.name", ErrMissingRequiredField)
	}
	return nil
}

func (b *ParameterBundle) validateMetadata() ValidationErrors {
	var errs ValidationErrors
	if b.Metadata.SchemaVersion == "" {
		errs = append(errs, ValidationError{"metadata.schema_version", "schema version is required"})
	} else if !isVersionSupported(b.Metadata.SchemaVersion) {
		errs = append(errs, ValidationError{"metadata.schema_version",
			fmt.Sprintf("unsupported schema version %s, supported: %v", b.Metadata.SchemaVersion, SupportedSchemaVersions)})
	}
	if b.Metadata.Name == "" {
		errs = append(errs, ValidationError{"metadata.name", "bundle name is required"})
	}
	if len(b.Metadata.Tags) > 20 {
		errs = append(errs, ValidationError{"metadata.tags", "maximum 20 tags allowed"})
	}
	return errs
}

func (b *ParameterBundle) validateDetection() ValidationErrors {
	var errs ValidationErrors
	d := b.Detection
	if d.MinDeviationThreshold < 0 {
		errs = append(errs, ValidationError{"detection.min_deviation_threshold", "must be non-negative"})
	}
	if d.MinZScore <= 0 {
		errs = append(errs, ValidationError{"detection.min_z_score", "must be positive"})
	}
	if d.MinConfidenceLevel < 0 || d.MinConfidenceLevel > 1 {
		errs = append(errs, ValidationError{"detection.min_confidence_level", "must be between 0 and 1"})
	}
	if d.MaxSpreadRatio < 0 {
		errs = append(errs, ValidationError{"detection.max_spread_ratio", "must be non-negative"})
	}
	if d.MinObservationWindow < 2 {
		errs = append(errs, ValidationError{"detection.min_observation_window", "must be at least 2"})
	}
	if d.VolatilityThreshold < 0 {
		errs = append(errs, ValidationError{"detection.volatility_threshold", "must be non-negative"})
	}
	if d.LiquidityThreshold < 0 {
		errs = append(errs, ValidationError{"detection.liquidity_threshold", "must be non-negative"})
	}
	if d.MaxOpportunityTTL <= 0 {
		errs = append(errs, ValidationError{"detection.max_opportunity_duration", "must be positive"})
	}
	return errs
}

func (b *ParameterBundle) validateArbitrage() ValidationErrors {
	var errs ValidationErrors
	a := b.Arbitrage
	if a.MinProfitThreshold < 0 {
		errs = append(errs, ValidationError{"arbitrage.min_profit_threshold", "must be non-negative"})
	}
	if a.MaxRiskPerTrade <= 0 || a.MaxRiskPerTrade > 1 {
		errs = append(errs, ValidationError{"arbitrage.max_risk_per_trade", "must be between 0 and 1"})
	}
	if a.MaxCorrelationRisk < 0 || a.MaxCorrelationRisk > 1 {
		errs = append(errs, ValidationError{"arbitrage.max_correlation_risk", "must be between 0 and 1"})
	}
	if a.MaxMarketImpact < 0 {
		errs = append(errs, ValidationError{"arbitrage.max_market_impact", "must be non-negative"})
	}
	if a.MaxSlippage < 0 {
		errs = append(errs, ValidationError{"arbitrage.max_slippage", "must be non-negative"})
	}
	if a.MaxPositionSize <= 0 {
		errs = append(errs, ValidationError{"arbitrage.max_position_size", "must be positive"})
	}
	if a.MaxHoldingPeriod <= 0 {
		errs = append(errs, ValidationError{"arbitrage.max_holding_period", "must be positive"})
	}
	if a.MinLiquidityRequirement < 0 {
		errs = append(errs, ValidationError{"arbitrage.min_liquidity_requirement", "must be non-negative"})
	}
	if a.ConfidenceThreshold < 0 || a.ConfidenceThreshold > 1 {
		errs = append(errs, ValidationError{"arbitrage.confidence_threshold", "must be between 0 and 1"})
	}
	if a.ExecutionHeadroom < 0 {
		errs = append(errs, ValidationError{"arbitrage.execution_headroom", "must be non-negative"})
	}
	return errs
}

func (b *ParameterBundle) validateRisk() ValidationErrors {
	var errs ValidationErrors
	r := b.Risk
	if r.MaxPositionSizePercentage <= 0 || r.MaxPositionSizePercentage > 1 {
		errs = append(errs, ValidationError{"risk.max_position_size_percentage", "must be between 0 and 1"})
	}
	if r.MaxPortfolioVaR <= 0 {
		errs = append(errs, ValidationError{"risk.max_portfolio_var", "must be positive"})
	}
	if r.MaxIndividualVaR <= 0 {
		errs = append(errs, ValidationError{"risk.max_individual_var", "must be positive"})
	}
	if r.MaxCorrelationRisk < 0 || r.MaxCorrelationRisk > 1 {
		errs = append(errs, ValidationError{"risk.max_correlation_risk", "must be between 0 and 1"})
	}
	if r.MaxLeverage <= 0 {
		errs = append(errs, ValidationError{"risk.max_leverage", "must be positive"})
	}
	if r.MarginRequirementMultiple < 1 {
		errs = append(errs, ValidationError{"risk.margin_requirement_multiplier", "must be at least 1"})
	}
	if r.StopLossPercentage < 0 || r.StopLossPercentage > 1 {
		errs = append(errs, ValidationError{"risk.stop_loss_percentage", "must be between 0 and 1"})
	}
	if r.TakeProfitPercentage < 0 {
		errs = append(errs, ValidationError{"risk.take_profit_percentage", "must be non-negative"})
	}
	if r.MaxDrawdownThreshold <= 0 || r.MaxDrawdownThreshold > 1 {
		errs = append(errs, ValidationError{"risk.max_drawdown_threshold", "must be between 0 and 1"})
	}
	if r.LiquidityRequirement < 0 || r.LiquidityRequirement > 1 {
		errs = append(errs, ValidationError{"risk.liquidity_requirement", "must be between 0 and 1"})
	}
	// Cross-field: individual VaR limit should not exceed the portfolio limit.
	if r.MaxIndividualVaR > r.MaxPortfolioVaR {
		errs = append(errs, ValidationError{"risk.max_individual_var",
			fmt.Sprintf("individual VaR limit (%.4f) should not exceed portfolio VaR limit (%.4f)", r.MaxIndividualVaR, r.MaxPortfolioVaR)})
	}
	return errs
}

func isVersionSupported(version string) bool {
	for _, v := range SupportedSchemaVersions {
		if v == version {
			return true
		}
	}
	return false
}
