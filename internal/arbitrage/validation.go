package arbitrage

import (
	"fmt"
	"time"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

// ValidationKind tags which validation check failed (§7:
// "ValidationFailure{liquidity|risk|timing|feasibility}").
type ValidationKind string

const (
	ValidationLiquidity   ValidationKind = "liquidity"
	ValidationRisk        ValidationKind = "risk"
	ValidationTiming      ValidationKind = "timing"
	ValidationFeasibility ValidationKind = "feasibility"
)

// ValidationFailureError reports a failed validation check. Opportunities
// that fail validation transition to Failed rather than Validated.
type ValidationFailureError struct {
	Kind   ValidationKind
	Reason string
}

func (e *ValidationFailureError) Error() string {
	return fmt.Sprintf("arbitrage: validation failure (%s): %s", e.Kind, e.Reason)
}

// Validate runs all four validation checks from §4.5 in order, returning
// the first failure. A nil result means the opportunity may transition to
// Validated.
func Validate(opp Opportunity, snapshot market.MarketSnapshot, params config.ArbitrageParameters, now time.Time) error {
	if err := validateLiquidity(opp, snapshot); err != nil {
		return err
	}
	if err := validateRiskLimits(opp, params); err != nil {
		return err
	}
	if err := validateTiming(opp, params, now); err != nil {
		return err
	}
	if err := validateFeasibility(opp, params); err != nil {
		return err
	}
	return nil
}

// validateLiquidity requires opposing-side depth at top-of-book to cover
// each leg's size.
func validateLiquidity(opp Opportunity, snapshot market.MarketSnapshot) error {
	for _, leg := range opp.Legs {
		depth, ok := snapshot.Depth[leg.InstrumentID]
		if !ok {
			return &ValidationFailureError{Kind: ValidationLiquidity, Reason: fmt.Sprintf("no depth for %s", leg.InstrumentID)}
		}
		opposing := opposingSide(leg.Side)
		available := depth.AvailableSize(opposing, leg.EntryPrice)
		if available < leg.Size {
			return &ValidationFailureError{
				Kind:   ValidationLiquidity,
				Reason: fmt.Sprintf("%s: available %.4f < required %.4f", leg.InstrumentID, available, leg.Size),
			}
		}
	}
	return nil
}

func opposingSide(s Side) market.TradeSide {
	if s == SideBid {
		return market.TradeSideSell
	}
	return market.TradeSideBuy
}

func validateRiskLimits(opp Opportunity, params config.ArbitrageParameters) error {
	if opp.TotalCost > 0 && opp.ExpectedProfit < params.MinProfitThreshold*opp.TotalCost {
		return &ValidationFailureError{Kind: ValidationRisk, Reason: "expected profit below min_profit_threshold * total_cost"}
	}
	if opp.TotalCost > 0 && opp.VaR > params.MaxRiskPerTrade*opp.TotalCost {
		return &ValidationFailureError{Kind: ValidationRisk, Reason: "VaR exceeds max_risk_per_trade * total_cost"}
	}
	if opp.CorrelationRisk > params.MaxCorrelationRisk {
		return &ValidationFailureError{Kind: ValidationRisk, Reason: "correlation risk exceeds max_correlation_risk"}
	}
	if opp.MarketImpact > params.MaxMarketImpact {
		return &ValidationFailureError{Kind: ValidationRisk, Reason: "market impact exceeds max_market_impact"}
	}
	return nil
}

func validateTiming(opp Opportunity, params config.ArbitrageParameters, now time.Time) error {
	if !now.Before(opp.ExpiryTime) {
		return &ValidationFailureError{Kind: ValidationTiming, Reason: "opportunity already expired"}
	}
	if opp.ExpiryTime.Sub(now) < params.ExecutionHeadroom {
		return &ValidationFailureError{Kind: ValidationTiming, Reason: "insufficient execution headroom before expiry"}
	}
	return nil
}

func validateFeasibility(opp Opportunity, params config.ArbitrageParameters) error {
	var positionSize float64
	for _, leg := range opp.Legs {
		positionSize += leg.Size * leg.EntryPrice
	}
	if positionSize > params.MaxPositionSize {
		return &ValidationFailureError{Kind: ValidationFeasibility, Reason: "total position size exceeds max_position_size"}
	}
	if opp.SlippageEstimate > params.MaxSlippage {
		return &ValidationFailureError{Kind: ValidationFeasibility, Reason: "slippage estimate exceeds max_slippage"}
	}
	return nil
}
