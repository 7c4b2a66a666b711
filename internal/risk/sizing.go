// Package risk sizes candidate positions and aggregates portfolio-level
// exposure for the arbitrage engine (§4.6).
package risk

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/archon-quant/synthalpha/internal/config"
)

// maxKellyFraction caps the Kelly criterion's raw output; beyond this point
// full Kelly sizing is too aggressive for a multi-leg arbitrage book.
const maxKellyFraction = 0.25

// SizingInput carries everything the candidate sizers need for a single
// opportunity. WinRate/AvgWin/AvgLoss describe the strategy's historical
// edge; PerUnitVaR/InstrumentVol feed the VaR-bounded and vol-targeted
// candidates; LegVolatilities feeds the risk-parity candidate. LegWeights
// is not read by any candidate.
type SizingInput struct {
	PortfolioValue   float64
	EntryPrice       float64
	WinRate          float64
	AvgWin           float64
	AvgLoss          float64
	PerUnitVaR       float64
	TargetVolatility float64
	InstrumentVol    float64
	BaseSize         float64
	LegVolatilities  []float64
	LegWeights       []float64
	CurrentLeverage  float64
	CorrelationRisk  float64
}

// kellySize implements f* = (p*b - q)/b clipped to [0, maxKellyFraction],
// size = f* * portfolio_value / entry_price.
func kellySize(in SizingInput) float64 {
	if in.AvgLoss <= 0 || in.EntryPrice <= 0 {
		return 0
	}
	b := in.AvgWin / in.AvgLoss
	if b <= 0 {
		return 0
	}
	q := 1 - in.WinRate
	f := (in.WinRate*b - q) / b
	if f < 0 {
		f = 0
	}
	if f > maxKellyFraction {
		f = maxKellyFraction
	}
	return f * in.PortfolioValue / in.EntryPrice
}

// varBoundedSize solves size*per_unit_VaR <= max_individual_VaR*portfolio_value
// for the largest admissible size.
func varBoundedSize(in SizingInput, maxIndividualVaR float64) float64 {
	if in.PerUnitVaR <= 0 {
		return math.Inf(1)
	}
	return maxIndividualVaR * in.PortfolioValue / in.PerUnitVaR
}

// volTargetedSize implements size = base * (target_vol / instrument_vol).
func volTargetedSize(in SizingInput) float64 {
	if in.InstrumentVol <= 0 {
		return in.BaseSize
	}
	return in.BaseSize * (in.TargetVolatility / in.InstrumentVol)
}

// riskParitySize allocates size so each leg contributes equally to
// portfolio variance: size_i proportional to 1/vol_i, normalized against the
// base size. For a single-leg package this degenerates to base size.
func riskParitySize(in SizingInput) float64 {
	if len(in.LegVolatilities) == 0 {
		return in.BaseSize
	}
	inverseSum := 0.0
	for _, v := range in.LegVolatilities {
		if v <= 0 {
			continue
		}
		inverseSum += 1 / v
	}
	if inverseSum == 0 {
		return in.BaseSize
	}
	avgInverse := inverseSum / float64(len(in.LegVolatilities))
	return in.BaseSize * avgInverse * in.LegVolatilities[0]
}

// Size returns the final candidate size after taking the minimum of the four
// §4.6 candidates and applying leverage and correlation post-adjustments.
func Size(in SizingInput, params config.RiskParameters) float64 {
	candidates := []float64{
		kellySize(in),
		varBoundedSize(in, params.MaxIndividualVaR),
		volTargetedSize(in),
		riskParitySize(in),
	}

	size := candidates[0]
	for _, c := range candidates[1:] {
		if c < size {
			size = c
		}
	}
	if size < 0 {
		size = 0
	}

	size = applyLeverageCap(size, in, params)
	size = applyCorrelationScaling(size, in, params)

	log.Debug().
		Floats64("candidates", candidates).
		Float64("final_size", size).
		Msg("position size computed")

	return size
}

// applyLeverageCap scales size down when the resulting notional would push
// current leverage past max_leverage.
func applyLeverageCap(size float64, in SizingInput, params config.RiskParameters) float64 {
	if params.MaxLeverage <= 0 || in.CurrentLeverage <= params.MaxLeverage {
		return size
	}
	scale := params.MaxLeverage / in.CurrentLeverage
	return size * scale
}

// applyCorrelationScaling implements scale = 1 - correlation_exposure/max_correlation.
func applyCorrelationScaling(size float64, in SizingInput, params config.RiskParameters) float64 {
	if params.MaxCorrelationRisk <= 0 {
		return size
	}
	scale := 1 - in.CorrelationRisk/params.MaxCorrelationRisk
	if scale < 0 {
		scale = 0
	}
	if scale > 1 {
		scale = 1
	}
	return size * scale
}
