package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/archon-quant/synthalpha/internal/config"
)

func TestKellySizeClipsToMaxFraction(t *testing.T) {
	in := SizingInput{
		PortfolioValue: 100_000,
		EntryPrice:     100,
		WinRate:        0.99,
		AvgWin:         10,
		AvgLoss:        1,
	}
	got := kellySize(in)
	assert.InDelta(t, maxKellyFraction*in.PortfolioValue/in.EntryPrice, got, 1e-9)
}

func TestKellySizeZeroWhenNoEdge(t *testing.T) {
	in := SizingInput{PortfolioValue: 100_000, EntryPrice: 100, WinRate: 0.1, AvgWin: 1, AvgLoss: 10}
	assert.Equal(t, 0.0, kellySize(in))
}

func TestVarBoundedSizeSolvesLinearConstraint(t *testing.T) {
	in := SizingInput{PortfolioValue: 10_000, PerUnitVaR: 2}
	got := varBoundedSize(in, 0.01)
	assert.InDelta(t, 0.01*10_000/2, got, 1e-9)
}

func TestVolTargetedSizeScalesByVolatilityRatio(t *testing.T) {
	in := SizingInput{BaseSize: 10, TargetVolatility: 0.1, InstrumentVol: 0.2}
	assert.InDelta(t, 5.0, volTargetedSize(in), 1e-9)
}

func TestSizeTakesMinimumOfCandidates(t *testing.T) {
	in := SizingInput{
		PortfolioValue:   100_000,
		EntryPrice:       100,
		WinRate:          0.6,
		AvgWin:           2,
		AvgLoss:          1,
		PerUnitVaR:       5,
		TargetVolatility: 0.1,
		InstrumentVol:    0.1,
		BaseSize:         1,
		LegVolatilities:  []float64{0.1},
	}
	params := config.DefaultRiskParameters()
	got := Size(in, params)
	assert.LessOrEqual(t, got, kellySize(in))
	assert.LessOrEqual(t, got, varBoundedSize(in, params.MaxIndividualVaR))
	assert.LessOrEqual(t, got, volTargetedSize(in))
}

func TestApplyLeverageCapScalesDownOverLimit(t *testing.T) {
	params := config.RiskParameters{MaxLeverage: 2}
	in := SizingInput{CurrentLeverage: 4}
	got := applyLeverageCap(10, in, params)
	assert.InDelta(t, 5, got, 1e-9)
}

func TestApplyCorrelationScalingReducesSizeNearLimit(t *testing.T) {
	params := config.RiskParameters{MaxCorrelationRisk: 0.3}
	in := SizingInput{CorrelationRisk: 0.3}
	got := applyCorrelationScaling(10, in, params)
	assert.InDelta(t, 0, got, 1e-9)
}
