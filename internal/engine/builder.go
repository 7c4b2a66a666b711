package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/archon-quant/synthalpha/internal/arbitrage"
	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/metrics"
	"github.com/archon-quant/synthalpha/internal/mispricing"
	"github.com/archon-quant/synthalpha/internal/pricing"
	"github.com/archon-quant/synthalpha/internal/risk"
)

// defaultRiskFreeRate is the annualized rate the portfolio's Sharpe ratio
// is computed against, absent a configured risk-free rate source.
const defaultRiskFreeRate = 0.02

// SpotDerivativeSpec names one synthetic-vs-observed target to watch: the
// instrument whose market price is compared against a model's theoretical
// price computed from components. The perpetual-basis model prices every
// target, since funding-table parameters are the common case for a
// spot/perpetual pair.
type SpotDerivativeSpec struct {
	Target     market.InstrumentId
	Components []market.InstrumentId
}

// BasisPairSpec names one (spot, derivative) pair to track for basis. The
// perpetual-basis model supplies the pair's theoretical basis, per §4.2's
// spot_mid*(1+funding_rate) formula.
type BasisPairSpec struct {
	Spot       market.InstrumentId
	Derivative market.InstrumentId
}

// OptionsSpec names one quoted option contract to price through the
// options model's Black-Scholes surface (§4.2: "option/volatility
// surface"). SeedVol seeds the surface with a single ATM implied-vol point
// so the contract is priceable before any live vol observation arrives;
// a real vol feed would call OptionsModel.RegisterSurface.Set as quotes
// come in instead.
type OptionsSpec struct {
	Target       market.InstrumentId
	Underlying   market.InstrumentId
	Strike       float64
	Expiry       time.Time
	IsCall       bool
	RiskFreeRate float64
	SeedVol      float64
}

// Universe names the fixed instrument wiring the pricing models and
// detectors need: which spot-vs-derivative targets to price, which
// currency triangles to watch, which spot/derivative pairs to track for
// basis, and which option contracts to price off the vol surface. This is
// operator configuration, not market data — it changes only when the
// traded instrument set changes.
type Universe struct {
	SpotDerivative []SpotDerivativeSpec
	Triangles      []mispricing.Triangle
	BasisPairs     []BasisPairSpec
	Options        []OptionsSpec
}

// Pipeline bundles every component New's pipeline needs, plus the risk
// portfolio a caller should keep updating with fills/marks as positions
// from validated opportunities are worked.
type Pipeline struct {
	Aggregator *market.Aggregator
	Models     []pricing.Model
	Composite  *mispricing.Composite
	Sizer      *risk.Sizer
	Portfolio  *risk.Portfolio
	Arbitrage  *arbitrage.Engine
	Counters   *metrics.Counters
	Engine     *Engine
}

// BuildPipeline wires the six pricing models, the statistical, volatility
// and cross-exchange detectors (plus the spot-derivative, triangular and
// basis detectors when the universe lists targets for them), a risk-aware
// sizer, and the arbitrage engine into one Engine, per §4.4's
// pipeline and §E.5's package layout. reg is the Prometheus registerer for
// the engine's counters; pass prometheus.DefaultRegisterer in production
// and a fresh registry in tests.
func BuildPipeline(cfg config.Config, universe Universe, assumptions risk.Assumptions, reg prometheus.Registerer) *Pipeline {
	aggregator := market.NewAggregator(cfg.Feed.StalenessBudget)

	corr := pricing.NewCorrelationCache(256)
	basket := pricing.NewBasketModel(corr)
	statistical := pricing.NewStatisticalModel(cfg.Detection.MinObservationWindow, 2.0)
	perpetual := pricing.NewPerpetualBasisModel()
	crossCurrency := pricing.NewCrossCurrencyModel()
	costOfCarry := pricing.NewCostOfCarryModel()
	options := pricing.NewOptionsModel()

	models := []pricing.Model{basket, statistical, perpetual, crossCurrency, costOfCarry, options}

	detectors := []mispricing.Detector{
		mispricing.NewStatisticalDetector(cfg.Detection),
		mispricing.NewVolatilityDetector(cfg.Detection),
		mispricing.NewCrossExchangeDetector(cfg.Detection),
	}
	var spotDerivTargets []mispricing.SpotDerivativeTarget
	for _, spec := range universe.SpotDerivative {
		spotDerivTargets = append(spotDerivTargets, mispricing.SpotDerivativeTarget{
			Target:     spec.Target,
			Components: spec.Components,
			Model:      perpetual,
		})
	}
	for _, spec := range universe.Options {
		if spec.SeedVol > 0 {
			surface := market.NewVolatilitySurface()
			tau := spec.Expiry.Sub(time.Now()).Hours() / (24 * 365)
			if tau <= 0 {
				tau = 1.0 / 365
			}
			_ = surface.Set(spec.Strike, tau, spec.SeedVol)
			options.RegisterSurface(spec.Underlying, surface)
		}
		options.RegisterContract(spec.Target, pricing.OptionContract{
			Underlying:   spec.Underlying,
			Strike:       spec.Strike,
			Expiry:       spec.Expiry,
			IsCall:       spec.IsCall,
			RiskFreeRate: spec.RiskFreeRate,
		})
		spotDerivTargets = append(spotDerivTargets, mispricing.SpotDerivativeTarget{
			Target:     spec.Target,
			Components: []market.InstrumentId{spec.Underlying},
			Model:      options,
		})
	}
	if len(spotDerivTargets) > 0 {
		detectors = append(detectors, mispricing.NewSpotDerivativeDetector(cfg.Detection, spotDerivTargets))
	}
	if len(universe.Triangles) > 0 {
		detectors = append(detectors, mispricing.NewTriangularDetector(cfg.Detection, universe.Triangles))
	}
	if len(universe.BasisPairs) > 0 {
		pairs := make([]mispricing.BasisPair, len(universe.BasisPairs))
		for i, spec := range universe.BasisPairs {
			pairs[i] = mispricing.BasisPair{
				Spot:       spec.Spot,
				Derivative: spec.Derivative,
				Model:      perpetual,
			}
		}
		detectors = append(detectors, mispricing.NewBasisDetector(cfg.Detection, pairs))
	}
	composite := mispricing.NewComposite(detectors...)

	portfolio := risk.NewPortfolio(basket, corr)
	sizer := risk.NewSizer(portfolio, cfg.Risk, assumptions).
		WithCorrelationBreaker(risk.NewCorrelationBreaker("portfolio", basket, corr))

	arb := arbitrage.NewEngine(cfg.Arbitrage, sizer.SizeFunc, basket, corr,
		arbitrage.WithPortfolioRiskSource(portfolio, defaultRiskFreeRate))

	var counters *metrics.Counters
	if reg != nil {
		counters = metrics.NewCounters(reg)
	}

	eng := New(cfg.Feed, aggregator, models, composite, sizer, arb, counters)

	return &Pipeline{
		Aggregator: aggregator,
		Models:     models,
		Composite:  composite,
		Sizer:      sizer,
		Portfolio:  portfolio,
		Arbitrage:  arb,
		Counters:   counters,
		Engine:     eng,
	}
}
