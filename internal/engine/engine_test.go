package engine

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/arbitrage"
	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/metrics"
	"github.com/archon-quant/synthalpha/internal/mispricing"
	"github.com/archon-quant/synthalpha/internal/pricing"
	"github.com/archon-quant/synthalpha/internal/risk"
)

// stubDetector emits a single fixed MispricingOpportunity exactly once,
// so a pipeline test can drive the arbitrage engine without standing up
// the full statistical/volatility detection math.
type stubDetector struct {
	opp  mispricing.MispricingOpportunity
	done bool
}

func (d *stubDetector) UpdateMarketData(market.MarketSnapshot)             {}
func (d *stubDetector) UpdateParameters(config.DetectionParameters)       {}
func (d *stubDetector) DetectOpportunities() []mispricing.MispricingOpportunity {
	if d.done {
		return nil
	}
	d.done = true
	return []mispricing.MispricingOpportunity{d.opp}
}

func liquidTwoLegSnapshot() market.MarketSnapshot {
	s := market.NewEmptySnapshot()
	now := time.Now()
	s.Quotes["BTC-PERP"] = market.Quote{InstrumentID: "BTC-PERP", BidPrice: 101.9, AskPrice: 102.1, Timestamp: now}
	s.Quotes["BTC-USD"] = market.Quote{InstrumentID: "BTC-USD", BidPrice: 99.9, AskPrice: 100.1, Timestamp: now}
	s.Depth["BTC-PERP"] = market.MarketDepth{
		InstrumentID: "BTC-PERP",
		Bids:         []market.DepthLevel{{Price: 101.9, Size: 1000}},
		Asks:         []market.DepthLevel{{Price: 102.1, Size: 1000}},
	}
	s.Depth["BTC-USD"] = market.MarketDepth{
		InstrumentID: "BTC-USD",
		Bids:         []market.DepthLevel{{Price: 99.9, Size: 1000}},
		Asks:         []market.DepthLevel{{Price: 100.1, Size: 1000}},
	}
	s.SnapshotTime = now
	return s
}

func newTestEngine(t *testing.T, opp mispricing.MispricingOpportunity) (*Engine, *arbitrage.Engine) {
	t.Helper()
	corr := pricing.NewCorrelationCache(8)
	basket := pricing.NewBasketModel(corr)
	portfolio := risk.NewPortfolio(basket, corr)
	sizer := risk.NewSizer(portfolio, config.DefaultRiskParameters(), risk.Assumptions{
		WinRate: 0.9, AvgWin: 2, AvgLoss: 1, TargetVolatility: 0.5, BaseSize: 50, PortfolioValue: 1_000_000,
	})

	arb := arbitrage.NewEngine(config.DefaultArbitrageParameters(), sizer.SizeFunc, basket, corr,
		arbitrage.WithClock(func() time.Time { return opp.DetectionTime }))

	composite := mispricing.NewComposite(&stubDetector{opp: opp})
	counters := metrics.NewCounters(prometheus.NewRegistry())

	eng := New(config.Default().Feed, nil, nil, composite, sizer, arb, counters)
	return eng, arb
}

func TestProcessSnapshotPromotesValidOpportunity(t *testing.T) {
	snapshot := liquidTwoLegSnapshot()
	opp := mispricing.MispricingOpportunity{
		Type:                mispricing.TypeSpotDerivative,
		Target:              "BTC-PERP",
		Components:          []market.InstrumentId{"BTC-USD"},
		Weights:             []float64{1},
		ObservedPrice:       102,
		TheoreticalPrice:    100,
		DeviationPercentage: 0.02,
		ExpectedProfit:      50,
		DetectionTime:       snapshot.SnapshotTime,
		ExpiryTime:          snapshot.SnapshotTime.Add(time.Hour),
	}

	eng, arb := newTestEngine(t, opp)
	var validated arbitrage.Opportunity
	arb.OnValidated(func(o arbitrage.Opportunity) { validated = o })

	eng.processSnapshot(snapshot)

	require.Len(t, arb.ActiveOpportunities(), 1)
	assert.Equal(t, arbitrage.StatusValidated, validated.Status)
}

func TestProcessSnapshotSweepsExpiredOpportunities(t *testing.T) {
	snapshot := liquidTwoLegSnapshot()
	opp := mispricing.MispricingOpportunity{
		Type:                mispricing.TypeSpotDerivative,
		Target:              "BTC-PERP",
		Components:          []market.InstrumentId{"BTC-USD"},
		Weights:             []float64{1},
		ObservedPrice:       102,
		TheoreticalPrice:    100,
		DeviationPercentage: 0.02,
		ExpectedProfit:      50,
		DetectionTime:       snapshot.SnapshotTime,
		ExpiryTime:          snapshot.SnapshotTime.Add(10 * time.Minute),
	}

	eng, arb := newTestEngine(t, opp)
	eng.processSnapshot(snapshot)
	require.Len(t, arb.ActiveOpportunities(), 1)

	later := snapshot
	later.SnapshotTime = opp.ExpiryTime.Add(time.Second)
	eng.processSnapshot(later)

	assert.Empty(t, arb.ActiveOpportunities())
}
