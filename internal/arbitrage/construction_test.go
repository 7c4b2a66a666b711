package arbitrage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/mispricing"
)

type fixedIDGen struct{ id string }

func (f fixedIDGen) NewID(triangular bool) string { return f.id }

func twoLegSnapshot(t *testing.T) market.MarketSnapshot {
	t.Helper()
	s := market.NewEmptySnapshot()
	now := time.Now()
	s.Quotes["BTC-PERP"] = market.Quote{InstrumentID: "BTC-PERP", BidPrice: 101.9, AskPrice: 102.1, Timestamp: now}
	s.Quotes["BTC-USD"] = market.Quote{InstrumentID: "BTC-USD", BidPrice: 99.9, AskPrice: 100.1, Timestamp: now}
	s.SnapshotTime = now
	return s
}

func TestConstructBuildsPrimaryAndHedgeLegs(t *testing.T) {
	snapshot := twoLegSnapshot(t)
	source := mispricing.MispricingOpportunity{
		Type:                mispricing.TypeSpotDerivative,
		Target:              "BTC-PERP",
		Components:          []market.InstrumentId{"BTC-USD"},
		Weights:             []float64{1},
		ObservedPrice:       102,
		TheoreticalPrice:    100,
		DeviationPercentage: 0.02,
		DetectionTime:       snapshot.SnapshotTime,
		ExpiryTime:          snapshot.SnapshotTime.Add(time.Hour),
	}

	opp, err := Construct(source, snapshot, 10, fixedIDGen{id: "ARB_TEST"})
	require.NoError(t, err)
	require.Len(t, opp.Legs, 2)

	primary := opp.Legs[0]
	assert.Equal(t, market.InstrumentId("BTC-PERP"), primary.InstrumentID)
	// observed (102) is not below theoretical (100), so the primary leg
	// takes the ask side per the construction rule.
	assert.Equal(t, SideAsk, primary.Side)
	assert.Equal(t, 1.0, primary.Weight)

	hedge := opp.Legs[1]
	assert.Equal(t, market.InstrumentId("BTC-USD"), hedge.InstrumentID)
	assert.Equal(t, -1.0, hedge.Weight)
	assert.Equal(t, "ARB_TEST", opp.ID)
	assert.Equal(t, StatusIdentified, opp.Status)
}

func TestConstructUsesSideAppropriateEntryPrice(t *testing.T) {
	snapshot := twoLegSnapshot(t)
	source := mispricing.MispricingOpportunity{
		Target:              "BTC-PERP",
		Components:          []market.InstrumentId{"BTC-USD"},
		Weights:             []float64{1},
		ObservedPrice:       98, // underpriced: primary leg takes the bid side, entering at the bid
		TheoreticalPrice:    100,
		DeviationPercentage: -0.02,
		DetectionTime:       snapshot.SnapshotTime,
		ExpiryTime:          snapshot.SnapshotTime.Add(time.Hour),
	}
	opp, err := Construct(source, snapshot, 1, fixedIDGen{id: "ARB_TEST"})
	require.NoError(t, err)
	assert.Equal(t, SideBid, opp.Legs[0].Side)
	assert.Equal(t, 101.9, opp.Legs[0].EntryPrice)
}

func TestConstructRejectsMissingComponentQuote(t *testing.T) {
	snapshot := twoLegSnapshot(t)
	source := mispricing.MispricingOpportunity{
		Target:           "BTC-PERP",
		Components:       []market.InstrumentId{"ETH-USD"},
		Weights:          []float64{1},
		ObservedPrice:    102,
		TheoreticalPrice: 100,
	}
	_, err := Construct(source, snapshot, 1, fixedIDGen{id: "ARB_TEST"})
	assert.Error(t, err)
}
