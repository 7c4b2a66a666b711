package pricing

import (
	"fmt"
	"time"

	"github.com/archon-quant/synthalpha/internal/market"
)

// CrossCurrencyModel synthesizes a target pair A/C from two legs A/B and
// B/C sharing a common currency B (§4.2).
type CrossCurrencyModel struct{}

// NewCrossCurrencyModel returns a stateless cross-currency synthesizer.
func NewCrossCurrencyModel() *CrossCurrencyModel { return &CrossCurrencyModel{} }

// UpdateParameters is a no-op: this model carries no snapshot-derived state.
func (m *CrossCurrencyModel) UpdateParameters(_ market.MarketSnapshot) {}

// CalculateSyntheticPrice synthesizes target (A/C) from components
// [A/B, B/C]. Both legs are assumed quoted with the shared currency as the
// denominator of the first and the numerator of the second, matching the
// natural A/B * B/C chain; callers needing the inverted chain should invert
// the appropriate leg's quote before calling.
func (m *CrossCurrencyModel) CalculateSyntheticPrice(target market.InstrumentId, components []market.InstrumentId, snapshot market.MarketSnapshot) (SyntheticPrice, error) {
	if len(components) != 2 {
		return SyntheticPrice{}, fmt.Errorf("pricing: cross-currency synthesis requires exactly two legs: %w", ErrModelDomain)
	}
	legAB, ok := snapshot.Quote(components[0])
	if !ok {
		return SyntheticPrice{}, fmt.Errorf("pricing: leg %s: %w", components[0], ErrUnknownInstrument)
	}
	legBC, ok := snapshot.Quote(components[1])
	if !ok {
		return SyntheticPrice{}, fmt.Errorf("pricing: leg %s: %w", components[1], ErrUnknownInstrument)
	}
	if legAB.Mid() == 0 || legBC.Mid() == 0 {
		return SyntheticPrice{}, fmt.Errorf("pricing: cross-currency leg has no two-sided market: %w", ErrModelDomain)
	}

	mid := legAB.Mid() * legBC.Mid()
	bid := legAB.BidPrice * legBC.BidPrice
	ask := legAB.AskPrice * legBC.AskPrice

	maxAge := time.Duration(0)
	if d := snapshot.SnapshotTime.Sub(legAB.Timestamp); d > maxAge {
		maxAge = d
	}
	if d := snapshot.SnapshotTime.Sub(legBC.Timestamp); d > maxAge {
		maxAge = d
	}
	worstSpread := legAB.SpreadRatio()
	if legBC.SpreadRatio() > worstSpread {
		worstSpread = legBC.SpreadRatio()
	}
	conf := confidence(
		freshnessPenalty(maxAge, defaultMaxAge),
		spreadPenalty(worstSpread, defaultMaxSpreadRatio),
		1,
	)

	return SyntheticPrice{
		Target:               target,
		TheoreticalPrice:     mid,
		BidPrice:             bid,
		AskPrice:             ask,
		ConfidenceScore:      conf,
		ComponentInstruments: append([]market.InstrumentId{}, components...),
		Weights:              []float64{1, 1},
		CalculationTime:      snapshot.SnapshotTime,
	}, nil
}

// Invert returns the reciprocal C/A quote for a synthesized A/C price.
func Invert(sp SyntheticPrice) SyntheticPrice {
	inv := sp
	if sp.TheoreticalPrice != 0 {
		inv.TheoreticalPrice = 1 / sp.TheoreticalPrice
	}
	if sp.AskPrice != 0 {
		inv.BidPrice = 1 / sp.AskPrice
	}
	if sp.BidPrice != 0 {
		inv.AskPrice = 1 / sp.BidPrice
	}
	return inv
}

// CalculateWeights returns unit weight on each of the two synthesis legs.
func (m *CrossCurrencyModel) CalculateWeights(instruments []market.InstrumentId, _ market.MarketSnapshot) ([]float64, error) {
	weights := make([]float64, len(instruments))
	for i := range weights {
		weights[i] = 1
	}
	return weights, nil
}

// CalculateCorrelation delegates to the shared Pearson estimator.
func (m *CrossCurrencyModel) CalculateCorrelation(inst1, inst2 market.InstrumentId, history map[market.InstrumentId][]float64) (float64, error) {
	return historyCorrelation(inst1, inst2, history)
}
