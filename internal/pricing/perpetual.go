package pricing

import (
	"fmt"
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/market"
)

// DefaultFundingRate is used when no funding observation has been recorded
// for an instrument (§4.2: "a default of 1 bp").
const DefaultFundingRate = 0.0001

// PerpetualBasisModel prices a perpetual swap off its spot as
// spot_mid * (1 + funding_rate), tracking one FundingRate per instrument.
type PerpetualBasisModel struct {
	mu      sync.RWMutex
	funding map[market.InstrumentId]market.FundingRate
}

// NewPerpetualBasisModel returns an empty model.
func NewPerpetualBasisModel() *PerpetualBasisModel {
	return &PerpetualBasisModel{funding: make(map[market.InstrumentId]market.FundingRate)}
}

// UpdateParameters refreshes the funding-rate table from a snapshot.
func (m *PerpetualBasisModel) UpdateParameters(snapshot market.MarketSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, f := range snapshot.FundingRates {
		existing, ok := m.funding[id]
		if !ok || f.Timestamp.After(existing.Timestamp) {
			m.funding[id] = f
		}
	}
}

// CurrentFundingRate returns the stored funding rate for id, or
// DefaultFundingRate if none has been observed.
func (m *PerpetualBasisModel) CurrentFundingRate(id market.InstrumentId) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.funding[id]; ok {
		return f.Rate
	}
	return DefaultFundingRate
}

// CalculateSyntheticPrice prices target (the perpetual) from components[0]
// (its spot).
func (m *PerpetualBasisModel) CalculateSyntheticPrice(target market.InstrumentId, components []market.InstrumentId, snapshot market.MarketSnapshot) (SyntheticPrice, error) {
	if len(components) != 1 {
		return SyntheticPrice{}, fmt.Errorf("pricing: perpetual basis requires exactly one spot component: %w", ErrModelDomain)
	}
	spotID := components[0]
	spot, ok := snapshot.Quote(spotID)
	if !ok {
		return SyntheticPrice{}, fmt.Errorf("pricing: spot %s: %w", spotID, ErrUnknownInstrument)
	}
	if spot.Mid() == 0 {
		return SyntheticPrice{}, fmt.Errorf("pricing: spot %s has no two-sided market: %w", spotID, ErrModelDomain)
	}

	rate := m.CurrentFundingRate(target)
	theo := spot.Mid() * (1 + rate)
	spreadHalf := spot.SpreadRatio() / 2 * theo

	age := time.Duration(0)
	if !snapshot.SnapshotTime.IsZero() {
		age = snapshot.SnapshotTime.Sub(spot.Timestamp)
	}
	conf := confidence(
		freshnessPenalty(age, defaultMaxAge),
		spreadPenalty(spot.SpreadRatio(), defaultMaxSpreadRatio),
		1,
	)

	return SyntheticPrice{
		Target:               target,
		TheoreticalPrice:     theo,
		BidPrice:             theo - spreadHalf,
		AskPrice:             theo + spreadHalf,
		ConfidenceScore:      conf,
		ComponentInstruments: []market.InstrumentId{spotID},
		Weights:              []float64{1},
		CalculationTime:      snapshot.SnapshotTime,
	}, nil
}

// Basis returns perp_mid - spot_mid for the given perpetual/spot pair, as
// observed directly in the snapshot (not the theoretical basis).
func (m *PerpetualBasisModel) Basis(perp, spot market.Quote) float64 {
	return perp.Mid() - spot.Mid()
}

// CalculateWeights is trivial for a single-leg basis model: unit weight on
// the one spot component.
func (m *PerpetualBasisModel) CalculateWeights(instruments []market.InstrumentId, _ market.MarketSnapshot) ([]float64, error) {
	weights := make([]float64, len(instruments))
	for i := range weights {
		weights[i] = 1
	}
	return weights, nil
}

// CalculateCorrelation delegates to the shared Pearson estimator.
func (m *PerpetualBasisModel) CalculateCorrelation(inst1, inst2 market.InstrumentId, history map[market.InstrumentId][]float64) (float64, error) {
	return historyCorrelation(inst1, inst2, history)
}

func historyCorrelation(inst1, inst2 market.InstrumentId, history map[market.InstrumentId][]float64) (float64, error) {
	x, ok1 := history[inst1]
	y, ok2 := history[inst2]
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("pricing: correlation history missing for %s/%s: %w", inst1, inst2, ErrInsufficientHistory)
	}
	return PearsonCorrelation(x, y)
}
