package pricing

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/market"
)

// CarryParams are the per-instrument rates a cost-of-carry forward needs:
// risk-free rate r and dividend/borrow yield q.
type CarryParams struct {
	RiskFreeRate float64
	CarryYield   float64
}

// ForwardExpiry returns time-to-maturity in years for a forward/future
// instrument given its expiry and the valuation time.
func ForwardExpiry(expiry, now time.Time) (float64, error) {
	tau := expiry.Sub(now).Hours() / (24 * 365)
	if tau <= 0 {
		return 0, fmt.Errorf("pricing: non-positive time to maturity: %w", ErrModelDomain)
	}
	return tau, nil
}

// CostOfCarryModel prices forwards/futures as
// spot_mid * exp((r - q) * tau).
type CostOfCarryModel struct {
	mu     sync.RWMutex
	params map[market.InstrumentId]CarryParams
}

// NewCostOfCarryModel returns a model with no per-instrument overrides;
// callers must set params via SetCarryParams before pricing, or the
// instrument's quoted rate/yield default to zero (pure carry-free forward).
func NewCostOfCarryModel() *CostOfCarryModel {
	return &CostOfCarryModel{params: make(map[market.InstrumentId]CarryParams)}
}

// SetCarryParams records the risk-free rate and carry yield for instrument.
func (m *CostOfCarryModel) SetCarryParams(instrument market.InstrumentId, p CarryParams) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params[instrument] = p
}

func (m *CostOfCarryModel) carryParams(instrument market.InstrumentId) CarryParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params[instrument]
}

// UpdateParameters is a no-op: carry parameters are set explicitly via
// SetCarryParams rather than derived from the snapshot.
func (m *CostOfCarryModel) UpdateParameters(_ market.MarketSnapshot) {}

// CalculateSyntheticPrice satisfies the shared Model interface, which
// carries no time to maturity, so it always returns ErrModelDomain. PriceAt
// prices target (the forward/future) from components[0] (its spot) and the
// instrument's registered carry params over a given tau in years.
func (m *CostOfCarryModel) CalculateSyntheticPrice(target market.InstrumentId, components []market.InstrumentId, snapshot market.MarketSnapshot) (SyntheticPrice, error) {
	return m.priceWithTau(target, components, snapshot, -1)
}

// PriceAt is the full-signature entry point used by callers that already
// know tau (time to maturity in years), since SyntheticPrice's shared
// interface has no room for it.
func (m *CostOfCarryModel) PriceAt(target market.InstrumentId, components []market.InstrumentId, snapshot market.MarketSnapshot, tau float64) (SyntheticPrice, error) {
	return m.priceWithTau(target, components, snapshot, tau)
}

func (m *CostOfCarryModel) priceWithTau(target market.InstrumentId, components []market.InstrumentId, snapshot market.MarketSnapshot, tau float64) (SyntheticPrice, error) {
	if len(components) != 1 {
		return SyntheticPrice{}, fmt.Errorf("pricing: cost-of-carry requires exactly one spot component: %w", ErrModelDomain)
	}
	if tau <= 0 {
		return SyntheticPrice{}, fmt.Errorf("pricing: non-positive time to maturity: %w", ErrModelDomain)
	}
	spotID := components[0]
	spot, ok := snapshot.Quote(spotID)
	if !ok {
		return SyntheticPrice{}, fmt.Errorf("pricing: spot %s: %w", spotID, ErrUnknownInstrument)
	}
	if spot.Mid() == 0 {
		return SyntheticPrice{}, fmt.Errorf("pricing: spot %s has no two-sided market: %w", spotID, ErrModelDomain)
	}

	carry := m.carryParams(target)
	theo := spot.Mid() * math.Exp((carry.RiskFreeRate-carry.CarryYield)*tau)
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

// Basis returns the observed quoted-future minus theoretical-forward spread.
func (m *CostOfCarryModel) Basis(quotedFuture market.Quote, theoretical SyntheticPrice) float64 {
	return quotedFuture.Mid() - theoretical.TheoreticalPrice
}

// CalculateWeights mirrors the single-leg convention of PerpetualBasisModel.
func (m *CostOfCarryModel) CalculateWeights(instruments []market.InstrumentId, _ market.MarketSnapshot) ([]float64, error) {
	weights := make([]float64, len(instruments))
	for i := range weights {
		weights[i] = 1
	}
	return weights, nil
}

// CalculateCorrelation delegates to the shared Pearson estimator.
func (m *CostOfCarryModel) CalculateCorrelation(inst1, inst2 market.InstrumentId, history map[market.InstrumentId][]float64) (float64, error) {
	return historyCorrelation(inst1, inst2, history)
}
