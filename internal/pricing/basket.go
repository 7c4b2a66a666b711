package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/archon-quant/synthalpha/internal/indicators"
	"github.com/archon-quant/synthalpha/internal/market"
)

// BasketModel prices a weighted basket as synthetic = sum(w_i * mid_i), and
// estimates basket volatility via sigma^2 = w^T * Sigma * w using the
// correlation-scaled covariance from a shared CorrelationCache (§4.2).
type BasketModel struct {
	correlations *CorrelationCache
}

// NewBasketModel returns a basket model reading pairwise correlations from
// cache.
func NewBasketModel(cache *CorrelationCache) *BasketModel {
	return &BasketModel{correlations: cache}
}

// UpdateParameters is a no-op: the basket model reads spot prices directly
// from the snapshot passed to CalculateSyntheticPrice and correlations from
// the shared cache, which risk.CorrelationBreaker.Refresh fills.
func (m *BasketModel) UpdateParameters(_ market.MarketSnapshot) {}

// CalculateSyntheticPrice computes the weighted mid of components using the
// equal weights from CalculateWeights, via PriceWithWeights. Callers with
// other weights call PriceWithWeights directly.
func (m *BasketModel) CalculateSyntheticPrice(target market.InstrumentId, components []market.InstrumentId, snapshot market.MarketSnapshot) (SyntheticPrice, error) {
	weights, err := m.CalculateWeights(components, snapshot)
	if err != nil {
		return SyntheticPrice{}, err
	}
	return m.PriceWithWeights(target, components, weights, snapshot)
}

// PriceWithWeights computes the weighted-mid synthetic price for explicit
// weights, per the basket law synthetic(w, S) = sum(w_i * mid_i(S)).
func (m *BasketModel) PriceWithWeights(target market.InstrumentId, components []market.InstrumentId, weights []float64, snapshot market.MarketSnapshot) (SyntheticPrice, error) {
	if len(components) != len(weights) {
		return SyntheticPrice{}, fmt.Errorf("pricing: basket requires len(components) == len(weights): %w", ErrModelDomain)
	}
	if len(components) == 0 {
		return SyntheticPrice{}, fmt.Errorf("pricing: basket requires at least one component: %w", ErrModelDomain)
	}

	var synthetic, bid, ask, worstSpread float64
	var maxAge time.Duration
	for i, id := range components {
		q, ok := snapshot.Quote(id)
		if !ok {
			return SyntheticPrice{}, fmt.Errorf("pricing: component %s: %w", id, ErrUnknownInstrument)
		}
		if q.Mid() == 0 {
			return SyntheticPrice{}, fmt.Errorf("pricing: component %s has no two-sided market: %w", id, ErrModelDomain)
		}
		w := weights[i]
		synthetic += w * q.Mid()
		bid += w * q.BidPrice
		ask += w * q.AskPrice
		if q.SpreadRatio() > worstSpread {
			worstSpread = q.SpreadRatio()
		}
		if age := snapshot.SnapshotTime.Sub(q.Timestamp); age > maxAge {
			maxAge = age
		}
	}

	conf := confidence(
		freshnessPenalty(maxAge, defaultMaxAge),
		spreadPenalty(worstSpread, defaultMaxSpreadRatio),
		1,
	)

	return SyntheticPrice{
		Target:               target,
		TheoreticalPrice:     synthetic,
		BidPrice:             bid,
		AskPrice:             ask,
		ConfidenceScore:      conf,
		ComponentInstruments: append([]market.InstrumentId{}, components...),
		Weights:              append([]float64{}, weights...),
		CalculationTime:      snapshot.SnapshotTime,
	}, nil
}

// CalculateWeights returns an equal-weight basket by default; callers with
// model-specific weighting (e.g. market-cap or inverse-vol weighting) should
// compute weights themselves and call PriceWithWeights directly.
func (m *BasketModel) CalculateWeights(instruments []market.InstrumentId, _ market.MarketSnapshot) ([]float64, error) {
	if len(instruments) == 0 {
		return nil, fmt.Errorf("pricing: cannot weight an empty basket: %w", ErrModelDomain)
	}
	w := 1.0 / float64(len(instruments))
	weights := make([]float64, len(instruments))
	for i := range weights {
		weights[i] = w
	}
	return weights, nil
}

// CalculateCorrelation reads from the shared correlation cache, falling
// back to the supplied history when the cache has no entry.
func (m *BasketModel) CalculateCorrelation(inst1, inst2 market.InstrumentId, history map[market.InstrumentId][]float64) (float64, error) {
	if rho, ok := m.correlations.Get(inst1, inst2); ok {
		return rho, nil
	}
	return historyCorrelation(inst1, inst2, history)
}

// PortfolioVariance computes w^T * Sigma * w where Sigma_ij = sigma_i *
// sigma_j * rho_ij, rho from the correlation cache (default 0.6 when
// unknown, matching the arbitrage engine's correlation-risk default).
func (m *BasketModel) PortfolioVariance(instruments []market.InstrumentId, weights []float64, volatilities []float64) (float64, error) {
	n := len(instruments)
	if n != len(weights) || n != len(volatilities) {
		return 0, fmt.Errorf("pricing: portfolio variance requires matching-length instruments/weights/volatilities: %w", ErrModelDomain)
	}
	var variance float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rho := 1.0
			if i != j {
				rho = m.correlations.GetOrDefault(instruments[i], instruments[j], 0.6)
			}
			variance += weights[i] * weights[j] * volatilities[i] * volatilities[j] * rho
		}
	}
	return variance, nil
}

// RealizedVolatility returns the annualized standard deviation of
// log-returns over prices (the sqrt(252) convention shared with the
// volatility detector).
func RealizedVolatility(prices []float64) (float64, error) {
	if len(prices) < 2 {
		return 0, fmt.Errorf("pricing: need at least two prices for realized vol: %w", ErrInsufficientHistory)
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			return 0, fmt.Errorf("pricing: non-positive price in realized-vol series: %w", ErrModelDomain)
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	return indicators.RollingStdDev(returns) * math.Sqrt(252), nil
}
