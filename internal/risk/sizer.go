package risk

import (
	"fmt"
	"math"
	"sync"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/pricing"
)

// sizerHistoryCapacity bounds the rolling mid-price history kept per
// instrument for the realized-volatility estimate.
const sizerHistoryCapacity = 100

// defaultInstrumentVol is used until an instrument has accumulated enough
// price history for pricing.RealizedVolatility.
const defaultInstrumentVol = 0.5

// Assumptions carries the strategy-level edge estimates the Kelly candidate
// needs (win_rate/avg_win/avg_loss). This system keeps no P&L ledger, so
// these are configured rather than learned from trade history.
type Assumptions struct {
	WinRate          float64
	AvgWin           float64
	AvgLoss          float64
	TargetVolatility float64
	BaseSize         float64
	PortfolioValue   float64
}

// Sizer adapts Size and a live Portfolio into the arbitrage engine's
// SizeFunc injection point (§4.6). It tracks a rolling mid-price history per
// instrument for the volatility candidates and reads current
// leverage/correlation risk off the portfolio for the post-adjustments.
type Sizer struct {
	mu     sync.Mutex
	prices map[market.InstrumentId][]float64

	portfolio   *Portfolio
	params      config.RiskParameters
	assumptions Assumptions

	corrBreaker *CorrelationBreaker
}

// NewSizer returns a Sizer reading leverage/correlation feedback from
// portfolio and strategy edge assumptions from assumptions.
func NewSizer(portfolio *Portfolio, params config.RiskParameters, assumptions Assumptions) *Sizer {
	return &Sizer{
		prices:      make(map[market.InstrumentId][]float64),
		portfolio:   portfolio,
		params:      params,
		assumptions: assumptions,
	}
}

// UpdateMarketData records every quoted instrument's mid price. Called once
// per snapshot tick, ahead of detection, so SizeFunc always sizes against
// history through the current snapshot.
func (s *Sizer) UpdateMarketData(snapshot market.MarketSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, q := range snapshot.Quotes {
		mid := q.Mid()
		if mid == 0 {
			continue
		}
		hist := append(s.prices[id], mid)
		if len(hist) > sizerHistoryCapacity {
			hist = hist[len(hist)-sizerHistoryCapacity:]
		}
		s.prices[id] = hist
	}
}

// WithCorrelationBreaker attaches a CorrelationBreaker the sizer uses to
// refresh correlation-risk against held positions from live price history,
// instead of reading only the cache's last-known (or default) value. Safe
// to call before the sizer starts receiving market data.
func (s *Sizer) WithCorrelationBreaker(breaker *CorrelationBreaker) *Sizer {
	s.corrBreaker = breaker
	return s
}

func (s *Sizer) instrumentVol(id market.InstrumentId) float64 {
	s.mu.Lock()
	prices := append([]float64(nil), s.prices[id]...)
	s.mu.Unlock()

	vol, err := pricing.RealizedVolatility(prices)
	if err != nil {
		return defaultInstrumentVol
	}
	return vol
}

// correlationRisk returns the portfolio's correlation risk against target.
// With a CorrelationBreaker attached, it refreshes each held position's
// correlation from live price history through the breaker rather than
// trusting a possibly-stale cache entry; without one (or while the breaker
// is open), it falls back to the cache's defaulted read.
func (s *Sizer) correlationRisk(target market.InstrumentId) float64 {
	if s.portfolio == nil {
		return 0
	}
	if s.corrBreaker == nil {
		return s.portfolio.CorrelationRisk()
	}

	s.mu.Lock()
	history := make(map[market.InstrumentId][]float64, len(s.prices))
	for id, prices := range s.prices {
		history[id] = append([]float64(nil), prices...)
	}
	s.mu.Unlock()

	var maxRho float64
	for _, pos := range s.portfolio.Positions {
		rho := math.Abs(s.corrBreaker.Refresh(target, pos.InstrumentID, history, defaultCorrelationRisk))
		if rho > maxRho {
			maxRho = rho
		}
	}
	return maxRho
}

// SizeFunc computes the base position size for target against snapshot,
// matching the arbitrage.SizeFunc signature.
func (s *Sizer) SizeFunc(target market.InstrumentId, snapshot market.MarketSnapshot) (float64, error) {
	quote, ok := snapshot.Quote(target)
	if !ok || quote.Mid() == 0 {
		return 0, fmt.Errorf("risk: no two-sided quote for %s", target)
	}

	var leverage, correlationRisk float64
	if s.portfolio != nil {
		if s.assumptions.PortfolioValue > 0 {
			leverage = s.portfolio.GrossExposure() / s.assumptions.PortfolioValue
		}
		correlationRisk = s.correlationRisk(target)
	}

	vol := s.instrumentVol(target)
	in := SizingInput{
		PortfolioValue:   s.assumptions.PortfolioValue,
		EntryPrice:       quote.Mid(),
		WinRate:          s.assumptions.WinRate,
		AvgWin:           s.assumptions.AvgWin,
		AvgLoss:          s.assumptions.AvgLoss,
		PerUnitVaR:       zScoreOneDay95 * vol * quote.Mid(),
		TargetVolatility: s.assumptions.TargetVolatility,
		InstrumentVol:    vol,
		BaseSize:         s.assumptions.BaseSize,
		CurrentLeverage:  leverage,
		CorrelationRisk:  correlationRisk,
	}
	return Size(in, s.params), nil
}
