package pricing

import (
	"fmt"
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/indicators"
	"github.com/archon-quant/synthalpha/internal/market"
)

// StatisticalModel maintains a bounded mid-price history per instrument
// (window = lookback period) and prices the mean-reversion target as the
// rolling mean, with Bollinger bands at mean +/- k*sigma (§4.2).
type StatisticalModel struct {
	mu      sync.RWMutex
	window  int
	k       float64
	history map[market.InstrumentId][]float64
}

// NewStatisticalModel returns a model with the given lookback window and
// Bollinger band width k (default k=2 per §4.2).
func NewStatisticalModel(window int, k float64) *StatisticalModel {
	return &StatisticalModel{
		window:  window,
		k:       k,
		history: make(map[market.InstrumentId][]float64),
	}
}

// UpdateParameters appends the current mid price of every quoted instrument
// to its bounded history.
func (m *StatisticalModel) UpdateParameters(snapshot market.MarketSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, q := range snapshot.Quotes {
		mid := q.Mid()
		if mid == 0 {
			continue
		}
		hist := append(m.history[id], mid)
		if len(hist) > m.window {
			hist = hist[len(hist)-m.window:]
		}
		m.history[id] = hist
	}
}

func (m *StatisticalModel) historyFor(id market.InstrumentId) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hist := m.history[id]
	out := make([]float64, len(hist))
	copy(out, hist)
	return out
}

// Bands returns the current Bollinger bands for instrument id.
func (m *StatisticalModel) Bands(id market.InstrumentId) (indicators.BollingerBands, error) {
	hist := m.historyFor(id)
	if len(hist) < 2 {
		return indicators.BollingerBands{}, fmt.Errorf("pricing: %s: %w", id, ErrInsufficientHistory)
	}
	period := m.window
	if len(hist) < period {
		period = len(hist)
	}
	return indicators.Bollinger(hist, period, m.k)
}

// CalculateSyntheticPrice prices target as its own rolling mean — the
// mean-reversion "theoretical" price — ignoring components (the model is
// single-instrument; Bands returns the matching Bollinger bands, which the
// mispricing detectors do not read).
func (m *StatisticalModel) CalculateSyntheticPrice(target market.InstrumentId, _ []market.InstrumentId, snapshot market.MarketSnapshot) (SyntheticPrice, error) {
	hist := m.historyFor(target)
	if len(hist) < 2 {
		return SyntheticPrice{}, fmt.Errorf("pricing: %s: %w", target, ErrInsufficientHistory)
	}
	mean := indicators.RollingMean(hist)

	q, ok := snapshot.Quote(target)
	var spreadRatio float64
	var ts time.Time
	if ok {
		spreadRatio = q.SpreadRatio()
		ts = q.Timestamp
	}

	age := time.Duration(0)
	if !snapshot.SnapshotTime.IsZero() && !ts.IsZero() {
		age = snapshot.SnapshotTime.Sub(ts)
	}
	conf := confidence(
		freshnessPenalty(age, defaultMaxAge),
		spreadPenalty(spreadRatio, defaultMaxSpreadRatio),
		samplePenalty(len(hist), m.window),
	)

	return SyntheticPrice{
		Target:               target,
		TheoreticalPrice:     mean,
		BidPrice:             mean,
		AskPrice:             mean,
		ConfidenceScore:      conf,
		ComponentInstruments: []market.InstrumentId{target},
		Weights:              []float64{1},
		CalculationTime:      snapshot.SnapshotTime,
	}, nil
}

// CalculateWeights returns unit weight on the instrument itself.
func (m *StatisticalModel) CalculateWeights(instruments []market.InstrumentId, _ market.MarketSnapshot) ([]float64, error) {
	weights := make([]float64, len(instruments))
	for i := range weights {
		weights[i] = 1
	}
	return weights, nil
}

// CalculateCorrelation computes Pearson correlation directly from this
// model's own tracked histories when both instruments are present,
// otherwise falls back to the caller-supplied history map.
func (m *StatisticalModel) CalculateCorrelation(inst1, inst2 market.InstrumentId, history map[market.InstrumentId][]float64) (float64, error) {
	h1, h2 := m.historyFor(inst1), m.historyFor(inst2)
	if len(h1) >= 2 && len(h2) >= 2 {
		n := len(h1)
		if len(h2) < n {
			n = len(h2)
		}
		return PearsonCorrelation(h1[len(h1)-n:], h2[len(h2)-n:])
	}
	return historyCorrelation(inst1, inst2, history)
}
