package feed

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

// MockSource simulates an exchange connection for tests and the demo
// binary: a per-instrument random walk around a seeded base price, emitted
// at a fixed tick interval with strictly increasing per-instrument sequence
// numbers.
type MockSource struct {
	name     string
	interval time.Duration
	rng      *rand.Rand
	log      zerolog.Logger

	mu     sync.Mutex
	prices map[market.InstrumentId]float64
	seq    map[market.InstrumentId]uint64
}

// NewMockSource returns a MockSource tagged as exchange name, walking the
// given instrument base prices every interval.
func NewMockSource(name string, interval time.Duration, basePrices map[market.InstrumentId]float64, seed int64) *MockSource {
	prices := make(map[market.InstrumentId]float64, len(basePrices))
	for id, p := range basePrices {
		prices[id] = p
	}
	return &MockSource{
		name:     name,
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
		log:      config.NewLogger("feed.mock"),
		prices:   prices,
		seq:      make(map[market.InstrumentId]uint64, len(basePrices)),
	}
}

func (m *MockSource) Name() string { return m.name }

// Run streams a quote per tracked instrument every tick interval until ctx
// is cancelled.
func (m *MockSource) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			m.tick(now, sink)
		}
	}
}

// SetMarketPrice overrides an instrument's random-walk base price, mirroring
// the paper-trading exchange's price-injection hook used in tests.
func (m *MockSource) SetMarketPrice(id market.InstrumentId, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[id] = price
}

func (m *MockSource) tick(now time.Time, sink Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, price := range m.prices {
		drift := m.rng.NormFloat64() * price * 0.0005
		price = math.Max(price+drift, 0.01)
		m.prices[id] = price

		spread := price * 0.0005
		m.seq[id]++

		q := market.Quote{
			InstrumentID:   id,
			Exchange:       m.name,
			BidPrice:       price - spread,
			AskPrice:       price + spread,
			BidSize:        10 + m.rng.Float64()*10,
			AskSize:        10 + m.rng.Float64()*10,
			Timestamp:      now,
			SequenceNumber: m.seq[id],
		}
		if err := sink.IngestQuote(m.name, q); err != nil {
			m.log.Debug().Err(err).Str("instrument", string(id)).Msg("mock feed sequence warning")
		}
	}
}
