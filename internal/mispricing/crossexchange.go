package mispricing

import (
	"sort"
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

// CrossExchangeDetector compares the same instrument's best bid/ask across
// exchanges, flagging a spread wide enough to clear and still profit after
// its own dispersion history (§4.3: "cross-exchange").
type CrossExchangeDetector struct {
	mu       sync.Mutex
	params   config.DetectionParameters
	history  map[market.InstrumentId]*boundedSeries
	latest   map[market.InstrumentId]map[string]market.Quote
	snapTime time.Time
	expiry   *expiryTracker
	onDetect DetectedCallback
}

// NewCrossExchangeDetector returns a detector using params for its gate.
func NewCrossExchangeDetector(params config.DetectionParameters) *CrossExchangeDetector {
	return &CrossExchangeDetector{
		params:  params,
		history: make(map[market.InstrumentId]*boundedSeries),
		latest:  make(map[market.InstrumentId]map[string]market.Quote),
		expiry:  newExpiryTracker(),
	}
}

func (d *CrossExchangeDetector) OnDetected(cb DetectedCallback) { d.mu.Lock(); d.onDetect = cb; d.mu.Unlock() }
func (d *CrossExchangeDetector) OnExpired(cb ExpiredCallback)   { d.expiry.setExpiredCallback(cb) }

func (d *CrossExchangeDetector) UpdateParameters(params config.DetectionParameters) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = params
}

func (d *CrossExchangeDetector) UpdateMarketData(snapshot market.MarketSnapshot) {
	d.mu.Lock()
	for id := range snapshot.Quotes {
		byExchange := snapshot.ExchangeQuotes(id)
		if len(byExchange) < 2 {
			continue
		}
		d.latest[id] = byExchange

		low, high := bestBidAskAcross(byExchange)
		spread := high.bid - low.ask
		series, ok := d.history[id]
		if !ok {
			series = newBoundedSeries(2 * d.params.MinObservationWindow)
			d.history[id] = series
		}
		series.push(spread)
	}
	d.snapTime = snapshot.SnapshotTime
	d.mu.Unlock()
	d.expiry.sweep(snapshot.SnapshotTime)
}

type exchangeQuote struct {
	exchange string
	bid, ask float64
}

// bestBidAskAcross returns the exchange with the cheapest ask (low) and the
// exchange with the richest bid (high).
func bestBidAskAcross(quotes map[string]market.Quote) (low, high exchangeQuote) {
	names := make([]string, 0, len(quotes))
	for name := range quotes {
		names = append(names, name)
	}
	sort.Strings(names)

	first := true
	for _, name := range names {
		q := quotes[name]
		if first || q.AskPrice < low.ask {
			low = exchangeQuote{exchange: name, bid: q.BidPrice, ask: q.AskPrice}
		}
		if first || q.BidPrice > high.bid {
			high = exchangeQuote{exchange: name, bid: q.BidPrice, ask: q.AskPrice}
		}
		first = false
	}
	return low, high
}

func (d *CrossExchangeDetector) DetectOpportunities() []MispricingOpportunity {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []MispricingOpportunity
	for id, series := range d.history {
		values := series.snapshot()
		if len(values) < d.params.MinObservationWindow {
			continue
		}
		mean, stddev := sampleMeanStdDev(values)
		if stddev == 0 {
			continue
		}
		spread := values[len(values)-1]
		z := (spread - mean) / stddev

		quotes := d.latest[id]
		low, high := bestBidAskAcross(quotes)
		if low.ask == 0 {
			continue
		}
		deviation := spread / low.ask
		confidence := samplePenaltyRatio(len(values), d.params.MinObservationWindow)

		if !significant(deviation, z, confidence, d.params) {
			continue
		}

		requiredCapital := low.ask
		capitalEfficiency := 0.0
		if requiredCapital > 0 {
			capitalEfficiency = spread / requiredCapital
		}
		// execution_probability decays with the number of standard
		// deviations the spread sits above its own history — a wider,
		// rarer spread is less likely to be executable before it reverts.
		executionProbability := 1 / (1 + abs(z)/d.params.MinZScore)

		detectionTime := d.snapTime
		opp := MispricingOpportunity{
			Type:                TypeCrossExchange,
			Target:              id,
			Components:          []market.InstrumentId{id},
			Weights:             []float64{1},
			Severity:            SeverityFor(abs(deviation)),
			ObservedPrice:       high.bid,
			TheoreticalPrice:    low.ask,
			DeviationPercentage: deviation,
			ZScore:              z,
			Confidence:          confidence,
			ExpectedProfit:      spread,
			DetectionTime:       detectionTime,
			ExpiryTime:          detectionTime.Add(d.params.MaxOpportunityTTL),
			Extra: map[string]float64{
				"capital_efficiency":     capitalEfficiency,
				"execution_probability":  executionProbability,
			},
		}
		d.expiry.track(opp)
		out = append(out, opp)
		if d.onDetect != nil {
			d.onDetect(opp)
		}
	}
	return out
}
