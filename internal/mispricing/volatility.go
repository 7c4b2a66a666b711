package mispricing

import (
	"math"
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

const (
	volatilityHistorySize = 100
	tradingDaysPerYear    = 252
)

// VolatilityDetector compares realized volatility (annualized stddev of
// log-returns) against a bid/ask-spread proxy for implied volatility,
// flagging instruments where the two diverge (§4.3: "volatility").
type VolatilityDetector struct {
	mu       sync.Mutex
	params   config.DetectionParameters
	history  map[market.InstrumentId]*boundedSeries
	latest   map[market.InstrumentId]market.Quote
	snapTime time.Time
	expiry   *expiryTracker
	onDetect DetectedCallback
}

// NewVolatilityDetector returns a detector using params for its gate.
func NewVolatilityDetector(params config.DetectionParameters) *VolatilityDetector {
	return &VolatilityDetector{
		params:  params,
		history: make(map[market.InstrumentId]*boundedSeries),
		latest:  make(map[market.InstrumentId]market.Quote),
		expiry:  newExpiryTracker(),
	}
}

func (d *VolatilityDetector) OnDetected(cb DetectedCallback) { d.mu.Lock(); d.onDetect = cb; d.mu.Unlock() }
func (d *VolatilityDetector) OnExpired(cb ExpiredCallback)   { d.expiry.setExpiredCallback(cb) }

func (d *VolatilityDetector) UpdateParameters(params config.DetectionParameters) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = params
}

func (d *VolatilityDetector) UpdateMarketData(snapshot market.MarketSnapshot) {
	d.mu.Lock()
	for id, q := range snapshot.Quotes {
		mid := q.Mid()
		if mid <= 0 {
			continue
		}
		series, ok := d.history[id]
		if !ok {
			series = newBoundedSeries(volatilityHistorySize)
			d.history[id] = series
		}
		series.push(mid)
		d.latest[id] = q
	}
	d.snapTime = snapshot.SnapshotTime
	d.mu.Unlock()
	d.expiry.sweep(snapshot.SnapshotTime)
}

// realizedVol returns the annualized stddev of log-returns over prices.
func realizedVol(prices []float64) (float64, bool) {
	if len(prices) < 3 {
		return 0, false
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	if len(returns) < 2 {
		return 0, false
	}
	_, stddev := sampleMeanStdDev(returns)
	return stddev * math.Sqrt(tradingDaysPerYear), true
}

func impliedVolProxy(q market.Quote) float64 {
	mid := q.Mid()
	if mid <= 0 {
		return 0
	}
	return (q.AskPrice - q.BidPrice) / mid
}

func (d *VolatilityDetector) DetectOpportunities() []MispricingOpportunity {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []MispricingOpportunity
	for id, series := range d.history {
		prices := series.snapshot()
		realized, ok := realizedVol(prices)
		if !ok || len(prices) < d.params.MinObservationWindow {
			continue
		}
		q := d.latest[id]
		implied := impliedVolProxy(q)
		if implied == 0 {
			continue
		}

		deviation := (implied - realized) / realized
		// z-score the deviation against rolling realized-vol dispersion.
		logReturns := make([]float64, 0, len(prices)-1)
		for i := 1; i < len(prices); i++ {
			if prices[i-1] <= 0 {
				continue
			}
			logReturns = append(logReturns, math.Log(prices[i]/prices[i-1]))
		}
		_, retStddev := sampleMeanStdDev(logReturns)
		if retStddev == 0 {
			continue
		}
		z := deviation / retStddev
		confidence := samplePenaltyRatio(len(prices), d.params.MinObservationWindow)

		if !significant(deviation, z, confidence, d.params) {
			continue
		}
		if realized < d.params.VolatilityThreshold && implied < d.params.VolatilityThreshold {
			continue
		}

		detectionTime := d.snapTime
		opp := MispricingOpportunity{
			Type:                TypeVolatility,
			Target:              id,
			Components:          []market.InstrumentId{id},
			Weights:             []float64{1},
			Severity:            SeverityFor(abs(deviation)),
			ObservedPrice:       implied,
			TheoreticalPrice:    realized,
			DeviationPercentage: deviation,
			ZScore:              z,
			Confidence:          confidence,
			DetectionTime:       detectionTime,
			ExpiryTime:          detectionTime.Add(d.params.MaxOpportunityTTL),
		}
		d.expiry.track(opp)
		out = append(out, opp)
		if d.onDetect != nil {
			d.onDetect(opp)
		}
	}
	return out
}
