package mispricing

import (
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

// StatisticalDetector keeps the latest quote and a bounded queue of
// deviations per instrument, z-scoring the current deviation against the
// historical deviation queue (§4.3).
type StatisticalDetector struct {
	mu        sync.Mutex
	params    config.DetectionParameters
	deviation map[market.InstrumentId]*boundedSeries
	means     map[market.InstrumentId]float64
	latest    map[market.InstrumentId]market.Quote
	expiry    *expiryTracker
	onDetect  DetectedCallback
	now       func() time.Time
}

// NewStatisticalDetector returns a detector using params for its
// significance gate.
func NewStatisticalDetector(params config.DetectionParameters) *StatisticalDetector {
	return &StatisticalDetector{
		params:    params,
		deviation: make(map[market.InstrumentId]*boundedSeries),
		means:     make(map[market.InstrumentId]float64),
		latest:    make(map[market.InstrumentId]market.Quote),
		expiry:    newExpiryTracker(),
		now:       time.Now,
	}
}

// OnDetected registers the detection callback.
func (d *StatisticalDetector) OnDetected(cb DetectedCallback) { d.mu.Lock(); d.onDetect = cb; d.mu.Unlock() }

// OnExpired registers the expiry callback.
func (d *StatisticalDetector) OnExpired(cb ExpiredCallback) { d.expiry.setExpiredCallback(cb) }

func (d *StatisticalDetector) UpdateParameters(params config.DetectionParameters) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = params
}

// UpdateMarketData records each instrument's mean-reversion deviation
// (quote mid vs. running mean held in d.means, primed by SeedMean or, when
// unseeded, by the instrument's first observed mid) and sweeps expired
// opportunities.
func (d *StatisticalDetector) UpdateMarketData(snapshot market.MarketSnapshot) {
	d.mu.Lock()
	capacity := 2 * d.params.MinObservationWindow
	for id, q := range snapshot.Quotes {
		mid := q.Mid()
		if mid == 0 {
			continue
		}
		mean, hasMean := d.means[id]
		if !hasMean {
			d.means[id] = mid
			d.latest[id] = q
			continue
		}
		dev := (mid - mean) / mean
		series, ok := d.deviation[id]
		if !ok {
			series = newBoundedSeries(capacity)
			d.deviation[id] = series
		}
		series.push(dev)
		// Exponentially blend the running mean so the detector adapts to
		// drift without a full external seed each tick.
		d.means[id] = mean*0.98 + mid*0.02
		d.latest[id] = q
	}
	d.mu.Unlock()
	d.expiry.sweep(snapshot.SnapshotTime)
}

// SeedMean primes the running mean for id, e.g. from a longer-horizon
// pricing model, before UpdateMarketData has observed enough history on
// its own.
func (d *StatisticalDetector) SeedMean(id market.InstrumentId, mean float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.means[id] = mean
}

// DetectOpportunities emits one MispricingOpportunity per instrument whose
// current deviation clears the significance gate.
func (d *StatisticalDetector) DetectOpportunities() []MispricingOpportunity {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []MispricingOpportunity
	for id, series := range d.deviation {
		values := series.snapshot()
		if len(values) < d.params.MinObservationWindow {
			continue
		}
		mean, stddev := sampleMeanStdDev(values)
		current := values[len(values)-1]
		if stddev == 0 {
			continue
		}
		z := (current - mean) / stddev
		confidence := samplePenaltyRatio(len(values), d.params.MinObservationWindow)

		if !significant(current, z, confidence, d.params) {
			continue
		}

		q := d.latest[id]
		detectionTime := q.Timestamp
		expiry := detectionTime.Add(d.params.MaxOpportunityTTL)

		opp := MispricingOpportunity{
			Type:                TypeStatistical,
			Target:              id,
			Components:          []market.InstrumentId{id},
			Weights:             []float64{1},
			Severity:            SeverityFor(abs(current)),
			ObservedPrice:       q.Mid(),
			TheoreticalPrice:    d.means[id],
			DeviationPercentage: current,
			ZScore:              z,
			Confidence:          confidence,
			DetectionTime:       detectionTime,
			ExpiryTime:          expiry,
		}
		d.expiry.track(opp)
		out = append(out, opp)
		if d.onDetect != nil {
			d.onDetect(opp)
		}
	}
	return out
}

func samplePenaltyRatio(n, window int) float64 {
	if window <= 0 {
		return 1
	}
	if n >= window {
		return 1
	}
	return float64(n) / float64(window)
}
