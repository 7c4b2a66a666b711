package mispricing

import (
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/pricing"
)

// SpotDerivativeTarget names a target instrument priced by a pricing model
// from a fixed set of component instruments (§4.3: "spot-vs-derivative").
type SpotDerivativeTarget struct {
	Target     market.InstrumentId
	Components []market.InstrumentId
	Model      pricing.Model
}

// SpotDerivativeDetector compares a pricing model's theoretical price
// against the observed market price for a fixed set of targets.
type SpotDerivativeDetector struct {
	mu       sync.Mutex
	params   config.DetectionParameters
	targets  []SpotDerivativeTarget
	history  map[market.InstrumentId]*boundedSeries
	snapshot market.MarketSnapshot
	expiry   *expiryTracker
	onDetect DetectedCallback
}

// NewSpotDerivativeDetector returns a detector pricing the given targets.
func NewSpotDerivativeDetector(params config.DetectionParameters, targets []SpotDerivativeTarget) *SpotDerivativeDetector {
	return &SpotDerivativeDetector{
		params:  params,
		targets: targets,
		history: make(map[market.InstrumentId]*boundedSeries),
		expiry:  newExpiryTracker(),
	}
}

func (d *SpotDerivativeDetector) OnDetected(cb DetectedCallback) { d.mu.Lock(); d.onDetect = cb; d.mu.Unlock() }
func (d *SpotDerivativeDetector) OnExpired(cb ExpiredCallback)   { d.expiry.setExpiredCallback(cb) }

func (d *SpotDerivativeDetector) UpdateParameters(params config.DetectionParameters) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = params
}

func (d *SpotDerivativeDetector) UpdateMarketData(snapshot market.MarketSnapshot) {
	d.mu.Lock()
	d.snapshot = snapshot
	for _, t := range d.targets {
		marketQuote, ok := snapshot.Quote(t.Target)
		if !ok {
			continue
		}
		synthetic, err := t.Model.CalculateSyntheticPrice(t.Target, t.Components, snapshot)
		if err != nil || synthetic.TheoreticalPrice == 0 {
			continue
		}
		deviation := (marketQuote.Mid() - synthetic.TheoreticalPrice) / synthetic.TheoreticalPrice

		series, has := d.history[t.Target]
		if !has {
			series = newBoundedSeries(2 * d.params.MinObservationWindow)
			d.history[t.Target] = series
		}
		series.push(deviation)
	}
	d.mu.Unlock()
	d.expiry.sweep(snapshot.SnapshotTime)
}

func (d *SpotDerivativeDetector) DetectOpportunities() []MispricingOpportunity {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []MispricingOpportunity
	for _, t := range d.targets {
		marketQuote, ok := d.snapshot.Quote(t.Target)
		if !ok {
			continue
		}
		synthetic, err := t.Model.CalculateSyntheticPrice(t.Target, t.Components, d.snapshot)
		if err != nil {
			continue
		}
		if synthetic.TheoreticalPrice == 0 {
			continue
		}

		deviation := (marketQuote.Mid() - synthetic.TheoreticalPrice) / synthetic.TheoreticalPrice

		series, has := d.history[t.Target]
		if !has {
			continue
		}
		values := series.snapshot()
		if len(values) < d.params.MinObservationWindow {
			continue
		}
		mean, stddev := sampleMeanStdDev(values)
		if stddev == 0 {
			continue
		}
		z := (deviation - mean) / stddev
		confidence := synthetic.ConfidenceScore * samplePenaltyRatio(len(values), d.params.MinObservationWindow)

		if !significant(deviation, z, confidence, d.params) {
			continue
		}

		detectionTime := d.snapshotTime()
		opp := MispricingOpportunity{
			Type:                TypeSpotDerivative,
			Target:              t.Target,
			Components:          t.Components,
			Weights:             synthetic.Weights,
			Severity:            SeverityFor(abs(deviation)),
			ObservedPrice:       marketQuote.Mid(),
			TheoreticalPrice:    synthetic.TheoreticalPrice,
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

func (d *SpotDerivativeDetector) snapshotTime() time.Time {
	if d.snapshot.SnapshotTime.IsZero() {
		return time.Now()
	}
	return d.snapshot.SnapshotTime
}
