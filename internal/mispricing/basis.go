package mispricing

import (
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/pricing"
)

// BasisPair names a (spot, derivative) pair whose basis (derivative_mid -
// spot_mid) the detector tracks against a theoretical basis priced by
// Model (§4.2/§4.3: "computes basis = derivative_mid - spot_mid and a
// theoretical basis (from §4.2)").
type BasisPair struct {
	Spot       market.InstrumentId
	Derivative market.InstrumentId
	Model      pricing.Model
}

// BasisDetector tracks the rolling excess-basis history (observed basis
// minus the model's theoretical basis) for a fixed set of (spot,
// derivative) pairs and flags excess levels that clear the significance
// gate against their own history.
type BasisDetector struct {
	mu       sync.Mutex
	params   config.DetectionParameters
	pairs    []BasisPair
	history  map[market.InstrumentId]*boundedSeries // keyed by derivative id
	latest   map[market.InstrumentId]market.Quote
	snapshot market.MarketSnapshot
	expiry   *expiryTracker
	onDetect DetectedCallback
}

// NewBasisDetector returns a detector tracking the given pairs.
func NewBasisDetector(params config.DetectionParameters, pairs []BasisPair) *BasisDetector {
	return &BasisDetector{
		params:  params,
		pairs:   pairs,
		history: make(map[market.InstrumentId]*boundedSeries),
		latest:  make(map[market.InstrumentId]market.Quote),
		expiry:  newExpiryTracker(),
	}
}

func (d *BasisDetector) OnDetected(cb DetectedCallback) { d.mu.Lock(); d.onDetect = cb; d.mu.Unlock() }
func (d *BasisDetector) OnExpired(cb ExpiredCallback)   { d.expiry.setExpiredCallback(cb) }

func (d *BasisDetector) UpdateParameters(params config.DetectionParameters) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = params
}

// theoreticalBasis returns the pair's model-implied basis (theoretical
// derivative price minus spot mid) and the synthetic price it was derived
// from.
func theoreticalBasis(pair BasisPair, spot market.Quote, snapshot market.MarketSnapshot) (float64, pricing.SyntheticPrice, bool) {
	synthetic, err := pair.Model.CalculateSyntheticPrice(pair.Derivative, []market.InstrumentId{pair.Spot}, snapshot)
	if err != nil || synthetic.TheoreticalPrice == 0 {
		return 0, pricing.SyntheticPrice{}, false
	}
	return synthetic.TheoreticalPrice - spot.Mid(), synthetic, true
}

func (d *BasisDetector) UpdateMarketData(snapshot market.MarketSnapshot) {
	d.mu.Lock()
	d.snapshot = snapshot
	for id, q := range snapshot.Quotes {
		d.latest[id] = q
	}
	for _, pair := range d.pairs {
		spot, okSpot := d.latest[pair.Spot]
		deriv, okDeriv := d.latest[pair.Derivative]
		if !okSpot || !okDeriv {
			continue
		}
		theoretical, _, ok := theoreticalBasis(pair, spot, snapshot)
		if !ok {
			continue
		}
		observed := deriv.Mid() - spot.Mid()
		excess := observed - theoretical

		series, has := d.history[pair.Derivative]
		if !has {
			series = newBoundedSeries(2 * d.params.MinObservationWindow)
			d.history[pair.Derivative] = series
		}
		series.push(excess)
	}
	d.mu.Unlock()
	d.expiry.sweep(snapshot.SnapshotTime)
}

func (d *BasisDetector) DetectOpportunities() []MispricingOpportunity {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []MispricingOpportunity
	for _, pair := range d.pairs {
		spot, okSpot := d.latest[pair.Spot]
		deriv, okDeriv := d.latest[pair.Derivative]
		if !okSpot || !okDeriv || spot.Mid() == 0 {
			continue
		}
		theoretical, synthetic, ok := theoreticalBasis(pair, spot, d.snapshot)
		if !ok {
			continue
		}
		observed := deriv.Mid() - spot.Mid()
		excess := observed - theoretical
		deviation := excess / spot.Mid()

		series, has := d.history[pair.Derivative]
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
		z := (excess - mean) / stddev
		confidence := synthetic.ConfidenceScore * samplePenaltyRatio(len(values), d.params.MinObservationWindow)

		if !significant(deviation, z, confidence, d.params) {
			continue
		}

		detectionTime := d.snapshotTime()
		opp := MispricingOpportunity{
			Type:                TypeBasis,
			Target:              pair.Derivative,
			Components:          []market.InstrumentId{pair.Spot, pair.Derivative},
			Weights:             []float64{-1, 1},
			Severity:            SeverityFor(abs(deviation)),
			ObservedPrice:       deriv.Mid(),
			TheoreticalPrice:    spot.Mid() + theoretical,
			DeviationPercentage: deviation,
			ZScore:              z,
			Confidence:          confidence,
			DetectionTime:       detectionTime,
			ExpiryTime:          detectionTime.Add(d.params.MaxOpportunityTTL),
			Extra:               map[string]float64{"basis": observed, "theoretical_basis": theoretical, "excess_basis": excess},
		}
		d.expiry.track(opp)
		out = append(out, opp)
		if d.onDetect != nil {
			d.onDetect(opp)
		}
	}
	return out
}

func (d *BasisDetector) snapshotTime() time.Time {
	if d.snapshot.SnapshotTime.IsZero() {
		return time.Now()
	}
	return d.snapshot.SnapshotTime
}
