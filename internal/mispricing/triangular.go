package mispricing

import (
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

// Triangle names the three legs of a currency cycle A/B, B/C, A/C, whose
// implied round-trip should have zero profit absent mispricing (§4.3).
type Triangle struct {
	Name string
	AB   market.InstrumentId
	BC   market.InstrumentId
	AC   market.InstrumentId
}

// TriangularDetector watches a fixed set of currency triangles and flags
// round-trips whose implied profit clears the significance gate.
type TriangularDetector struct {
	mu        sync.Mutex
	params    config.DetectionParameters
	triangles []Triangle
	latest    map[market.InstrumentId]market.Quote
	history   map[string]*boundedSeries
	snapTime  time.Time
	expiry    *expiryTracker
	onDetect  DetectedCallback
}

// NewTriangularDetector returns a detector watching the given triangles.
func NewTriangularDetector(params config.DetectionParameters, triangles []Triangle) *TriangularDetector {
	return &TriangularDetector{
		params:    params,
		triangles: triangles,
		latest:    make(map[market.InstrumentId]market.Quote),
		history:   make(map[string]*boundedSeries),
		expiry:    newExpiryTracker(),
	}
}

func (d *TriangularDetector) OnDetected(cb DetectedCallback) { d.mu.Lock(); d.onDetect = cb; d.mu.Unlock() }
func (d *TriangularDetector) OnExpired(cb ExpiredCallback)   { d.expiry.setExpiredCallback(cb) }

func (d *TriangularDetector) UpdateParameters(params config.DetectionParameters) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = params
}

func (d *TriangularDetector) UpdateMarketData(snapshot market.MarketSnapshot) {
	d.mu.Lock()
	for id, q := range snapshot.Quotes {
		d.latest[id] = q
	}
	for _, tri := range d.triangles {
		ab, okAB := d.latest[tri.AB]
		bc, okBC := d.latest[tri.BC]
		ac, okAC := d.latest[tri.AC]
		if !okAB || !okBC || !okAC {
			continue
		}
		profit := roundTripProfit(ab, bc, ac)
		series, ok := d.history[tri.Name]
		if !ok {
			series = newBoundedSeries(2 * d.params.MinObservationWindow)
			d.history[tri.Name] = series
		}
		series.push(profit)
	}
	d.snapTime = snapshot.SnapshotTime
	d.mu.Unlock()
	d.expiry.sweep(snapshot.SnapshotTime)
}

// roundTripProfit computes bid(A/B)*bid(B/C)*bid(A/C^-1) - 1, the implied
// profit of selling A for B, B for C, and C back for A at current bids
// (§4.3: "triangular"). The reverse round-trip is not priced: a mispricing
// that favours it shows up here as a negative value.
func roundTripProfit(ab, bc, ac market.Quote) float64 {
	if ac.BidPrice == 0 {
		return 0
	}
	acInverseBid := 1 / ac.AskPrice
	return ab.BidPrice*bc.BidPrice*acInverseBid - 1
}

func (d *TriangularDetector) DetectOpportunities() []MispricingOpportunity {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []MispricingOpportunity
	for _, tri := range d.triangles {
		series, ok := d.history[tri.Name]
		if !ok {
			continue
		}
		values := series.snapshot()
		if len(values) < d.params.MinObservationWindow {
			continue
		}
		profit := values[len(values)-1]
		mean, stddev := sampleMeanStdDev(values)
		if stddev == 0 {
			continue
		}
		z := (profit - mean) / stddev
		confidence := samplePenaltyRatio(len(values), d.params.MinObservationWindow)

		if !significant(profit, z, confidence, d.params) {
			continue
		}

		detectionTime := d.snapTime
		opp := MispricingOpportunity{
			Type:                TypeTriangular,
			Target:              tri.AC,
			Components:          []market.InstrumentId{tri.AB, tri.BC, tri.AC},
			Weights:             []float64{1, 1, -1},
			Severity:            SeverityFor(abs(profit)),
			ObservedPrice:       1,
			TheoreticalPrice:    1 + profit,
			DeviationPercentage: profit,
			ZScore:              z,
			Confidence:          confidence,
			ExpectedProfit:      profit,
			DetectionTime:       detectionTime,
			ExpiryTime:          detectionTime.Add(d.params.MaxOpportunityTTL),
			Extra:               map[string]float64{"triangle": 1},
		}
		d.expiry.track(opp)
		out = append(out, opp)
		if d.onDetect != nil {
			d.onDetect(opp)
		}
	}
	return out
}
