package mispricing

import (
	"math"
	"sync"
	"time"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
)

// Detector is the shared contract every mispricing detector implements
// (§4.3).
type Detector interface {
	// UpdateMarketData ingests a new snapshot, refreshing internal history
	// and sweeping expired opportunities.
	UpdateMarketData(snapshot market.MarketSnapshot)
	// DetectOpportunities returns opportunities whose significance gate is
	// satisfied as of the most recently ingested snapshot.
	DetectOpportunities() []MispricingOpportunity
	// UpdateParameters refreshes the shared detection thresholds.
	UpdateParameters(params config.DetectionParameters)
}

// DetectedCallback is invoked for every opportunity a detector emits.
type DetectedCallback func(MispricingOpportunity)

// ExpiredCallback is invoked exactly once per opportunity when its
// expiry_time has elapsed.
type ExpiredCallback func(MispricingOpportunity)

// significant applies the shared gate from §4.3: an opportunity is emitted
// only if all three thresholds are exceeded.
func significant(deviation, z, confidence float64, params config.DetectionParameters) bool {
	return abs(deviation) > params.MinDeviationThreshold &&
		abs(z) > params.MinZScore &&
		confidence > params.MinConfidenceLevel
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// expiryTracker tracks live opportunities for the shared expiry sweep
// described in §4.3/§5: on every snapshot update, expired entries are
// removed and the expiry callback fires exactly once per opportunity.
type expiryTracker struct {
	mu      sync.Mutex
	live    map[Key]MispricingOpportunity
	onExpire ExpiredCallback
}

func newExpiryTracker() *expiryTracker {
	return &expiryTracker{live: make(map[Key]MispricingOpportunity)}
}

func (e *expiryTracker) track(o MispricingOpportunity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.live[o.KeyOf()] = o
}

// sweep removes and reports every opportunity whose expiry_time is at or
// before now.
func (e *expiryTracker) sweep(now time.Time) {
	e.mu.Lock()
	var expired []MispricingOpportunity
	for k, o := range e.live {
		if !now.Before(o.ExpiryTime) {
			expired = append(expired, o)
			delete(e.live, k)
		}
	}
	cb := e.onExpire
	e.mu.Unlock()

	if cb == nil {
		return
	}
	for _, o := range expired {
		cb(o)
	}
}

func (e *expiryTracker) setExpiredCallback(cb ExpiredCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onExpire = cb
}

// boundedSeries is a fixed-capacity FIFO of float64 samples, the shared
// per-instrument history primitive used by the statistical, volatility, and
// basis detectors (§4.3: "bounded queues").
type boundedSeries struct {
	capacity int
	values   []float64
}

func newBoundedSeries(capacity int) *boundedSeries {
	return &boundedSeries{capacity: capacity}
}

func (b *boundedSeries) push(v float64) {
	b.values = append(b.values, v)
	if len(b.values) > b.capacity {
		b.values = b.values[len(b.values)-b.capacity:]
	}
}

func (b *boundedSeries) snapshot() []float64 {
	out := make([]float64, len(b.values))
	copy(out, b.values)
	return out
}

func (b *boundedSeries) len() int { return len(b.values) }

// sampleMeanStdDev returns the unbiased sample mean/stddev of values.
func sampleMeanStdDev(values []float64) (mean, stddev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	stddev = math.Sqrt(sumSq / float64(n-1))
	return mean, stddev
}
