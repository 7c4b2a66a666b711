package risk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/pricing"
)

// Default breaker thresholds for the correlation data source, mirroring the
// per-exchange feed breaker's shape in internal/feed: one class of source
// rather than the teacher's fixed exchange/llm/database split, since this
// system has exactly one kind of correlation source to protect.
const (
	correlationMinRequests   = 5
	correlationFailureRatio  = 0.6
	correlationOpenTimeout   = 30 * time.Second
	correlationHalfOpenReqs  = 3
	correlationCountInterval = 10 * time.Second
)

var (
	correlationBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "risk_correlation_breaker_state",
		Help: "Correlation data source circuit breaker state (0=closed, 1=open, 2=half_open)",
	}, []string{"source"})
	correlationBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_correlation_breaker_requests_total",
		Help: "Total correlation refresh attempts through the circuit breaker",
	}, []string{"source", "result"})
)

// CorrelationBreaker guards refreshes of a correlation cache against a
// flapping correlation source: a pricing.Model whose CalculateCorrelation
// depends on price history that may be too short or inconsistent (§4.5's
// "correlation data sources" are not always available). Once the breaker
// trips, Refresh stops calling source and falls back to the cache's last
// known value instead of retrying a source that is currently failing.
type CorrelationBreaker struct {
	name   string
	cb     *gobreaker.CircuitBreaker
	source pricing.Model
	cache  *pricing.CorrelationCache
	log    zerolog.Logger
}

// NewCorrelationBreaker wraps source/cache with a circuit breaker tripped
// after correlationMinRequests calls cross correlationFailureRatio,
// consistent with the exchange-source defaults used elsewhere in this
// codebase.
func NewCorrelationBreaker(name string, source pricing.Model, cache *pricing.CorrelationCache) *CorrelationBreaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: correlationHalfOpenReqs,
		Interval:    correlationCountInterval,
		Timeout:     correlationOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < correlationMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= correlationFailureRatio
		},
		OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
			correlationBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
	return &CorrelationBreaker{name: name, cb: cb, source: source, cache: cache, log: config.NewLogger("risk.circuit_breaker")}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// Refresh recomputes the correlation between a and b from the source
// through the breaker, caching the result on success. When the breaker is
// open or the call fails, it returns the cache's existing value (or def)
// and leaves the cache untouched: missing correlation data degrades to a
// configured default rather than blocking sizing.
func (b *CorrelationBreaker) Refresh(a, bInst market.InstrumentId, history map[market.InstrumentId][]float64, def float64) float64 {
	rho, err := b.cb.Execute(func() (interface{}, error) {
		return b.source.CalculateCorrelation(a, bInst, history)
	})
	result := "success"
	if err != nil {
		result = "failure"
		b.log.Debug().Err(err).Str("source", b.name).Msg("correlation refresh failed, falling back to cache")
	}
	correlationBreakerRequests.WithLabelValues(b.name, result).Inc()
	if err != nil {
		return b.cache.GetOrDefault(a, bInst, def)
	}
	value, _ := rho.(float64)
	b.cache.Set(a, bInst, value)
	return value
}

// State reports the breaker's current gobreaker state, exposed for health
// surfaces.
func (b *CorrelationBreaker) State() gobreaker.State {
	return b.cb.State()
}
